package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"segsearch/internal/answer"
	"segsearch/internal/config"
	"segsearch/internal/domain"
	"segsearch/internal/embedding/openai"
	"segsearch/internal/indexer"
	"segsearch/internal/query"
	"segsearch/internal/segfile"
	"segsearch/internal/segmenter"
	"segsearch/internal/service"
	"segsearch/internal/store"
	"segsearch/internal/summarizer"
	"segsearch/internal/tui"
	"segsearch/internal/vectorstore/qdrant"
)

const usage = `Usage: segsearch [--config=config.yaml] <command> [args]

Commands:
  add    --kap-nr N --kap-titel TITLE --input chapter.txt
  build  [segment-dir]
  query  [-k N] [query text]        (no text starts the interactive screen)
  ask    [-k N] <question>
  convert <segments.json> [out.jsonl]
`

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "", "Path to YAML config file (optional)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	var cfg *config.AppConfig
	var err error
	if *cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(*cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	cmd, rest := args[0], args[1:]
	if cmd == "convert" {
		runConvert(rest)
		return
	}

	pipeline := assemble(cfg)
	ctx := context.Background()

	switch cmd {
	case "add":
		runAdd(ctx, pipeline, rest)
	case "build":
		runBuild(ctx, pipeline, cfg, rest)
	case "query":
		runQuery(ctx, pipeline, cfg, rest)
	case "ask":
		runAsk(ctx, pipeline, rest)
	default:
		flag.Usage()
		os.Exit(1)
	}
}

func assemble(cfg *config.AppConfig) *service.Pipeline {
	embedder, err := openai.NewClient(openai.Config{
		BaseURL:    cfg.Embedder.BaseURL,
		APIKeyEnv:  cfg.Embedder.APIKeyEnv,
		Model:      cfg.Embedder.Model,
		Dimension:  cfg.Embedder.Dimension,
		Timeout:    time.Duration(cfg.Embedder.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Embedder.MaxRetries,
	})
	if err != nil {
		log.Fatalf("embedder init failed: %v", err)
	}

	limits := segmenter.Limits{
		MinWords:     cfg.Segmenter.MinWords,
		TargetLow:    cfg.Segmenter.TargetLow,
		TargetHigh:   cfg.Segmenter.TargetHigh,
		MaxWords:     cfg.Segmenter.MaxWords,
		LowException: cfg.Segmenter.LowException,
		StretchMax:   cfg.Segmenter.StretchMax,
	}

	var answerer *answer.Client
	if cfg.Chat.Enabled {
		answerer, err = answer.NewClient(answer.Config{
			BaseURL:     cfg.Embedder.BaseURL,
			APIKeyEnv:   cfg.Embedder.APIKeyEnv,
			AnswerModel: cfg.Chat.AnswerModel,
			ReviewModel: cfg.Chat.ReviewModel,
		})
		if err != nil {
			log.Fatalf("chat client init failed: %v", err)
		}
	}

	var mirror domain.Mirror
	if cfg.Qdrant != nil {
		mirror = qdrant.NewMirror(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		})
	}

	return service.NewPipeline(service.Options{
		Segmenter:  segmenter.New(limits),
		Limits:     limits,
		Embedder:   embedder,
		Store:      store.NewFileStore(cfg.Storage.IndexPath),
		Indexer:    indexer.New(embedder, cfg.Embedder.Concurrency),
		Engine:     query.NewEngine(embedder),
		Summarizer: summarizer.NewFrequencySummarizer(),
		Answerer:   answerer,
		Mirror:     mirror,
		SegmentDir: cfg.Storage.SegmentDir,
		DefaultK:   cfg.Query.TopK,
		Review:     cfg.Chat.Review,
	})
}

func runAdd(ctx context.Context, pipeline *service.Pipeline, args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	kapNr := fs.Int("kap-nr", 0, "chapter number")
	kapTitel := fs.String("kap-titel", "", "chapter title")
	input := fs.String("input", "", "path to the chapter text file")
	_ = fs.Parse(args)
	if *kapNr <= 0 || *kapTitel == "" || *input == "" {
		fs.Usage()
		os.Exit(1)
	}
	data, err := os.ReadFile(*input)
	if err != nil {
		log.Fatalf("read chapter: %v", err)
	}
	result, err := pipeline.AddChapter(ctx, *kapNr, *kapTitel, string(data))
	if err != nil {
		log.Fatalf("add chapter failed: %v", err)
	}
	fmt.Printf("Chapter %d %q: %d segments indexed (index now holds %d).\n",
		*kapNr, *kapTitel, len(result.Segments), result.IndexSize)
	if result.SegmentFile != "" {
		fmt.Printf("Segments written to %s\n", result.SegmentFile)
	}
	for _, w := range result.Report.Warnings {
		fmt.Printf("warning [%s] %s: %s\n", w.SegID, w.Type, w.Message)
	}
	if result.Review != nil {
		for _, f := range result.Review.Findings {
			fmt.Printf("review [%s] %s: %s\n", f.SegID, f.Severity, f.Message)
		}
	}
	if result.Summary != "" {
		fmt.Printf("\nSummary: %s\n", result.Summary)
	}
}

func runBuild(ctx context.Context, pipeline *service.Pipeline, cfg *config.AppConfig, args []string) {
	dir := cfg.Storage.SegmentDir
	if len(args) > 0 {
		dir = args[0]
	}
	n, err := pipeline.Build(ctx, dir)
	if err != nil {
		log.Fatalf("build failed: %v", err)
	}
	fmt.Printf("Index built from %s: %d segments.\n", dir, n)
}

func runQuery(ctx context.Context, pipeline *service.Pipeline, cfg *config.AppConfig, args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	k := fs.Int("k", 0, "number of results (0 = configured default)")
	_ = fs.Parse(args)

	if fs.NArg() == 0 {
		header := fmt.Sprintf("%d segments indexed", pipeline.IndexSize())
		topK := *k
		if topK <= 0 {
			topK = cfg.Query.TopK
		}
		m := tui.New(pipeline, header, topK)
		if _, err := tea.NewProgram(m).Run(); err != nil {
			log.Fatal(err)
		}
		return
	}

	results, err := pipeline.Query(ctx, fs.Arg(0), *k)
	if err != nil {
		log.Fatalf("query failed: %v", err)
	}
	for i, r := range results {
		fmt.Printf("%2d. %s  %s (Abschnitt %d)  score=%.4f\n", i+1, r.SegmentID, r.KapTitel, r.SegNr, r.Score)
	}
}

func runAsk(ctx context.Context, pipeline *service.Pipeline, args []string) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	k := fs.Int("k", 0, "number of context segments (0 = configured default)")
	_ = fs.Parse(args)
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(1)
	}
	text, results, err := pipeline.Ask(ctx, fs.Arg(0), *k)
	if err != nil {
		log.Fatalf("ask failed: %v", err)
	}
	fmt.Println(text)
	fmt.Println("\nSources:")
	for _, r := range results {
		fmt.Printf("- %s | %s (Abschnitt %d)\n", r.SegmentID, r.KapTitel, r.SegNr)
	}
}

func runConvert(args []string) {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	out := ""
	if len(args) > 1 {
		out = args[1]
	}
	if err := segfile.ConvertToJSONL(args[0], out); err != nil {
		log.Fatalf("convert failed: %v", err)
	}
	fmt.Printf("Converted %s\n", args[0])
}
