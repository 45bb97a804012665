package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"segsearch/internal/domain"
)

func mirrorIndex() *domain.Index {
	ix := domain.NewIndex("hash", 2)
	ix.Entries = []domain.IndexEntry{
		{SegmentID: "K001-S001", KapNr: 1, KapTitel: "Eins", SegNr: 1, Text: "a", Vector: []float64{1, 0}},
		{SegmentID: "K001-S002", KapNr: 1, KapTitel: "Eins", SegNr: 2, Text: "b", Vector: []float64{0, 1}},
	}
	return ix
}

func TestPushCreatesCollectionAndUpserts(t *testing.T) {
	var gotPaths []string
	var upsert struct {
		Points []struct {
			ID      int            `json:"id"`
			Vector  []float64      `json:"vector"`
			Payload map[string]any `json:"payload"`
		} `json:"points"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPaths = append(gotPaths, r.Method+" "+r.URL.Path)
		if r.Header.Get("api-key") != "secret" {
			t.Errorf("missing api-key header")
		}
		if r.Method == http.MethodDelete {
			// first push hits a collection that does not exist yet
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.URL.Path == "/collections/segmente/points" {
			if err := json.NewDecoder(r.Body).Decode(&upsert); err != nil {
				t.Errorf("decode upsert: %v", err)
			}
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMirror(Config{URL: srv.URL, APIKey: "secret", Collection: "segmente"})
	if err := m.Push(context.Background(), mirrorIndex()); err != nil {
		t.Fatalf("Push: %v", err)
	}
	want := []string{
		"DELETE /collections/segmente",
		"PUT /collections/segmente",
		"PUT /collections/segmente/points",
	}
	if len(gotPaths) != len(want) {
		t.Fatalf("requests = %v, want %v", gotPaths, want)
	}
	for i := range want {
		if gotPaths[i] != want[i] {
			t.Fatalf("requests = %v, want %v", gotPaths, want)
		}
	}
	if len(upsert.Points) != 2 {
		t.Fatalf("upserted %d points, want 2", len(upsert.Points))
	}
	if upsert.Points[0].Payload["segment_id"] != "K001-S001" {
		t.Errorf("payload = %+v", upsert.Points[0].Payload)
	}
}

func TestPushDropsBeforeEveryUpload(t *testing.T) {
	points := map[int]bool{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete:
			points = map[int]bool{}
		case r.URL.Path == "/collections/c/points":
			var upsert struct {
				Points []struct {
					ID int `json:"id"`
				} `json:"points"`
			}
			if err := json.NewDecoder(r.Body).Decode(&upsert); err != nil {
				t.Errorf("decode upsert: %v", err)
			}
			for _, p := range upsert.Points {
				points[p.ID] = true
			}
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMirror(Config{URL: srv.URL, Collection: "c"})
	if err := m.Push(context.Background(), mirrorIndex()); err != nil {
		t.Fatal(err)
	}
	shrunk := mirrorIndex()
	shrunk.Entries = shrunk.Entries[:1]
	if err := m.Push(context.Background(), shrunk); err != nil {
		t.Fatal(err)
	}
	if len(points) != 1 {
		t.Errorf("mirror holds %d points after shrinking push, want 1", len(points))
	}
}

func TestPushEmptyIndex(t *testing.T) {
	m := NewMirror(Config{URL: "http://unused", Collection: "c"})
	if err := m.Push(context.Background(), domain.NewIndex("hash", 2)); err == nil {
		t.Error("empty index must fail")
	}
}

func TestPushServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()
	m := NewMirror(Config{URL: srv.URL, Collection: "c"})
	if err := m.Push(context.Background(), mirrorIndex()); err == nil {
		t.Error("server error must fail")
	}
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/c/points/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"score": 0.91, "payload": map[string]any{
					"segment_id": "K002-S003", "kap_nr": 2, "kap_titel": "Zwei", "seg_nr": 3, "text": "Treffer.",
				}},
			},
		})
	}))
	defer srv.Close()

	m := NewMirror(Config{URL: srv.URL, Collection: "c"})
	results, err := m.Search(context.Background(), []float64{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.SegmentID != "K002-S003" || r.KapNr != 2 || r.SegNr != 3 || r.Score != 0.91 {
		t.Errorf("result = %+v", r)
	}

	if _, err := m.Search(context.Background(), []float64{1, 0}, 0); err == nil {
		t.Error("topK 0 must fail")
	}
}
