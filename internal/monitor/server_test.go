package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fusion-imaging/sitsi/internal/runstore"
)

func newTestServer(t *testing.T) (*Server, *runstore.Store) {
	t.Helper()
	store, err := runstore.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewServer(Config{Address: "127.0.0.1:0", Store: store}), store
}

func get(t *testing.T, s *Server, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func completedRun(t *testing.T, store *runstore.Store) runstore.Run {
	t.Helper()
	run, err := store.InsertRun(runstore.Run{Source: "shot35628.h5", Method: "svd"})
	if err != nil {
		t.Fatalf("insert run: %v", err)
	}
	err = store.CompleteRun(run.RunID, 0.01, 2e-5,
		[]float64{0.1, 0.8, 1.4, 0.6}, []float64{0.9, 1.1, 1.0}, []float64{1.0, 1.0, 1.1})
	if err != nil {
		t.Fatalf("complete run: %v", err)
	}
	return run
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %q, want ok", rec.Body.String())
	}
}

func TestListRuns(t *testing.T) {
	s, store := newTestServer(t)

	rec := get(t, s, "/api/runs")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var runs []runstore.Run
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
		t.Fatalf("decode empty list: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("got %d runs, want 0", len(runs))
	}

	completedRun(t, store)
	completedRun(t, store)

	rec = get(t, s, "/api/runs?limit=1")
	if err := json.Unmarshal(rec.Body.Bytes(), &runs); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("got %d runs, want 1", len(runs))
	}

	if rec := get(t, s, "/api/runs?limit=zero"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}

func TestGetRunDetail(t *testing.T) {
	s, store := newTestServer(t)
	run := completedRun(t, store)

	rec := get(t, s, "/api/runs?run="+run.RunID)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got runstore.Run
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if got.RunID != run.RunID || len(got.Solution) != 4 {
		t.Errorf("got run %q with %d solution points", got.RunID, len(got.Solution))
	}

	if rec := get(t, s, "/api/runs?run=missing"); rec.Code != http.StatusNotFound {
		t.Errorf("missing run status = %d, want 404", rec.Code)
	}
}

func TestProfileChart(t *testing.T) {
	s, store := newTestServer(t)

	if rec := get(t, s, "/charts/profile"); rec.Code != http.StatusBadRequest {
		t.Errorf("no run param status = %d, want 400", rec.Code)
	}

	pending, err := store.InsertRun(runstore.Run{Source: "shot", Method: "standard"})
	if err != nil {
		t.Fatalf("insert run: %v", err)
	}
	if rec := get(t, s, "/charts/profile?run="+pending.RunID); rec.Code != http.StatusConflict {
		t.Errorf("pending run status = %d, want 409", rec.Code)
	}

	run := completedRun(t, store)
	rec := get(t, s, "/charts/profile?run="+run.RunID)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	if !strings.Contains(rec.Body.String(), "echarts") {
		t.Error("chart body does not reference echarts")
	}
}

func TestFitChart(t *testing.T) {
	s, store := newTestServer(t)
	run := completedRun(t, store)

	rec := get(t, s, "/charts/fit?run="+run.RunID)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "synthetic") || !strings.Contains(body, "measured") {
		t.Error("chart body missing measured/synthetic series")
	}
}

func TestRunsChart(t *testing.T) {
	s, store := newTestServer(t)

	if rec := get(t, s, "/charts/runs"); rec.Code != http.StatusNotFound {
		t.Errorf("empty store status = %d, want 404", rec.Code)
	}

	completedRun(t, store)
	if rec := get(t, s, "/charts/runs"); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestProfilePNG(t *testing.T) {
	s, store := newTestServer(t)
	run := completedRun(t, store)

	rec := get(t, s, "/plots/profile.png?run="+run.RunID)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	magic := []byte{0x89, 'P', 'N', 'G'}
	body := rec.Body.Bytes()
	if len(body) < 4 || string(body[:4]) != string(magic) {
		t.Error("body is not a PNG")
	}
}
