package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jeefy/recordchat/internal/cache"
	"github.com/jeefy/recordchat/internal/llm"
	"github.com/jeefy/recordchat/internal/models"
	"github.com/jeefy/recordchat/internal/nlp"
	"github.com/jeefy/recordchat/internal/server"
	"github.com/jeefy/recordchat/internal/store"
	"github.com/jeefy/recordchat/web"
)

// fakeOllama answers /api/generate with a fixed reply and counts calls.
type fakeOllama struct {
	calls int32
	fail  atomic.Bool
}

func (f *fakeOllama) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/generate" {
		http.NotFound(w, r)
		return
	}
	atomic.AddInt32(&f.calls, 1)
	if f.fail.Load() {
		http.Error(w, "model exploded", http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"response": "Backups run nightly.", "done": true})
}

func setupServer(t *testing.T) (*httptest.Server, *fakeOllama) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.New()
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Reseed(context.Background(), st, store.DemoRecords(100)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	fake := &fakeOllama{}
	ollamaSrv := httptest.NewServer(fake)
	t.Cleanup(ollamaSrv.Close)

	mem := cache.NewMemory(time.Minute)
	t.Cleanup(func() { _ = mem.Close() })

	gen := llm.NewOllama(ollamaSrv.URL, "mistral", 5*time.Second)
	asst := llm.NewAssistant(gen, llm.Config{Cache: mem, CacheTTL: time.Hour, KeyPrefix: gen.Model()})

	srv, err := server.New(st, nlp.NewProcessor(), asst, server.Options{
		Backend: store.BackendMemory,
		Static:  web.Static(),
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, fake
}

func chat(t *testing.T, baseURL, msg string) models.ChatResponse {
	t.Helper()
	b, _ := json.Marshal(map[string]string{"message": msg})
	res, err := http.Post(baseURL+"/chat", "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("post chat: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status chat: %d", res.StatusCode)
	}
	var out models.ChatResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode chat: %v", err)
	}
	return out
}

func search(t *testing.T, baseURL, q string) []models.Record {
	t.Helper()
	res, err := http.Get(baseURL + "/search?q=" + url.QueryEscape(q))
	if err != nil {
		t.Fatalf("search get: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status search: %d", res.StatusCode)
	}
	var out struct {
		Count int             `json:"count"`
		Data  []models.Record `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatalf("decode search: %v", err)
	}
	if out.Count != len(out.Data) {
		t.Fatalf("count %d does not match %d records", out.Count, len(out.Data))
	}
	return out.Data
}

// TestE2E_updateThenSearch edits a record and finds it again by its new name.
func TestE2E_updateThenSearch(t *testing.T) {
	ts, _ := setupServer(t)

	if got := search(t, ts.URL, "zephyr"); len(got) != 0 {
		t.Fatalf("expected no match before update, got %d", len(got))
	}

	b, _ := json.Marshal(map[string]interface{}{"id": 42, "name": "Zephyr Project", "value": "renamed"})
	res, err := http.Post(ts.URL+"/update", "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("post update: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status update: %d", res.StatusCode)
	}

	got := search(t, ts.URL, "ZEPHYR")
	if len(got) != 1 || got[0].ID != 42 {
		t.Fatalf("expected record 42 after update, got %+v", got)
	}
}

// TestE2E_chatIntents drives each intent through the HTTP surface.
func TestE2E_chatIntents(t *testing.T) {
	ts, fake := setupServer(t)

	help := chat(t, ts.URL, "help")
	if help.Visualization != models.VisualizationCommands {
		t.Fatalf("help: expected commands visualization, got %q", help.Visualization)
	}

	list := chat(t, ts.URL, "show all records")
	if list.Visualization != models.VisualizationTable {
		t.Fatalf("list: expected table, got %q", list.Visualization)
	}
	if recs, ok := list.Data.([]interface{}); !ok || len(recs) != 100 {
		t.Fatalf("list: expected 100 records, got %T", list.Data)
	}

	found := chat(t, ts.URL, "find records in Finance")
	if !strings.HasPrefix(found.Message, "Found 20 matching records") {
		t.Fatalf("search: unexpected message %q", found.Message)
	}

	analyze := chat(t, ts.URL, "compare sectors")
	dist, ok := analyze.Data.(map[string]interface{})
	if !ok || len(dist) != 5 {
		t.Fatalf("analyze: expected five sectors, got %v", analyze.Data)
	}
	if analyze.ChartType != "pie" {
		t.Fatalf("analyze: expected pie chart, got %q", analyze.ChartType)
	}

	if n := atomic.LoadInt32(&fake.calls); n != 0 {
		t.Fatalf("expected no model calls for known intents, got %d", n)
	}
}

// TestE2E_modelFallbackIsCached asks the same question twice; the second
// answer comes from the cache.
func TestE2E_modelFallbackIsCached(t *testing.T) {
	ts, fake := setupServer(t)

	first := chat(t, ts.URL, "tell me about database backups")
	if !first.Success || first.Message != "Backups run nightly." {
		t.Fatalf("unexpected model reply: %+v", first)
	}
	second := chat(t, ts.URL, "Tell me about DATABASE backups?")
	if second.Message != first.Message {
		t.Fatalf("expected cached reply, got %q", second.Message)
	}
	if n := atomic.LoadInt32(&fake.calls); n != 1 {
		t.Fatalf("expected one model call, got %d", n)
	}

	offTopic := chat(t, ts.URL, "tell me a joke please")
	if !strings.Contains(offTopic.Message, "specialized assistant") {
		t.Fatalf("expected capability message, got %q", offTopic.Message)
	}
	if n := atomic.LoadInt32(&fake.calls); n != 1 {
		t.Fatalf("off-topic message reached the model")
	}
}

func TestE2E_modelFailureApologizes(t *testing.T) {
	ts, fake := setupServer(t)
	fake.fail.Store(true)

	got := chat(t, ts.URL, "summarize the database")
	if got.Success {
		t.Fatalf("expected success=false on model failure")
	}
	if !strings.HasPrefix(got.Message, "Sorry") {
		t.Fatalf("expected apology, got %q", got.Message)
	}
}

func TestE2E_frontEnd(t *testing.T) {
	ts, _ := setupServer(t)

	for _, path := range []string{"/", "/app.js", "/style.css"} {
		res, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		body, _ := io.ReadAll(res.Body)
		res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("%s: unexpected status %d", path, res.StatusCode)
		}
		if len(body) == 0 {
			t.Fatalf("%s: empty body", path)
		}
	}
}
