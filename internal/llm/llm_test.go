package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeefy/recordchat/internal/cache"
)

type fakeGenerator struct {
	calls int32
	text  string
	err   error
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.text, f.err
}

func TestIsRelevant(t *testing.T) {
	assert.True(t, IsRelevant("Which SECTOR is biggest?"))
	assert.True(t, IsRelevant("tell me about healthcare"))
	assert.False(t, IsRelevant("what is the weather like"))
	assert.False(t, IsRelevant("records"), "only the exact keyword counts")
}

func TestRespond_IrrelevantReturnsCapabilities(t *testing.T) {
	gen := &fakeGenerator{text: "unused"}
	a := NewAssistant(gen, Config{})
	resp := a.Respond(context.Background(), "tell me a joke")
	assert.True(t, resp.Success)
	assert.Equal(t, CapabilityMessage(), resp.Message)
	assert.Nil(t, resp.Data)
	assert.Equal(t, int32(0), atomic.LoadInt32(&gen.calls))
	for _, c := range Capabilities {
		assert.Contains(t, resp.Message, "• "+c)
	}
}

func TestRespond_FailureDegradesToApology(t *testing.T) {
	a := NewAssistant(&fakeGenerator{err: errors.New("connection refused")}, Config{})
	resp := a.Respond(context.Background(), "summarize the data")
	assert.False(t, resp.Success)
	assert.Equal(t, apologyMessage, resp.Message)
}

func TestRespond_CachesSuccessfulReplies(t *testing.T) {
	gen := &fakeGenerator{text: "There are five sectors."}
	mem := cache.NewMemory(time.Hour)
	defer mem.Close()
	a := NewAssistant(gen, Config{Cache: mem, CacheTTL: time.Minute, KeyPrefix: "mistral"})
	ctx := context.Background()

	first := a.Respond(ctx, "How many sectors are in the data?")
	second := a.Respond(ctx, "how many sectors are in the data")
	assert.Equal(t, "There are five sectors.", first.Message)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&gen.calls))
}

func TestRespond_DoesNotCacheFailures(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("boom")}
	mem := cache.NewMemory(time.Hour)
	defer mem.Close()
	a := NewAssistant(gen, Config{Cache: mem, CacheTTL: time.Minute})
	ctx := context.Background()
	a.Respond(ctx, "show data")
	a.Respond(ctx, "show data")
	assert.Equal(t, int32(2), atomic.LoadInt32(&gen.calls))
	assert.Equal(t, 0, mem.Len())
}

func TestOllamaGenerate(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(generateResponse{Response: "Records are grouped by sector."})
	}))
	defer srv.Close()

	o := NewOllama(srv.URL+"/", "mistral", time.Second)
	text, err := o.Generate(context.Background(), Prompt("analyze the data"))
	require.NoError(t, err)
	assert.Equal(t, "Records are grouped by sector.", text)
	assert.Equal(t, "mistral", got.Model)
	assert.False(t, got.Stream)
	assert.True(t, strings.Contains(got.Prompt, "The user asks: analyze the data"))
}

func TestOllamaGenerateErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()
	_, err := NewOllama(srv.URL, "mistral", time.Second).Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestEnsureModelTriggersPull(t *testing.T) {
	var pulled int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(ollamaTagsResponse{Models: []struct {
				Name  string `json:"name"`
				Model string `json:"model"`
			}{{Name: "other-model"}}})
		case "/api/pull":
			atomic.AddInt32(&pulled, 1)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"success"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	require.NoError(t, NewOllama(srv.URL, "mistral", time.Second).EnsureModel(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&pulled))
}

func TestEnsureModelPullOutlastsGenerateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[]}`))
		case "/api/pull":
			time.Sleep(300 * time.Millisecond)
			_, _ = w.Write([]byte(`{"status":"success"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	o := NewOllama(srv.URL, "mistral", 100*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	require.NoError(t, o.EnsureModel(ctx))
}

func TestEnsureModelPullStopsAtContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[]}`))
		case "/api/pull":
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	o := NewOllama(srv.URL, "mistral", time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := o.EnsureModel(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestEnsureModelSkipsPullWhenPresent(t *testing.T) {
	var pulled int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(ollamaTagsResponse{Models: []struct {
				Name  string `json:"name"`
				Model string `json:"model"`
			}{{Name: "mistral:latest"}}})
		case "/api/pull":
			atomic.AddInt32(&pulled, 1)
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	require.NoError(t, NewOllama(srv.URL, "mistral", time.Second).EnsureModel(context.Background()))
	assert.Equal(t, int32(0), atomic.LoadInt32(&pulled))
}

func TestSameModel(t *testing.T) {
	assert.True(t, sameModel("mistral", "mistral"))
	assert.True(t, sameModel("mistral:latest", "mistral"))
	assert.False(t, sameModel("mistral:7b", "mistral"))
	assert.False(t, sameModel("mistral:latest", "mistral:7b"))
	assert.False(t, sameModel("", "mistral"))
}
