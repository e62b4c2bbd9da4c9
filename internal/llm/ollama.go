package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Generator produces free text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Ollama talks to an Ollama HTTP endpoint. baseURL should be like
// "http://localhost:11434".
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client

	// pullClient has no timeout; pulls are bounded by their context only.
	pullClient *http.Client
}

func NewOllama(baseURL, model string, timeout time.Duration) *Ollama {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Ollama{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		client:     &http.Client{Timeout: timeout},
		pullClient: &http.Client{},
	}
}

// BackendName identifies the ollama backend.
func (o *Ollama) BackendName() string { return "ollama" }

// Model is the model name passed with every request.
func (o *Ollama) Model() string { return o.model }

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	var out generateResponse
	err := o.postJSON(ctx, o.client, "/api/generate", generateRequest{Model: o.model, Prompt: prompt}, &out)
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama generate: %s", out.Error)
	}
	if strings.TrimSpace(out.Response) == "" {
		return "", errors.New("ollama generate: empty response")
	}
	return out.Response, nil
}

type ollamaTagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

type pullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

// EnsureModel pulls the configured model when the server does not list it.
// The generate timeout does not apply to the pull, which can take minutes;
// ctx alone bounds it.
func (o *Ollama) EnsureModel(ctx context.Context) error {
	present, err := o.hasModel(ctx)
	if err != nil {
		return err
	}
	if present {
		return nil
	}
	var status struct {
		Status string `json:"status"`
	}
	if err := o.postJSON(ctx, o.pullClient, "/api/pull", pullRequest{Name: o.model}, &status); err != nil {
		return fmt.Errorf("ollama pull %s: %w", o.model, err)
	}
	return nil
}

func (o *Ollama) hasModel(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return false, err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("ollama tags: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("ollama tags: status %d: %s", resp.StatusCode, string(data))
	}
	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false, fmt.Errorf("ollama tags: %w", err)
	}
	for _, m := range tags.Models {
		if sameModel(m.Name, o.model) || sameModel(m.Model, o.model) {
			return true, nil
		}
	}
	return false, nil
}

// sameModel treats "mistral" and "mistral:latest" as the same model.
func sameModel(listed, want string) bool {
	if listed == "" {
		return false
	}
	if listed == want {
		return true
	}
	if !strings.Contains(want, ":") {
		return listed == want+":latest"
	}
	return false
}

func (o *Ollama) postJSON(ctx context.Context, client *http.Client, path string, body, out interface{}) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return json.Unmarshal(data, out)
}
