package research

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

// OllamaResearch answers research prompts through a locally-hosted Ollama
// server. A weighted semaphore bounds concurrent requests so a batch run
// cannot overload the model host.
type OllamaResearch struct {
	model   string
	reqLock *semaphore.Weighted
	client  *api.Client
}

// NewOllamaResearchParams configures an OllamaResearch client.
type NewOllamaResearchParams struct {
	Model                 string
	BaseURL               string
	APIKey                string
	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so the original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

func NewOllamaResearch(params NewOllamaResearchParams) (*OllamaResearch, error) {
	var (
		u   *url.URL
		err error
	)
	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	}

	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: map[string]string{
				"Authorization": "Bearer " + params.APIKey,
			},
			rt: http.DefaultTransport,
		},
	}

	maxConcurrent := params.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	return &OllamaResearch{
		model:   params.Model,
		reqLock: semaphore.NewWeighted(maxConcurrent),
		client:  api.NewClient(u, httpClient),
	}, nil
}

// Ask sends a single-turn prompt and returns the assistant text.
func (c *OllamaResearch) Ask(ctx context.Context, prompt string) (string, error) {
	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.reqLock.Release(1)

	stream := false
	req := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
		Stream:  &stream,
		Options: map[string]any{"temperature": 0.3},
	}

	var content string
	if err := c.client.Chat(ctx, req, func(cr api.ChatResponse) error {
		content += cr.Message.Content
		return nil
	}); err != nil {
		return "", err
	}
	return content, nil
}
