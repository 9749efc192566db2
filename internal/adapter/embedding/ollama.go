package embedding

import (
	"context"
	"fmt"
	"net/http"
)

// OllamaProvider calls a self-hosted ollama instance. No API key and no
// rate limiter: the instance is assumed to be on the local network.
type OllamaProvider struct {
	BaseURL string
	Model   string
	client  *http.Client
}

func NewOllamaProvider(baseURL, model string, client *http.Client) *OllamaProvider {
	return &OllamaProvider{
		BaseURL: baseURL,
		Model:   model,
		client:  client,
	}
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (p *OllamaProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var resp ollamaEmbedResponse
	err := postJSON(ctx, p.client,
		fmt.Sprintf("%s/api/embed", p.BaseURL),
		nil,
		ollamaEmbedRequest{Model: p.Model, Input: texts},
		&resp,
	)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	return resp.Embeddings, nil
}

func (p *OllamaProvider) Name() string {
	return "ollama/" + p.Model
}

var _ Provider = (*OllamaProvider)(nil)
