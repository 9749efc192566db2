package embedding

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

type OpenAIProvider struct {
	BaseURL string
	Model   string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

func NewOpenAIProvider(apiKey, model string, client *http.Client, limiter *rate.Limiter) *OpenAIProvider {
	return &OpenAIProvider{
		BaseURL: defaultOpenAIBaseURL,
		Model:   model,
		apiKey:  apiKey,
		client:  client,
		limiter: limiter,
	}
}

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := waitLimiter(ctx, p.limiter); err != nil {
		return nil, err
	}

	var resp openAIEmbedResponse
	err := postJSON(ctx, p.client,
		fmt.Sprintf("%s/embeddings", p.BaseURL),
		map[string]string{"Authorization": "Bearer " + p.apiKey},
		openAIEmbedRequest{Model: p.Model, Input: texts},
		&resp,
	)
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}

	vectors := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("openai embed: index %d out of range", d.Index)
		}
		vectors[d.Index] = toFloat32(d.Embedding)
	}
	return vectors, nil
}

func (p *OpenAIProvider) Name() string {
	return "openai/" + p.Model
}

var _ Provider = (*OpenAIProvider)(nil)
