package embedding

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type GeminiProvider struct {
	BaseURL string
	Model   string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

func NewGeminiProvider(apiKey, model string, client *http.Client, limiter *rate.Limiter) *GeminiProvider {
	return &GeminiProvider{
		BaseURL: defaultGeminiBaseURL,
		Model:   model,
		apiKey:  apiKey,
		client:  client,
		limiter: limiter,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiEmbedRequest struct {
	Model   string        `json:"model"`
	Content geminiContent `json:"content"`
}

type geminiBatchRequest struct {
	Requests []geminiEmbedRequest `json:"requests"`
}

type geminiBatchResponse struct {
	Embeddings []struct {
		Values []float64 `json:"values"`
	} `json:"embeddings"`
}

func (p *GeminiProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := waitLimiter(ctx, p.limiter); err != nil {
		return nil, err
	}

	reqs := make([]geminiEmbedRequest, len(texts))
	for i, text := range texts {
		reqs[i] = geminiEmbedRequest{
			Model:   "models/" + p.Model,
			Content: geminiContent{Parts: []geminiPart{{Text: text}}},
		}
	}

	var resp geminiBatchResponse
	err := postJSON(ctx, p.client,
		fmt.Sprintf("%s/models/%s:batchEmbedContents?key=%s", p.BaseURL, p.Model, p.apiKey),
		nil,
		geminiBatchRequest{Requests: reqs},
		&resp,
	)
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		vectors[i] = toFloat32(e.Values)
	}
	return vectors, nil
}

func (p *GeminiProvider) Name() string {
	return "gemini/" + p.Model
}

var _ Provider = (*GeminiProvider)(nil)
