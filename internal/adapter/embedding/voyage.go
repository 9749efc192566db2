package embedding

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

const defaultVoyageBaseURL = "https://api.voyageai.com/v1"

type VoyageProvider struct {
	BaseURL string
	Model   string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

func NewVoyageProvider(apiKey, model string, client *http.Client, limiter *rate.Limiter) *VoyageProvider {
	return &VoyageProvider{
		BaseURL: defaultVoyageBaseURL,
		Model:   model,
		apiKey:  apiKey,
		client:  client,
		limiter: limiter,
	}
}

type voyageEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type voyageEmbedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (p *VoyageProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := waitLimiter(ctx, p.limiter); err != nil {
		return nil, err
	}

	var resp voyageEmbedResponse
	err := postJSON(ctx, p.client,
		fmt.Sprintf("%s/embeddings", p.BaseURL),
		map[string]string{"Authorization": "Bearer " + p.apiKey},
		voyageEmbedRequest{Model: p.Model, Input: texts},
		&resp,
	)
	if err != nil {
		return nil, fmt.Errorf("voyage embed: %w", err)
	}

	vectors := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("voyage embed: index %d out of range", d.Index)
		}
		vectors[d.Index] = toFloat32(d.Embedding)
	}
	return vectors, nil
}

func (p *VoyageProvider) Name() string {
	return "voyage/" + p.Model
}

var _ Provider = (*VoyageProvider)(nil)
