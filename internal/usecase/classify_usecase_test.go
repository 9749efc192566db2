package usecase_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hazmat-classifier/internal/adapter/embedding"
	"hazmat-classifier/internal/domain"
	"hazmat-classifier/internal/usecase"
	"hazmat-classifier/internal/usecase/pipeline"
)

const testDim = 256

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// fakeStore is an in-memory CandidateStore whose embeddings are produced
// by the deterministic local embedder, so query and candidate vectors live
// in the same space.
type fakeStore struct {
	entries   []domain.CandidateEntry
	loadErr   error
	loadCalls atomic.Int32
}

func (s *fakeStore) LoadCandidates(_ context.Context) ([]domain.CandidateEntry, error) {
	s.loadCalls.Add(1)
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.entries, nil
}

func (s *fakeStore) QueryByExactField(_ context.Context, source domain.CandidateSource, field, value string) (*domain.CandidateEntry, error) {
	for i := range s.entries {
		e := &s.entries[i]
		if e.Source != source {
			continue
		}
		var got string
		switch field {
		case "sku":
			got = e.Metadata.SKU
		case "un_number":
			got = e.Metadata.UNNumber
		}
		if got == value {
			return e, nil
		}
	}
	return nil, nil
}

type fakeHistory struct {
	counts   map[string]int
	recorded atomic.Int32
}

func (h *fakeHistory) CountAgreeing(_ context.Context, _, unNumber string) (int, error) {
	return h.counts[unNumber], nil
}

func (h *fakeHistory) Record(_ context.Context, _, _ string, _ float64) error {
	h.recorded.Add(1)
	return nil
}

func embedText(t *testing.T, text string) []float32 {
	t.Helper()
	vecs, err := embedding.NewLocalProvider(testDim).Embed(context.Background(), []string{text})
	require.NoError(t, err)
	return vecs[0]
}

func knowledgeBase(t *testing.T) []domain.CandidateEntry {
	t.Helper()
	mk := func(id string, source domain.CandidateSource, text string, md domain.CandidateMetadata) domain.CandidateEntry {
		return domain.CandidateEntry{
			ID: id, Source: source, Text: text,
			Embedding: embedText(t, text),
			Metadata:  md,
		}
	}
	return []domain.CandidateEntry{
		mk("ferric-chloride", domain.SourceRegulatoryTable,
			"ferric chloride solution corrosive liquid",
			domain.CandidateMetadata{
				UNNumber: "UN2582", BaseName: "ferric chloride",
				HazardClass: "8", PackingGroup: domain.PackingGroupIII, ERGGuide: "154",
			}),
		mk("propionic-acid", domain.SourceRegulatoryTable,
			"propionic acid with not less than 10% and less than 90% acid",
			domain.CandidateMetadata{
				UNNumber: "UN1848", BaseName: "propionic acid",
				HazardClass: "8", PackingGroup: domain.PackingGroupIII, ERGGuide: "132",
			}),
		mk("butyric-acid", domain.SourceRegulatoryTable,
			"butyric acid corrosive liquid",
			domain.CandidateMetadata{
				UNNumber: "UN2820", BaseName: "butyric acid",
				HazardClass: "8", PackingGroup: domain.PackingGroupIII, ERGGuide: "153",
			}),
		mk("borax-cleaner", domain.SourceRegulatoryTable,
			"boric acid powder technical grade",
			domain.CandidateMetadata{
				UNNumber: "UN3261", BaseName: "sodium tetraborate",
				HazardClass: "8", PackingGroup: domain.PackingGroupIII,
			}),
		mk("verified-caustic", domain.SourceVerifiedProduct,
			"industrial caustic cleaner verified",
			domain.CandidateMetadata{
				UNNumber: "UN1824", BaseName: "sodium hydroxide solution",
				HazardClass: "8", PackingGroup: domain.PackingGroupII,
				ERGGuide: "154", SKU: "SKU-1824",
			}),
		mk("erg-2582", domain.SourceEmergencyGuide,
			"emergency response guide for ferric chloride solution",
			domain.CandidateMetadata{UNNumber: "UN2582", ERGGuide: "154"}),
	}
}

func newUsecase(t *testing.T, store *fakeStore, history domain.HistoricalAgreement) usecase.ClassifyUsecase {
	t.Helper()
	logger := testLogger()
	index := pipeline.NewIndex(store, logger)
	encoder := embedding.NewChain(logger, testDim)
	return usecase.NewClassifyUsecase(index, store, encoder, history, usecase.ClassifyConfig{}, logger)
}

func TestExecute_NonHazardExemption(t *testing.T) {
	store := &fakeStore{entries: knowledgeBase(t)}
	uc := newUsecase(t, store, nil)

	result, err := uc.Execute(context.Background(), usecase.ClassifyInput{ProductName: "Acetic Acid 10%"})
	require.NoError(t, err)

	assert.Empty(t, result.UNNumber)
	assert.Empty(t, result.HazardClass)
	assert.Empty(t, result.PackingGroup)
	assert.GreaterOrEqual(t, result.Confidence, 0.9)
	assert.Equal(t, domain.SourceNonHazardRule, result.Source)
	assert.Contains(t, result.Explanation, "10%")
	assert.Equal(t, int32(0), store.loadCalls.Load(), "exemptions must not touch the index")
}

func TestExecute_AceticAcid80PercentIsRegulated(t *testing.T) {
	store := &fakeStore{entries: knowledgeBase(t)}
	uc := newUsecase(t, store, nil)

	result, err := uc.Execute(context.Background(), usecase.ClassifyInput{ProductName: "Acetic Acid 80%"})
	require.NoError(t, err)

	assert.Equal(t, "UN2789", result.UNNumber)
	assert.Equal(t, "8", result.HazardClass)
}

func TestExecute_DirectRuleShortCircuit(t *testing.T) {
	store := &fakeStore{entries: knowledgeBase(t)}
	uc := newUsecase(t, store, nil)

	result, err := uc.Execute(context.Background(), usecase.ClassifyInput{ProductName: "Sulfuric Acid 98%"})
	require.NoError(t, err)

	assert.Equal(t, "UN1830", result.UNNumber)
	assert.Equal(t, "8", result.HazardClass)
	assert.GreaterOrEqual(t, result.Confidence, 0.9)
	assert.Equal(t, domain.SourceDirectRule, result.Source)
	assert.Equal(t, int32(0), store.loadCalls.Load(), "direct rules must resolve before retrieval")
}

func TestExecute_VerifiedRecordPrecedence(t *testing.T) {
	store := &fakeStore{entries: knowledgeBase(t)}
	uc := newUsecase(t, store, nil)

	result, err := uc.Execute(context.Background(), usecase.ClassifyInput{
		SKU:         "SKU-1824",
		ProductName: "mystery industrial blend",
	})
	require.NoError(t, err)

	assert.Equal(t, "UN1824", result.UNNumber)
	assert.Equal(t, 1.0, result.Confidence)
	assert.Equal(t, domain.SourceVerifiedRecord, result.Source)
}

func TestExecute_RetrievalMatch(t *testing.T) {
	store := &fakeStore{entries: knowledgeBase(t)}
	uc := newUsecase(t, store, nil)

	result, err := uc.Execute(context.Background(), usecase.ClassifyInput{ProductName: "Ferric Chloride Solution 40%"})
	require.NoError(t, err)

	assert.Equal(t, "UN2582", result.UNNumber)
	assert.Equal(t, "8", result.HazardClass)
	assert.Equal(t, domain.PackingGroupIII, result.PackingGroup)
	assert.Equal(t, "154", result.ERGGuide)
	assert.Equal(t, domain.SourceVectorMatch, result.Source)
	assert.NotEmpty(t, result.Citations)
	assert.GreaterOrEqual(t, result.Confidence, 0.3)
}

func TestExecute_GatingFallback(t *testing.T) {
	// "boric acid" detects the acid family, but the only close entry has a
	// base name outside the acid pattern: the gated search starves and the
	// ungated fallback must still find it.
	store := &fakeStore{entries: []domain.CandidateEntry{
		{
			ID:        "borax-cleaner",
			Source:    domain.SourceRegulatoryTable,
			Text:      "boric acid powder technical grade",
			Embedding: embedText(t, "boric acid powder technical grade"),
			Metadata: domain.CandidateMetadata{
				UNNumber: "UN3261", BaseName: "sodium tetraborate",
				HazardClass: "9", PackingGroup: domain.PackingGroupIII,
			},
		},
	}}
	uc := newUsecase(t, store, nil)

	result, err := uc.Execute(context.Background(), usecase.ClassifyInput{ProductName: "boric acid powder technical grade"})
	require.NoError(t, err)

	assert.Equal(t, "UN3261", result.UNNumber, "gating must never permanently hide a valid answer")
}

func TestExecute_NoMatchFloor(t *testing.T) {
	store := &fakeStore{entries: knowledgeBase(t)}
	uc := newUsecase(t, store, nil)

	result, err := uc.Execute(context.Background(), usecase.ClassifyInput{ProductName: "gibberish-not-a-chemical-xyz123"})
	require.NoError(t, err, "no match is a terminal state, not a failure")

	assert.Empty(t, result.UNNumber)
	assert.Empty(t, result.HazardClass)
	assert.Empty(t, result.PackingGroup)
	assert.InDelta(t, 0.1, result.Confidence, 1e-9)
	assert.Equal(t, domain.SourceNoMatch, result.Source)
}

func TestExecute_IndexUnavailablePropagates(t *testing.T) {
	store := &fakeStore{loadErr: errors.New("connection refused")}
	uc := newUsecase(t, store, nil)

	_, err := uc.Execute(context.Background(), usecase.ClassifyInput{ProductName: "ferric chloride solution"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
}

func TestExecute_Idempotent(t *testing.T) {
	store := &fakeStore{entries: knowledgeBase(t)}
	uc := newUsecase(t, store, nil)

	input := usecase.ClassifyInput{ProductName: "Propionic Acid 50% solution"}
	first, err := uc.Execute(context.Background(), input)
	require.NoError(t, err)
	second, err := uc.Execute(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestExecute_NullInvariant(t *testing.T) {
	store := &fakeStore{entries: knowledgeBase(t)}
	uc := newUsecase(t, store, nil)

	queries := []string{
		"Acetic Acid 5%",
		"Sulfuric Acid",
		"Ferric Chloride Solution",
		"gibberish-not-a-chemical-xyz123",
		"distilled water",
	}
	for _, q := range queries {
		result, err := uc.Execute(context.Background(), usecase.ClassifyInput{ProductName: q})
		require.NoError(t, err, q)
		if result.UNNumber == "" {
			assert.Empty(t, result.HazardClass, q)
			assert.Empty(t, result.PackingGroup, q)
		} else {
			assert.NotEmpty(t, result.HazardClass, q)
		}
	}
}

func TestExecute_UNLessTopCandidateStaysUnclassified(t *testing.T) {
	// A regulation excerpt without a UN number may win retrieval outright,
	// but it cannot become a classification: the result must be a clean
	// no-match, never an empty UN number with a populated hazard class.
	store := &fakeStore{entries: []domain.CandidateEntry{
		{
			ID:        "excerpt-corrosives",
			Source:    domain.SourceRegulatoryTable,
			Text:      "industrial descaler concentrate",
			Embedding: embedText(t, "industrial descaler concentrate"),
			Metadata: domain.CandidateMetadata{
				HazardClass: "8", PackingGroup: domain.PackingGroupII,
			},
		},
	}}
	uc := newUsecase(t, store, nil)

	result, err := uc.Execute(context.Background(), usecase.ClassifyInput{ProductName: "industrial descaler concentrate"})
	require.NoError(t, err)

	assert.Empty(t, result.UNNumber)
	assert.Empty(t, result.HazardClass)
	assert.Empty(t, result.PackingGroup)
	assert.Equal(t, domain.SourceNoMatch, result.Source)
	assert.InDelta(t, 0.1, result.Confidence, 1e-9)
}

func TestExecute_UNLessTopYieldsToClassifiableRunnerUp(t *testing.T) {
	// When the best-scoring entry has no UN number but a lower-ranked one
	// does, the classification comes from the best entry that carries one.
	store := &fakeStore{entries: []domain.CandidateEntry{
		{
			ID:        "excerpt-descaler",
			Source:    domain.SourceRegulatoryTable,
			Text:      "industrial descaler concentrate",
			Embedding: embedText(t, "industrial descaler concentrate"),
			Metadata: domain.CandidateMetadata{
				HazardClass: "8",
			},
		},
		{
			ID:        "corrosive-nos",
			Source:    domain.SourceRegulatoryTable,
			Text:      "industrial descaler concentrate corrosive liquid acidic inorganic",
			Embedding: embedText(t, "industrial descaler concentrate corrosive liquid acidic inorganic"),
			Metadata: domain.CandidateMetadata{
				UNNumber: "UN3264", BaseName: "corrosive liquid acidic inorganic",
				HazardClass: "8", PackingGroup: domain.PackingGroupIII, ERGGuide: "154",
			},
		},
	}}
	uc := newUsecase(t, store, nil)

	result, err := uc.Execute(context.Background(), usecase.ClassifyInput{ProductName: "industrial descaler concentrate"})
	require.NoError(t, err)

	assert.Equal(t, "UN3264", result.UNNumber)
	assert.Equal(t, "8", result.HazardClass)
	assert.Equal(t, domain.PackingGroupIII, result.PackingGroup)
}

func TestExecute_HistoricalAgreementBoost(t *testing.T) {
	store := &fakeStore{entries: knowledgeBase(t)}
	history := &fakeHistory{counts: map[string]int{"UN1848": 4}}
	uc := newUsecase(t, store, history)

	query := "Propionic Acid 50% solution"
	withHistory, err := uc.Execute(context.Background(), usecase.ClassifyInput{ProductName: query})
	require.NoError(t, err)
	require.Equal(t, "UN1848", withHistory.UNNumber)

	ucNoHistory := newUsecase(t, &fakeStore{entries: knowledgeBase(t)}, nil)
	without, err := ucNoHistory.Execute(context.Background(), usecase.ClassifyInput{ProductName: query})
	require.NoError(t, err)

	assert.Greater(t, withHistory.Confidence, without.Confidence)
	assert.Contains(t, withHistory.Explanation, "prior classifications agree")
}
