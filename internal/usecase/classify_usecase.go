package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"hazmat-classifier/internal/domain"
	"hazmat-classifier/internal/usecase/pipeline"
)

// ClassifyInput defines the input parameters for Execute.
type ClassifyInput struct {
	SKU         string
	ProductName string
}

// ClassifyUsecase maps a free-text product description to a regulatory
// classification. Execute never fails on "no match"; the only error it
// returns is domain.ErrIndexUnavailable.
//
// Curated rules are checked before the verified-record lookup: a SKU's
// verified record decides only when the product name matches neither an
// exemption nor a direct rule. Both layers are human-maintained, so the
// rule tables win on conflict.
type ClassifyUsecase interface {
	Execute(ctx context.Context, input ClassifyInput) (domain.Classification, error)
}

// ClassifyConfig holds retrieval-stage tuning.
type ClassifyConfig struct {
	SearchLimit int
	Alpha       float64
	RerankTopK  int
	// MinScore is the hybrid-score floor below which the top candidate is
	// treated as "nothing close" rather than a classification.
	MinScore float64
}

type classifyUsecase struct {
	index   *pipeline.Index
	store   domain.CandidateStore
	encoder domain.VectorEncoder
	history domain.HistoricalAgreement // optional, may be nil
	cfg     ClassifyConfig
	floors  pipeline.FamilyFloors
	logger  *slog.Logger
}

// NewClassifyUsecase creates a new ClassifyUsecase.
func NewClassifyUsecase(
	index *pipeline.Index,
	store domain.CandidateStore,
	encoder domain.VectorEncoder,
	history domain.HistoricalAgreement,
	cfg ClassifyConfig,
	logger *slog.Logger,
) ClassifyUsecase {
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 10
	}
	if cfg.Alpha <= 0 || cfg.Alpha > 1 {
		cfg.Alpha = 0.6
	}
	if cfg.RerankTopK <= 0 {
		cfg.RerankTopK = 5
	}
	if cfg.MinScore <= 0 {
		cfg.MinScore = 0.35
	}
	return &classifyUsecase{
		index:   index,
		store:   store,
		encoder: encoder,
		history: history,
		cfg:     cfg,
		floors:  pipeline.DefaultFamilyFloors(),
		logger:  logger,
	}
}

func (u *classifyUsecase) Execute(ctx context.Context, input ClassifyInput) (domain.Classification, error) {
	classificationID := uuid.New().String()
	start := time.Now()

	qc := pipeline.BuildQueryContext(input.ProductName)

	// Rule layer first: auditable short-circuits for the best-understood
	// cases before any statistical retrieval.
	if rule := pipeline.MatchNonHazardRule(qc.Normalized, qc.Entities); rule != nil {
		result := pipeline.NonHazardResult(rule)
		u.logResult(classificationID, qc, result, start)
		return result, nil
	}

	if rule := pipeline.MatchDirectRule(qc.Normalized); rule != nil {
		result := pipeline.DirectRuleResult(rule)
		u.logResult(classificationID, qc, result, start)
		return result, nil
	}

	if input.SKU != "" {
		if result, ok := u.verifiedRecord(ctx, input.SKU); ok {
			u.logResult(classificationID, qc, result, start)
			return result, nil
		}
	}

	if err := u.index.Load(ctx); err != nil {
		return domain.Classification{}, err
	}

	// Embed both query variants in one batch: the expanded variant carries
	// synonym clusters for recall, the chemical-only variant is the precise
	// form preferred for matching.
	vectors, err := u.encoder.Encode(ctx, []string{qc.ChemicalOnly, qc.Expanded})
	if err != nil || len(vectors) != 2 {
		// The provider chain ends in an infallible local embedder, so this
		// is effectively unreachable; degrade to no-match rather than fail.
		u.logger.Error("query_embedding_failed",
			slog.String("classification_id", classificationID),
			slog.Any("error", err))
		result := pipeline.NoMatchResult()
		u.logResult(classificationID, qc, result, start)
		return result, nil
	}

	results := u.search(classificationID, qc, vectors)
	if len(results) == 0 || results[0].Score < u.cfg.MinScore {
		result := pipeline.NoMatchResult()
		u.logResult(classificationID, qc, result, start)
		return result, nil
	}

	reranked := pipeline.Rerank(qc, results)
	topK := reranked
	if len(topK) > u.cfg.RerankTopK {
		topK = topK[:u.cfg.RerankTopK]
	}

	// A classification needs a UN number. UN-less entries (regulation
	// excerpts) may rank, but only the best candidate that carries one can
	// become the result; without any, the query stays unclassified.
	top, ok := firstClassifiable(topK)
	if !ok {
		result := pipeline.NoMatchResult()
		u.logResult(classificationID, qc, result, start)
		return result, nil
	}

	confidence := pipeline.Confidence(top, topK, qc.Family, u.floors)
	result := u.buildResult(qc, top, topK, confidence)
	u.augment(ctx, classificationID, qc, &result)
	u.recordHistory(ctx, qc, result)

	u.logResult(classificationID, qc, result, start)
	return result, nil
}

// verifiedRecord checks for a human-curated record by SKU. Lookup failures
// degrade to "no verified record" rather than failing the pipeline.
func (u *classifyUsecase) verifiedRecord(ctx context.Context, sku string) (domain.Classification, bool) {
	entry, err := u.store.QueryByExactField(ctx, domain.SourceVerifiedProduct, "sku", sku)
	if err != nil {
		u.logger.Warn("verified_record_lookup_failed",
			slog.String("sku", sku),
			slog.String("error", err.Error()))
		return domain.Classification{}, false
	}
	if entry == nil || entry.Metadata.UNNumber == "" {
		return domain.Classification{}, false
	}
	return domain.Classification{
		UNNumber:           entry.Metadata.UNNumber,
		ProperShippingName: entry.Metadata.BaseName,
		HazardClass:        entry.Metadata.HazardClass,
		PackingGroup:       entry.Metadata.PackingGroup,
		ERGGuide:           entry.Metadata.ERGGuide,
		Confidence:         1.0,
		Source:             domain.SourceVerifiedRecord,
		Explanation:        fmt.Sprintf("verified product record for SKU %s", sku),
		Citations:          []string{entry.ID},
	}, true
}

// search runs the gated hybrid search for both query vectors and merges by
// best score per entry. A starved gate falls back to the ungated search:
// the family filter is a precision aid, never a hard requirement.
func (u *classifyUsecase) search(classificationID string, qc domain.QueryContext, vectors [][]float32) []pipeline.ScoredCandidate {
	opts := pipeline.SearchOptions{
		K:       u.cfg.SearchLimit,
		Alpha:   u.cfg.Alpha,
		Filters: familyFilters(qc.Family),
	}

	results := u.multiSearch(qc, vectors, opts)
	if len(results) == 0 && len(opts.Filters) > 0 {
		u.logger.Info("gated_search_starved",
			slog.String("classification_id", classificationID),
			slog.String("family", qc.Family.Family))
		opts.Filters = nil
		results = u.multiSearch(qc, vectors, opts)
	}
	return results
}

func (u *classifyUsecase) multiSearch(qc domain.QueryContext, vectors [][]float32, opts pipeline.SearchOptions) []pipeline.ScoredCandidate {
	best := make(map[string]pipeline.ScoredCandidate)
	for _, vec := range vectors {
		for _, res := range u.index.Search(vec, qc.ChemicalOnly, opts) {
			if prev, ok := best[res.Entry.ID]; !ok || res.Score > prev.Score {
				best[res.Entry.ID] = res
			}
		}
	}

	merged := make([]pipeline.ScoredCandidate, 0, len(best))
	for _, res := range best {
		merged = append(merged, res)
	}
	// Re-rank the merged set with the deterministic tie-break used by the
	// index itself, then cut to K.
	merged = pipeline.SortCandidates(merged)
	if len(merged) > opts.K {
		merged = merged[:opts.K]
	}
	return merged
}

// firstClassifiable returns the highest-ranked candidate with a UN number.
func firstClassifiable(topK []pipeline.ScoredCandidate) (pipeline.ScoredCandidate, bool) {
	for _, c := range topK {
		if c.Entry.Metadata.UNNumber != "" {
			return c, true
		}
	}
	return pipeline.ScoredCandidate{}, false
}

func familyFilters(family *domain.FamilyFilter) []pipeline.MetadataFilter {
	if family == nil {
		return nil
	}
	var filters []pipeline.MetadataFilter
	if family.BaseNamePattern != "" {
		filters = append(filters, pipeline.MetadataFilter{
			Field:   "base_name",
			Pattern: regexp.MustCompile(family.BaseNamePattern),
		})
	}
	if family.HazardClassPattern != "" {
		filters = append(filters, pipeline.MetadataFilter{
			Field:   "hazard_class",
			Pattern: regexp.MustCompile(family.HazardClassPattern),
		})
	}
	return filters
}

func (u *classifyUsecase) buildResult(qc domain.QueryContext, top pipeline.ScoredCandidate, topK []pipeline.ScoredCandidate, confidence float64) domain.Classification {
	agreeing := 0
	for _, c := range topK {
		if c.Entry.Metadata.UNNumber == top.Entry.Metadata.UNNumber {
			agreeing++
		}
	}

	citations := make([]string, 0, len(topK))
	for _, c := range topK {
		citations = append(citations, c.Entry.ID)
	}

	name := top.Entry.Metadata.BaseName
	if name == "" {
		name = top.Entry.Text
	}

	return domain.Classification{
		UNNumber:           top.Entry.Metadata.UNNumber,
		ProperShippingName: name,
		HazardClass:        top.Entry.Metadata.HazardClass,
		PackingGroup:       top.Entry.Metadata.PackingGroup,
		ERGGuide:           top.Entry.Metadata.ERGGuide,
		Confidence:         confidence,
		Source:             domain.SourceVectorMatch,
		Explanation: fmt.Sprintf("best match %q (%s), hybrid score %.2f, %d of top %d candidates agree",
			name, top.Entry.Metadata.UNNumber, top.Score, agreeing, len(topK)),
		Citations: citations,
	}
}

// augment fills in the emergency-response guide and folds in historical
// agreement, in parallel. Both lookups are optional; failures only log.
func (u *classifyUsecase) augment(ctx context.Context, classificationID string, qc domain.QueryContext, result *domain.Classification) {
	if result.UNNumber == "" {
		return
	}

	var ergGuide string
	var histCount int

	g, gctx := errgroup.WithContext(ctx)

	if result.ERGGuide == "" {
		g.Go(func() error {
			entry, err := u.store.QueryByExactField(gctx, domain.SourceEmergencyGuide, "un_number", result.UNNumber)
			if err != nil {
				u.logger.Warn("erg_lookup_failed",
					slog.String("classification_id", classificationID),
					slog.String("error", err.Error()))
				return nil
			}
			if entry != nil {
				ergGuide = entry.Metadata.ERGGuide
			}
			return nil
		})
	}

	if u.history != nil {
		g.Go(func() error {
			count, err := u.history.CountAgreeing(gctx, qc.ChemicalOnly, result.UNNumber)
			if err != nil {
				u.logger.Warn("historical_agreement_failed",
					slog.String("classification_id", classificationID),
					slog.String("error", err.Error()))
				return nil
			}
			histCount = count
			return nil
		})
	}

	_ = g.Wait()

	if ergGuide != "" {
		result.ERGGuide = ergGuide
	}
	if histCount > 0 {
		result.Confidence += 0.05
		if result.Confidence > 0.99 {
			result.Confidence = 0.99
		}
		result.Explanation += fmt.Sprintf("; %d prior classifications agree", histCount)
	}
}

// recordHistory feeds the agreement store with high-confidence outcomes.
// Fire-and-forget: a write failure must never affect the response.
func (u *classifyUsecase) recordHistory(ctx context.Context, qc domain.QueryContext, result domain.Classification) {
	if u.history == nil || result.UNNumber == "" || result.Confidence < 0.8 {
		return
	}
	go func() {
		recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := u.history.Record(recordCtx, qc.ChemicalOnly, result.UNNumber, result.Confidence); err != nil {
			u.logger.Warn("history_record_failed", slog.String("error", err.Error()))
		}
	}()
}

func (u *classifyUsecase) logResult(classificationID string, qc domain.QueryContext, result domain.Classification, start time.Time) {
	u.logger.Info("classification_completed",
		slog.String("classification_id", classificationID),
		slog.String("query", qc.Normalized),
		slog.String("source", string(result.Source)),
		slog.String("un_number", result.UNNumber),
		slog.Float64("confidence", result.Confidence),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
}
