// Package main is the entry point for indexctl, the knowledge-base
// maintenance CLI: loading candidate data, backfilling embeddings,
// checking index health, and running one-shot classifications.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"hazmat-classifier/internal/di"
	"hazmat-classifier/internal/domain"
	"hazmat-classifier/internal/infra"
	"hazmat-classifier/internal/infra/config"
	"hazmat-classifier/internal/infra/logger"
	"hazmat-classifier/internal/usecase"
)

var rootCmd = &cobra.Command{
	Use:   "indexctl",
	Short: "Hazmat knowledge-base maintenance CLI",
	Long: `indexctl manages the hazmat classification knowledge base.

Example usage:
  indexctl load --file hazmat_table.json --source regulatory_table
  indexctl embed --batch 64
  indexctl check
  indexctl classify "Sulfuric Acid 98%"`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}

// setup wires the application components for a CLI invocation.
func setup(ctx context.Context) (*di.ApplicationComponents, func(), error) {
	cfg := config.Load()
	log := logger.New()

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name)
	pool, err := infra.NewPostgresDB(ctx, dsn, infra.PoolConfig{MaxConns: cfg.DB.MaxConns})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to db: %w", err)
	}

	components := di.NewApplicationComponents(cfg, pool, log)
	cleanup := func() {
		if components.Redis != nil {
			components.Redis.Close()
		}
		pool.Close()
	}
	return components, cleanup, nil
}

// candidateRow is the JSON input format for the load command.
type candidateRow struct {
	ID                string   `json:"id,omitempty"`
	Text              string   `json:"text"`
	UNNumber          string   `json:"un_number,omitempty"`
	BaseName          string   `json:"base_name,omitempty"`
	Qualifier         string   `json:"qualifier,omitempty"`
	HazardClass       string   `json:"hazard_class,omitempty"`
	PackingGroup      string   `json:"packing_group,omitempty"`
	LabelCodes        []string `json:"label_codes,omitempty"`
	SpecialProvisions string   `json:"special_provisions,omitempty"`
	ERGGuide          string   `json:"erg_guide,omitempty"`
	SKU               string   `json:"sku,omitempty"`
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Replace one source category of the knowledge base from a JSON file",
	RunE:  runLoad,
}

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Backfill embeddings for candidates that have none",
	RunE:  runEmbed,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the knowledge base is loadable and dimensionally consistent",
	RunE:  runCheck,
}

var classifyCmd = &cobra.Command{
	Use:   "classify <product name>",
	Short: "Run a one-shot classification against the live knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE:  runClassify,
}

func init() {
	loadCmd.Flags().String("file", "", "JSON file with candidate rows")
	loadCmd.Flags().String("source", string(domain.SourceRegulatoryTable), "source category to replace")
	loadCmd.Flags().Bool("skip-embed", false, "insert without embeddings (backfill later with 'embed')")
	loadCmd.MarkFlagRequired("file")

	embedCmd.Flags().Int("batch", 64, "candidates per embedding batch")

	classifyCmd.Flags().String("sku", "", "product SKU for verified-record lookup")

	rootCmd.AddCommand(loadCmd, embedCmd, checkCmd, classifyCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	sourceFlag, _ := cmd.Flags().GetString("source")
	skipEmbed, _ := cmd.Flags().GetBool("skip-embed")
	source := domain.CandidateSource(sourceFlag)

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}
	var rows []candidateRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("failed to parse %s: %w", file, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%s contains no candidate rows", file)
	}

	ctx := cmd.Context()
	components, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	now := time.Now().UTC()
	entries := make([]domain.CandidateEntry, len(rows))
	for i, row := range rows {
		id := row.ID
		if id == "" {
			id = uuid.New().String()
		}
		entries[i] = domain.CandidateEntry{
			ID:     id,
			Source: source,
			Text:   row.Text,
			Metadata: domain.CandidateMetadata{
				UNNumber:          row.UNNumber,
				BaseName:          row.BaseName,
				Qualifier:         row.Qualifier,
				HazardClass:       row.HazardClass,
				PackingGroup:      domain.PackingGroup(row.PackingGroup),
				LabelCodes:        row.LabelCodes,
				SpecialProvisions: row.SpecialProvisions,
				ERGGuide:          row.ERGGuide,
				SKU:               row.SKU,
			},
			CreatedAt: now,
		}
	}

	if !skipEmbed {
		if err := embedEntries(ctx, components.Encoder, entries); err != nil {
			return err
		}
	}

	var replaced int64
	err = components.TxManager.RunInTx(ctx, func(txCtx context.Context) error {
		deleted, err := components.CandidateWriter.DeleteBySource(txCtx, source)
		if err != nil {
			return err
		}
		replaced = deleted
		return components.CandidateWriter.BulkInsertCandidates(txCtx, entries)
	})
	if err != nil {
		return fmt.Errorf("failed to load candidates: %w", err)
	}

	fmt.Printf("Loaded %d candidates for source %s (replaced %d)\n", len(entries), source, replaced)
	return nil
}

func runEmbed(cmd *cobra.Command, args []string) error {
	batch, _ := cmd.Flags().GetInt("batch")
	ctx := cmd.Context()

	components, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	total := 0
	for {
		entries, err := components.CandidateWriter.ListUnembedded(ctx, batch)
		if err != nil {
			return fmt.Errorf("failed to list unembedded candidates: %w", err)
		}
		if len(entries) == 0 {
			break
		}
		if err := embedEntries(ctx, components.Encoder, entries); err != nil {
			return err
		}
		if err := components.CandidateWriter.SetEmbeddings(ctx, entries); err != nil {
			return err
		}
		total += len(entries)
		fmt.Printf("Embedded %d candidates...\n", total)
	}

	fmt.Printf("Backfill complete. Embedded %d candidates with model %s\n", total, components.Encoder.Version())
	return nil
}

func embedEntries(ctx context.Context, encoder domain.VectorEncoder, entries []domain.CandidateEntry) error {
	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Text
	}
	vectors, err := encoder.Encode(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed candidates: %w", err)
	}
	for i := range entries {
		entries[i].Embedding = vectors[i]
	}
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	components, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	entries, err := components.CandidateStore.LoadCandidates(ctx)
	if err != nil {
		return fmt.Errorf("failed to load candidates: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("knowledge base is empty: run 'indexctl load' first")
	}

	dims := map[int]int{}
	bySource := map[domain.CandidateSource]int{}
	for _, e := range entries {
		dims[len(e.Embedding)]++
		bySource[e.Source]++
	}

	fmt.Printf("Candidates: %d\n", len(entries))
	for source, count := range bySource {
		fmt.Printf("  %-20s %d\n", source, count)
	}
	if len(dims) > 1 {
		return fmt.Errorf("mixed embedding dimensions %v: re-run 'indexctl embed' with one model", dims)
	}
	for dim := range dims {
		fmt.Printf("Embedding dimension: %d\n", dim)
	}
	fmt.Println("OK")
	return nil
}

func runClassify(cmd *cobra.Command, args []string) error {
	sku, _ := cmd.Flags().GetString("sku")
	ctx := cmd.Context()

	components, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := components.ClassifyUsecase.Execute(ctx, usecase.ClassifyInput{
		SKU:         sku,
		ProductName: args[0],
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
