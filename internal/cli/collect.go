package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rmoretti/fieldharvest/internal/model"
)

var (
	fieldID    string
	fieldName  string
	outDir     string
	outFile    string
	cursorFile string

	minScore        float64
	topK            int
	minRelative     float64
	borderlineScore float64
	minShare        float64
	noSkipShare     bool

	pageSize   int
	maxRetries int
	mailto     string
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect authors for a single taxonomy field",
	Long: `Collect crawls the author catalog for one field:
- Preload the field's concept subtree (root plus all descendants)
- Page through authors tagged with the field, cursor by cursor
- Keep authors passing the four-gate relevance filter
- Append accepted authors to the field's CSV, checkpointing after every page

Example:
  fieldharvest collect --field-id C162324750 --field-name Economics
  fieldharvest collect --field-id C162324750 --field-name Economics --min-score 30 --top-k 3
  fieldharvest collect --field-id C121332964 --field-name Physics --out-dir ./outputs`,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().StringVar(&fieldID, "field-id", "", "root concept id of the target field (required)")
	collectCmd.Flags().StringVar(&fieldName, "field-name", "", "display name of the target field (required)")
	collectCmd.Flags().StringVar(&outDir, "out-dir", "", "output directory (default from config)")
	collectCmd.Flags().StringVar(&outFile, "out", "", "output CSV path (default derived from the field name)")
	collectCmd.Flags().StringVar(&cursorFile, "cursor", "", "cursor checkpoint path (default derived from the field name)")

	collectCmd.Flags().Float64Var(&minScore, "min-score", 20, "absolute score floor for the best in-field topic")
	collectCmd.Flags().IntVar(&topK, "top-k", 5, "field must appear in the top-K topics (0 disables)")
	collectCmd.Flags().Float64Var(&minRelative, "min-relative", 0.6, "best in-field score relative to the top topic (0 disables)")
	collectCmd.Flags().Float64Var(&borderlineScore, "borderline", 45, "below this score, require the works-share check")
	collectCmd.Flags().Float64Var(&minShare, "min-share", 0.40, "minimum in-field works share for borderline authors")
	collectCmd.Flags().BoolVar(&noSkipShare, "no-skip-share", false, "run the works-share check even when the top topic is in-field")

	collectCmd.Flags().IntVar(&pageSize, "page-size", 200, "authors per page (max 200)")
	collectCmd.Flags().IntVar(&maxRetries, "max-retries", 0, "max attempts per request (0 = retry forever)")
	collectCmd.Flags().StringVar(&mailto, "mailto", "", "contact email for the OpenAlex polite pool")

	_ = collectCmd.MarkFlagRequired("field-id")
	_ = collectCmd.MarkFlagRequired("field-name")
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Flags override the config file when set explicitly
	flags := cmd.Flags()
	if flags.Changed("min-score") {
		cfg.Filter.MinScore = minScore
	}
	if flags.Changed("top-k") {
		cfg.Filter.TopK = topK
	}
	if flags.Changed("min-relative") {
		cfg.Filter.MinRelative = minRelative
	}
	if flags.Changed("borderline") {
		cfg.Filter.BorderlineScore = borderlineScore
	}
	if flags.Changed("min-share") {
		cfg.Filter.MinShare = minShare
	}
	if noSkipShare {
		cfg.Filter.SkipShareIfPrimaryInField = false
	}
	if flags.Changed("page-size") {
		cfg.API.PageSize = pageSize
	}
	if flags.Changed("max-retries") {
		cfg.API.MaxRetries = maxRetries
	}
	if mailto != "" {
		cfg.API.Mailto = mailto
	}
	if outDir != "" {
		cfg.Output.Dir = outDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	field := model.FieldConfig{
		ID:         fieldID,
		Name:       fieldName,
		OutputFile: outFile,
		CursorFile: cursorFile,
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if verbose {
		fmt.Fprintf(os.Stderr, "Collecting: %s (%s)\n", field.Name, field.ID)
		fmt.Fprintf(os.Stderr, "Output:     %s\n", field.OutputPath(cfg.Output.Dir))
		fmt.Fprintf(os.Stderr, "Cursor:     %s\n", field.CursorPath(cfg.Output.Dir))
		fmt.Fprintln(os.Stderr)
	}

	stop := watchInterrupts(log)
	if err := runField(context.Background(), cfg, field, log, stop); err != nil {
		return fmt.Errorf("collect %s: %w", field.Name, err)
	}
	return nil
}
