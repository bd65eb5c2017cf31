package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Collect authors for every field in the configuration",
	Long: `Batch processes all configured fields sequentially:
- Run a full collection pass for each field in the config file
- Pause between fields to respect rate limits
- Continue past per-field failures and summarize at the end

Each field keeps its own CSV and cursor file, so an interrupted batch resumes
field by field from the last checkpoint.

Example:
  fieldharvest batch
  fieldharvest batch --config ./fields.yaml`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.Fields) == 0 {
		return fmt.Errorf("no fields configured: add a 'fields' list to the config file (see 'fieldharvest config init')")
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Fieldharvest Batch Collection\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Fields:      %d\n", len(cfg.Fields))
	fmt.Fprintf(os.Stderr, "  Output dir:  %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "\n")

	stop := watchInterrupts(log)
	ctx := context.Background()

	var completed, failed []string
	for i, field := range cfg.Fields {
		log.Info("starting field",
			zap.String("field", field.Name),
			zap.Int("index", i+1),
			zap.Int("total", len(cfg.Fields)))

		if err := runField(ctx, cfg, field, log, stop); err != nil {
			failed = append(failed, field.Name)
			log.Error("field failed", zap.String("field", field.Name), zap.Error(err))
		} else {
			completed = append(completed, field.Name)
		}

		if stop() {
			log.Info("stop requested, not starting further fields")
			break
		}

		if i < len(cfg.Fields)-1 {
			log.Info("pausing between fields", zap.Duration("pause", cfg.Pacing.PauseBetweenFields))
			if err := sleepUnlessStopped(ctx, cfg, stop); err != nil {
				break
			}
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Completed:  %d\n", len(completed))
	for _, name := range completed {
		fmt.Fprintf(os.Stderr, "    ✓ %s\n", name)
	}
	if len(failed) > 0 {
		fmt.Fprintf(os.Stderr, "  Failed:     %d\n", len(failed))
		for _, name := range failed {
			fmt.Fprintf(os.Stderr, "    ✗ %s\n", name)
		}
	}
	fmt.Fprintf(os.Stderr, "  Output:     %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "\n")

	if len(failed) > 0 {
		return fmt.Errorf("%d of %d fields failed", len(failed), len(cfg.Fields))
	}
	return nil
}
