// Package cli wires the cobra command tree for the aligner binary.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"section-aligner/internal/config"
	"section-aligner/internal/logging"
	"section-aligner/internal/runner"
	"section-aligner/internal/search"
	"section-aligner/internal/version"
	"section-aligner/internal/watch"
)

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "section-aligner",
		Short: "Aligns paired cross-section scans via thresholded rigid registration",
		Long: `section-aligner binarizes paired reference and target grayscale scans,
fits a rigid transform between the masks, and retries with adjusted
thresholds whenever the recovered scale factor is biologically implausible.
Accepted alignments are written as transformed rasters plus optional
overlay images for visual inspection.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newAlignCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newAlignCmd() *cobra.Command {
	cfg := config.Default()
	var boundsSpec string

	cmd := &cobra.Command{
		Use:   "align",
		Short: "Align every target image against its reference counterpart",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, log, closeLog, err := prepareRun(&cfg, boundsSpec)
			if err != nil {
				return err
			}
			defer closeLog()

			summary, err := runner.Run(ctx, cfg, log)
			if err != nil {
				return err
			}
			if summary.Accepted == 0 && summary.Total > 0 {
				return fmt.Errorf("no pair could be aligned (%d tried)", summary.Total)
			}
			return nil
		},
	}

	addConfigFlags(cmd, &cfg, &boundsSpec)
	return cmd
}

func newWatchCmd() *cobra.Command {
	cfg := config.Default()
	var boundsSpec string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the target directory and align pairs as scans appear",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, log, closeLog, err := prepareRun(&cfg, boundsSpec)
			if err != nil {
				return err
			}
			defer closeLog()

			if err := watch.Run(ctx, cfg, log); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}

	addConfigFlags(cmd, &cfg, &boundsSpec)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("section-aligner %s (commit %s, built %s)\n",
				version.Version, version.GitCommit, version.BuildTime)
		},
	}
}

func addConfigFlags(cmd *cobra.Command, cfg *config.Config, boundsSpec *string) {
	f := cmd.Flags()
	f.StringVarP(&cfg.ReferenceDir, "reference-dir", "r", "", "directory with reference images (required)")
	f.StringVarP(&cfg.TargetDir, "target-dir", "t", "", "directory with target images (required)")
	f.IntVarP(&cfg.ReferenceThreshold, "reference-threshold", "x", -1, "binarization threshold for reference images, 0-255 (required)")
	f.IntVarP(&cfg.TargetThreshold, "target-threshold", "y", -1, "binarization threshold for target images, 0-255 (required)")
	f.IntVarP(&cfg.Step, "step", "s", config.DefaultStep, "threshold change applied per retry")
	f.IntVarP(&cfg.MaxChange, "max-change", "m", config.DefaultMaxChange, "largest threshold change tried before giving up")
	f.StringVarP(boundsSpec, "scale-bounds", "b", fmt.Sprintf("%v,%v", config.DefaultMinScale, config.DefaultMaxScale),
		"acceptable scale factor range as min,max")
	f.StringVarP(&cfg.OutputDir, "output-dir", "o", "", "output directory (default ./Alignments/<target-dir>_Alignments)")
	f.StringVarP(&cfg.LogDir, "log-dir", "l", "", "directory for the run log file (default .)")
	f.BoolVarP(&cfg.SuppressOverlays, "suppress-overlaps", "p", false, "do not write overlap images")
	f.IntVarP(&cfg.Workers, "workers", "j", 0, "worker goroutines (default one per CPU)")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "enable debug logging")

	cobra.CheckErr(cmd.MarkFlagRequired("reference-dir"))
	cobra.CheckErr(cmd.MarkFlagRequired("target-dir"))
	cobra.CheckErr(cmd.MarkFlagRequired("reference-threshold"))
	cobra.CheckErr(cmd.MarkFlagRequired("target-threshold"))
}

// prepareRun validates the configuration, opens the run log and installs
// signal handling. Configuration problems abort before any pair is touched.
func prepareRun(cfg *config.Config, boundsSpec string) (context.Context, zerolog.Logger, func(), error) {
	bounds, err := parseBounds(boundsSpec)
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	cfg.Bounds = bounds

	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), nil, err
	}

	runName := filepath.Base(filepath.Clean(cfg.TargetDir))
	log, closer, err := logging.RunLogger(cfg.LogDir, runName, cfg.Verbose)
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cleanup := func() {
		stop()
		closer.Close()
	}

	warnNonEmptyOutput(cfg, log)

	log.Info().
		Str("version", version.Version).
		Str("reference_dir", cfg.ReferenceDir).
		Str("target_dir", cfg.TargetDir).
		Str("output_dir", cfg.ResolvedOutputDir()).
		Int("reference_threshold", cfg.ReferenceThreshold).
		Int("target_threshold", cfg.TargetThreshold).
		Int("step", cfg.Step).
		Int("max_change", cfg.MaxChange).
		Float64("scale_min", cfg.Bounds.Min).
		Float64("scale_max", cfg.Bounds.Max).
		Bool("overlaps", !cfg.SuppressOverlays).
		Msg("run started")

	return ctx, log, cleanup, nil
}

// warnNonEmptyOutput flags a reused output directory. Batch runs proceed
// anyway: existing files with the same names get overwritten.
func warnNonEmptyOutput(cfg *config.Config, log zerolog.Logger) {
	entries, err := os.ReadDir(cfg.ResolvedOutputDir())
	if err == nil && len(entries) > 0 {
		log.Warn().Str("dir", cfg.ResolvedOutputDir()).Msg("output directory not empty, files may be overwritten")
	}
}

func parseBounds(spec string) (search.Bounds, error) {
	parts := strings.Split(spec, ",")
	if len(parts) != 2 {
		return search.Bounds{}, fmt.Errorf("scale bounds must be min,max, got %q", spec)
	}

	min, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return search.Bounds{}, fmt.Errorf("invalid lower scale bound %q", parts[0])
	}
	max, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return search.Bounds{}, fmt.Errorf("invalid upper scale bound %q", parts[1])
	}

	return search.Bounds{Min: min, Max: max}, nil
}
