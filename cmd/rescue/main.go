package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/rescue"
	logAdapter "github.com/bft-labs/rescue/internal/adapters/log"
	"github.com/bft-labs/rescue/internal/adapters/tui"
	"github.com/bft-labs/rescue/internal/cliconfig"
	"github.com/bft-labs/rescue/internal/domain"
)

const helpDescription = `
Copy a damaged disc or disk to an image, one sector range at a time.

Readable data is copied first in large clusters. Ranges that fail are
retried in progressively smaller groups before they are given up as
damaged. Progress lives in a map file next to the image, so an
interrupted run picks up where it stopped.
`

var exampleUsage = strings.TrimSpace(`
  rescue -i /dev/sr0
  rescue -i /dev/sdb -o disk.img -m disk.map -s 512 -c 256 -b 4
  rescue status /dev/sr0.map --follow
  rescue view /dev/sr0.map
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rescue:", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree, printing reports to out.
func newRootCmd(out io.Writer) *cobra.Command {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "rescue",
		Short:         "Recover data from damaged media into an image file",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if err := loadConfig(&cfg, cfgPath, changed); err != nil {
				return err
			}

			zl, err := logAdapter.NewConsoleLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			zl.Info().Interface("config", cfg).Msg("configuration")

			return runRecover(cmd.Context(), cfg, zl, out)
		},
	}

	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.rescue/config.toml)")
	f.StringVarP(&cfg.Input, "input", "i", "", "device or file to recover from")
	f.StringVarP(&cfg.Output, "output", "o", "", "image file to write (default: <input>.iso)")
	f.StringVarP(&cfg.MapPath, "map", "m", "", "map file recording progress (default: <input>.map)")
	f.IntVarP(&cfg.ClusterLength, "cluster-length", "c", cfg.ClusterLength, "sectors read at once in the untested pass")
	f.IntVarP(&cfg.IsolationPasses, "brute-passes", "b", cfg.IsolationPasses, "isolation passes before a range is marked damaged")
	f.IntVarP(&cfg.SectorSize, "sector-size", "s", cfg.SectorSize, "sector size in bytes")
	f.BoolVar(&cfg.Direct, "direct", cfg.Direct, "bypass the page cache (O_DIRECT) where supported")
	f.DurationVar(&cfg.RetryDelay, "retry-delay", cfg.RetryDelay, "initial pause after a failed isolation read (0 disables)")
	f.DurationVar(&cfg.RetryDelayMax, "retry-delay-max", cfg.RetryDelayMax, "upper bound of the retry pause")
	f.DurationVar(&cfg.CheckpointInterval, "checkpoint-interval", cfg.CheckpointInterval, "minimum time between map checkpoints")
	f.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	root.AddCommand(newStatusCmd(out), newViewCmd())
	return root
}

// loadConfig layers the config file and environment under the flags, probes
// the input and validates the result.
func loadConfig(cfg *cliconfig.Config, cfgPath string, changed map[string]bool) error {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	} else if cfgPath != "" {
		return fmt.Errorf("load config: %s does not exist", cfgPath)
	}

	// RESCUE_* override the file but not explicit flags.
	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}

	if err := cliconfig.LoadSourceInfo(cfg); err != nil {
		return err
	}
	return cfg.Validate()
}

// runRecover runs the engine until it finishes or a signal arrives, then
// prints the final summary.
func runRecover(ctx context.Context, cfg cliconfig.Config, zl zerolog.Logger, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			zl.Info().Msg("received signal, stopping...")
			cancel()
		case <-ctx.Done():
		}
	}()

	summary, err := rescue.Run(ctx, cfg, rescue.WithLogger(logAdapter.NewZerologAdapterWithLogger(zl)))
	if err != nil && summary.Total == 0 {
		return err
	}

	// The map on disk is the final checkpoint; report from it.
	if m, lerr := readMap(cfg.MapPath); lerr == nil {
		printSummary(out, m)
	}
	if summary.Damaged > 0 && err == nil {
		zl.Warn().Uint64("damaged_sectors", summary.Damaged).Msg("some sectors could not be recovered")
	}
	return err
}

func printSummary(out io.Writer, m *domain.Map) {
	for _, line := range tui.SummaryLines(m) {
		fmt.Fprintln(out, line)
	}
}
