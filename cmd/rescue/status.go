package main

import (
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bft-labs/rescue/internal/adapters/fs"
	logAdapter "github.com/bft-labs/rescue/internal/adapters/log"
	"github.com/bft-labs/rescue/internal/domain"
)

func newStatusCmd(out io.Writer) *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "status <map>",
		Short: "Print the progress recorded in a map file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			m, err := readMap(path)
			if err != nil {
				return err
			}
			printStatus(out, path, m)
			if !follow {
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			w := fs.NewMapWatcher(path, fs.DefaultDebounceDelay, logAdapter.NewNoopLogger())
			return w.Watch(ctx, func(m *domain.Map, err error) {
				if err != nil {
					fmt.Fprintf(out, "reload %s: %v\n", path, err)
					return
				}
				fmt.Fprintln(out)
				printStatus(out, path, m)
			})
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "print again whenever the map is checkpointed")
	return cmd
}

func readMap(path string) (*domain.Map, error) {
	m, err := fs.ReadMapFile(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, fmt.Errorf("map %s does not exist", path)
		}
		return nil, err
	}
	return m, nil
}

// printStatus prints the summary followed by one line per cluster.
func printStatus(out io.Writer, path string, m *domain.Map) {
	fmt.Fprintln(out, path)
	printSummary(out, m)
	fmt.Fprintln(out)
	for _, c := range m.Clusters {
		fmt.Fprintf(out, "  %-24s %-16s %s\n",
			c.Domain, c.Stage, humanize.IBytes(c.Domain.Len()*uint64(m.SectorSize)))
	}
}
