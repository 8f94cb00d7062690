package main

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bft-labs/rescue/internal/adapters/fs"
	logAdapter "github.com/bft-labs/rescue/internal/adapters/log"
	"github.com/bft-labs/rescue/internal/adapters/tui"
	"github.com/bft-labs/rescue/internal/domain"
)

func newViewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view <map>",
		Short: "Show a live sector map of a running or finished recovery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := tui.NewViewer(" rescue: " + args[0] + " ")
			if err != nil {
				return fmt.Errorf("open terminal: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer stop()
			return runViewer(ctx, v, args[0])
		},
	}
}

// runViewer shows the map at path in v and keeps it current until the user
// quits. A missing map is waited for.
func runViewer(ctx context.Context, v *tui.Viewer, path string) error {
	m, err := fs.ReadMapFile(path)
	switch {
	case err == nil:
		v.Show(m)
	case errors.Is(err, iofs.ErrNotExist):
		v.SetStatus("waiting for " + path + " (q/Esc: quit)")
	default:
		v.SetStatus(err.Error())
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watchErr := make(chan error, 1)
	go func() {
		w := fs.NewMapWatcher(path, fs.DefaultDebounceDelay, logAdapter.NewNoopLogger())
		watchErr <- w.Watch(ctx, func(m *domain.Map, err error) {
			if err != nil {
				v.SetStatus(err.Error())
				return
			}
			v.Show(m)
			v.SetStatus("q/Esc: quit")
		})
	}()

	runErr := v.Run(ctx)
	cancel()
	if err := <-watchErr; err != nil && runErr == nil {
		return err
	}
	return runErr
}
