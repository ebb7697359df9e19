package cmd

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var nextFlags struct {
	count   int
	workers int
	tenant  string
}

var nextCmd = &cobra.Command{
	Use:   "next <entity.property>",
	Short: "Allocate values from one generator and print them as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runNext,
}

func init() {
	nextCmd.Flags().IntVarP(&nextFlags.count, "count", "n", 1, "values per worker")
	nextCmd.Flags().IntVarP(&nextFlags.workers, "workers", "w", 1, "concurrent callers sharing the generator")
	nextCmd.Flags().StringVar(&nextFlags.tenant, "tenant", "", "tenant identifier of the session")
	rootCmd.AddCommand(nextCmd)
}

func runNext(cmd *cobra.Command, args []string) error {
	if nextFlags.count < 1 || nextFlags.workers < 1 {
		return fmt.Errorf("count and workers must be positive")
	}

	ctx := cmd.Context()
	app, err := newApplication(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	key := args[0]
	if _, ok := app.registry.Lookup(key); !ok {
		return fmt.Errorf("no generator is mapped under %s", key)
	}

	var mu sync.Mutex
	values := make([]any, 0, nextFlags.count*nextFlags.workers)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < nextFlags.workers; i++ {
		g.Go(func() error {
			out, err := app.registry.GenerateN(gctx, key, app.registry.Session(nextFlags.tenant), nextFlags.count)
			mu.Lock()
			values = append(values, out...)
			mu.Unlock()
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	return enc.Encode(map[string]any{"key": key, "values": values})
}
