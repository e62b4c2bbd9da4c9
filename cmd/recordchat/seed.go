package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeefy/recordchat/internal/store"
)

func seedCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace every stored record with generated demo data",
		Long: `Wipe the configured store and insert demo records named
"<Type> <n> - <Industry>" so the chat analyzer has sectors to group on.

Examples:
  recordchat seed
  STORE_BACKEND=sqlite recordchat seed --count 500`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be positive")
			}
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := openStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = st.Close(closeCtx)
			}()

			if err := store.Reseed(ctx, st, store.DemoRecords(count)); err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			log.Info("database seeded", zap.String("backend", cfg.StoreBackend), zap.Int("records", count))
			fmt.Fprintf(cmd.OutOrStdout(), "Inserted %d demo records\n", count)
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 100, "number of demo records")
	return cmd
}
