package main

import (
	"context"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/spf13/cobra"

	"github.com/krisalay/salon-cache/salon"
	"github.com/krisalay/salon-cache/source/postgres"
	"github.com/krisalay/salon-cache/types"
)

var (
	warmDSN     string
	warmTimeout time.Duration
)

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Fetch every data kind from Postgres once and report freshness",
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn := warmDSN
		if dsn == "" {
			dsn = cfg.Database.DSN
		}
		if dsn == "" {
			return fmt.Errorf("no database DSN: pass --dsn or set SALONCACHE_DATABASE_DSN")
		}
		return runWarm(cmd.Context(), dsn)
	},
}

func init() {
	warmCmd.Flags().StringVar(&warmDSN, "dsn", "", "Postgres connection string (overrides database.dsn)")
	warmCmd.Flags().DurationVar(&warmTimeout, "timeout", 30*time.Second, "give up waiting for the database after this long")
}

func runWarm(ctx context.Context, dsn string) error {
	ctx, cancel := context.WithTimeout(ctx, warmTimeout)
	defer cancel()

	pool, err := postgres.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	metrics, report, err := setupMetrics()
	if err != nil {
		return err
	}
	defer report.shutdown()

	reg := salon.NewRegistry(postgres.New(pool),
		salon.WithTTLs(cfg.TTL.Table()),
		salon.WithMetrics(metrics),
	)

	start := time.Now()
	if err := reg.Warm(ctx); err != nil {
		return fmt.Errorf("warm cache: %w", err)
	}
	log.WithField("took", time.Since(start)).Info("cache warmed")

	fresh := reg.Fresh()
	ttls := cfg.TTL.Table()
	fmt.Println("\n==================== CACHE WARM ====================")
	for _, k := range types.Kinds {
		fmt.Printf("%-13s : fresh=%-5t ttl=%v\n", k, fresh[k], ttls[k])
	}

	services, _ := reg.Services.GetCached()
	testimonials, _ := reg.Testimonials.GetCached()
	photos, _ := reg.Gallery.GetCached()
	fmt.Printf("\nSERVICES     : %d\n", len(services))
	fmt.Printf("PHOTOS       : %d\n", len(photos))
	fmt.Printf("TESTIMONIALS : %d\n", len(testimonials))
	return report.print(context.WithoutCancel(ctx))
}
