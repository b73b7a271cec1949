// Command auditor-assess runs one corpus coverage analysis from the database
// and prints the rollup. Use -dry-run to score without persisting
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/valdezm/policy-auditor/internal/core/rulepack"
	"github.com/valdezm/policy-auditor/internal/platform/config"
	"github.com/valdezm/policy-auditor/internal/platform/logger"
	"github.com/valdezm/policy-auditor/internal/platform/store"

	covdom "github.com/valdezm/policy-auditor/internal/services/api/coverage/domain"
	covrepo "github.com/valdezm/policy-auditor/internal/services/api/coverage/repo"
	covsvc "github.com/valdezm/policy-auditor/internal/services/api/coverage/service"
)

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")
	l := logger.Get()

	var (
		workers = flag.Int("workers", 4, "unit-level concurrency (>=1)")
		dryRun  = flag.Bool("dry-run", false, "compute but do not persist the run")
	)
	flag.Parse()

	st, err := store.Open(context.Background(), store.Config{
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
		},
		CH: store.CHConfig{
			Enabled:    chCfg.MayBool("ENABLED", false),
			URL:        chCfg.MayString("DBURL", ""),
			ClientName: "policy-auditor",
			ClientTag:  "assess",
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	svc := covsvc.New(st.PG, covrepo.NewPG(), rulepack.MustLoad(), st.CH)

	out, err := svc.Run(context.Background(), covdom.RunInput{Workers: *workers, DryRun: *dryRun})
	if err != nil {
		l.Error().Err(err).Msg("assessment run failed")
		os.Exit(1)
	}

	fmt.Printf("run %s (pack %.12s, %d policies x %d units, %dms)\n",
		out.RunID, out.PackFingerprint, out.PolicyCount, out.UnitCount, out.DurationMs)
	if out.DryRun {
		fmt.Println("dry run: nothing persisted")
	}
	s := out.Summary
	fmt.Printf("coverage %.1f%%  full=%d partial=%d reference=%d related=%d none=%d review=%d\n",
		s.CoveragePercent, s.FullCompliance, s.PartialCompliance, s.ReferenceOnly,
		s.Related, s.NoCoverage, s.NeedsReview)
	for _, d := range out.ByDoc {
		c := d.Counts
		fmt.Printf("  %-20s %.1f%%  full=%d partial=%d reference=%d related=%d none=%d\n",
			d.DocCode, c.CoveragePercent, c.FullCompliance, c.PartialCompliance,
			c.ReferenceOnly, c.Related, c.NoCoverage)
	}
}
