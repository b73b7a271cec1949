// Command auditor-ingest loads extracted policy and requirement-document
// text files into the database
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/valdezm/policy-auditor/internal/core/decompose"
	"github.com/valdezm/policy-auditor/internal/core/rulepack"
	"github.com/valdezm/policy-auditor/internal/platform/config"
	"github.com/valdezm/policy-auditor/internal/platform/logger"
	"github.com/valdezm/policy-auditor/internal/platform/store"

	reqrepo "github.com/valdezm/policy-auditor/internal/services/api/requirements/repo"
	ingrepo "github.com/valdezm/policy-auditor/internal/services/ingest/repo"
	ingsvc "github.com/valdezm/policy-auditor/internal/services/ingest/service"
)

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	l := logger.Get()

	var (
		policiesDir = flag.String("policies", "", "directory of extracted policy .txt/.md files")
		reqsDir     = flag.String("requirements", "", "directory of extracted requirement-document files")
	)
	flag.Parse()

	if *policiesDir == "" && *reqsDir == "" {
		log.Fatal("at least one of -policies or -requirements is required")
	}

	st, err := store.Open(context.Background(), store.Config{
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
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

	svc := ingsvc.New(st.PG, ingrepo.NewPG(), reqrepo.NewPG(), decompose.New(rulepack.MustLoad()))

	ctx := context.Background()
	failed := false

	if *policiesDir != "" {
		res, err := svc.IngestPolicies(ctx, *policiesDir)
		if err != nil {
			l.Error().Err(err).Msg("policy ingest failed")
			os.Exit(1)
		}
		fmt.Printf("policies: total=%d ingested=%d skipped=%d failed=%d\n",
			res.Total, res.Ingested, res.Skipped, res.Failed)
		failed = failed || res.Failed > 0
	}

	if *reqsDir != "" {
		res, err := svc.IngestRequirements(ctx, *reqsDir)
		if err != nil {
			l.Error().Err(err).Msg("requirement ingest failed")
			os.Exit(1)
		}
		fmt.Printf("requirements: total=%d ingested=%d skipped=%d failed=%d\n",
			res.Total, res.Ingested, res.Skipped, res.Failed)
		failed = failed || res.Failed > 0
	}

	if failed {
		os.Exit(1)
	}
}
