// @title         Policy Auditor API
// @version       0.1.0
// @description   Regulatory requirement to policy coverage assessment

package main

import (
	"context"

	"github.com/valdezm/policy-auditor/internal/platform/config"
	"github.com/valdezm/policy-auditor/internal/platform/logger"
	phttp "github.com/valdezm/policy-auditor/internal/platform/net/http"
	"github.com/valdezm/policy-auditor/internal/platform/store"

	"github.com/valdezm/policy-auditor/internal/services/api"
	valsvc "github.com/valdezm/policy-auditor/internal/services/api/validate/service"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

func main() {
	// service-scoped config for HTTP etc (CORE_API_*)
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")

	pgCfg := root.Prefix("SERVICE_PGSQL_")      // pgCfg lives under SERVICE_PGSQL_*
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_") // chCfg lives under SERVICE_CLICKHOUSE_*
	valCfg := root.Prefix("VALIDATOR_")
	// bring up logging early
	l := logger.Get()

	ctx := context.Background()

	// open the platform store (postgres + optional CH adapter)
	st, err := store.Open(
		ctx,
		store.Config{
			PG: store.PGConfig{
				Enabled:     true,
				URL:         pgCfg.MustString("DBURL"),
				MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
				SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
				LogSQL:      pgCfg.MayBool("LOG_SQL", true),
			},
			CH: store.CHConfig{
				Enabled:    chCfg.MayBool("ENABLED", false),
				URL:        chCfg.MayString("DBURL", ""),
				ClientName: "policy-auditor",
				ClientTag:  "api",
			},
		},
		store.WithLogger(*logger.Get()),
	)
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	// advisory validator model; absent credentials leave the endpoints
	// mounted but degraded
	var model valsvc.Model = valsvc.Disabled{}
	if key := valCfg.MayString("API_KEY", ""); key != "" {
		client, err := genai.NewClient(ctx, option.WithAPIKey(key))
		if err != nil {
			l.Panic().Err(err).Msg("genai client init failed")
		}
		defer func() { _ = client.Close() }()
		model = valsvc.NewGemini(client, valCfg.MayString("MODEL", "gemini-2.0-flash"))
	} else {
		l.Warn().Msg("VALIDATOR_API_KEY unset; validate endpoints serve degraded results")
	}

	// http server (reads CORE_API_PORT / CORE_API_ADDR)
	srv := phttp.NewServer(apiCfg)

	// mount our API
	api.Mount(
		srv.Router(),
		api.Options{
			Config:         apiCfg,
			Store:          st,
			Logger:         l,
			EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
			EnableProfiler: apiCfg.MayBool("PROFILER", true),
			ValidatorModel: model,
		},
	)

	// run
	if err := srv.Run(context.Background()); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
