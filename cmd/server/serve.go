package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	jwttoken "zkregistry/internal/jwt_token"
	"zkregistry/internal/platform/config"
	"zkregistry/internal/platform/httpserver"
	"zkregistry/internal/platform/logger"
	"zkregistry/internal/platform/metrics"
	httptransport "zkregistry/internal/transport/http"
	"zkregistry/internal/verification/handler"
)

func newServeCmd() *cobra.Command {
	cfg := config.FromEnv()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the registry API server",
		Long:  `Start the HTTP API for verifying entities and reading the registry. Flags override the matching environment variables.`,
		Example: `  # Serve the built-in sample sources without auth
  zkregistry serve --static-sources

  # Production: require operator tokens, persist roots and publish audit events
  DATABASE_URL=postgres://... REDIS_URL=redis://... KAFKA_BROKERS=kafka:9092 \
    zkregistry serve --addr :8443 --auth-required`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logger.New(cfg.Log.Level, cfg.Log.Format)
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					log.Error("failed to release backends", "error", err)
				}
			}()

			jwt := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, tokenAudience)
			router := httptransport.NewRouter(httptransport.Options{
				AuthRequired:    cfg.Server.AuthRequired,
				CORSOrigins:     cfg.Server.CORSOrigins,
				RequestTimeout:  cfg.Server.RequestTimeout,
				MaxRequestBytes: cfg.Server.MaxRequestBytes,
			}, httptransport.Deps{
				Verification: handler.New(a.verification, a.registry, log),
				Health:       a.evidence,
				Validator:    jwttoken.NewJWTServiceAdapter(jwt),
				Gatherer:     a.metrics,
				Metrics:      metrics.NewWithRegisterer(a.metrics),
				RateLimit:    a.limiter,
				Logger:       log,
			})

			srv := httpserver.New(cfg.Server.Addr, router)
			return httpserver.Run(ctx, srv, cfg.Server.ShutdownTimeout, log)
		},
	}

	cmd.Flags().StringVar(&cfg.Server.Addr, "addr", cfg.Server.Addr, "Address to listen on")
	cmd.Flags().BoolVar(&cfg.Server.AuthRequired, "auth-required", cfg.Server.AuthRequired, "Require a bearer token with the verify scope on mutating routes")
	cmd.Flags().StringSliceVar(&cfg.Server.CORSOrigins, "cors-origins", cfg.Server.CORSOrigins, "Allowed CORS origins (empty disables CORS)")
	cmd.Flags().BoolVar(&cfg.Sources.Static, "static-sources", cfg.Sources.Static, "Serve built-in sample records instead of calling registry APIs")
	cmd.Flags().IntVar(&cfg.Registry.Height, "tree-height", cfg.Registry.Height, "Registry tree height (capacity is 2^height entities)")
	cmd.Flags().BoolVar(&cfg.Verification.ProveEnabled, "prove", cfg.Verification.ProveEnabled, "Generate Groth16 proofs (false uses native witness checks)")
	cmd.Flags().BoolVar(&cfg.RateLimit.Enabled, "rate-limit", cfg.RateLimit.Enabled, "Enforce per-caller request limits")
	cmd.Flags().StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "Log format (text, json)")
	return cmd
}
