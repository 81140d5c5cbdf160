package main

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/cori-do/cori-sub001/internal/approval"
	"github.com/cori-do/cori-sub001/internal/audit"
	"github.com/cori-do/cori-sub001/internal/catalog"
	"github.com/cori-do/cori-sub001/internal/config"
	"github.com/cori-do/cori-sub001/internal/docmodel"
	"github.com/cori-do/cori-sub001/internal/server"
	"github.com/cori-do/cori-sub001/internal/sqlgateway"
	"github.com/cori-do/cori-sub001/internal/token"
	"github.com/cori-do/cori-sub001/internal/toolgateway"
	"github.com/cori-do/cori-sub001/internal/tracing"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the SQL Gateway and Tool Gateway",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if documentsDir != "" {
		cfg.Documents.Dir = documentsDir
	}

	logger := newLogger(cfg)

	docs, err := docmodel.NewStore(cfg.Documents.Dir)
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}

	pub, err := token.PublicKeyFromHex(cfg.Keys.PublicKeyHex)
	if err != nil {
		return fmt.Errorf("parse BISCUIT_PUBLIC_KEY: %w", err)
	}
	verifier := token.NewVerifier(pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	upstream, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect upstream database: %w", err)
	}
	defer upstream.Close()

	var approvalSink approval.Sink
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		approvalSink = approval.NewRedisSink(redis.NewClient(opts))
	}
	approvals := approval.NewStore(logger, approvalSink)

	var auditSink audit.Sink
	if cfg.ClickHouse.Enabled {
		sink, err := audit.NewClickHouseSink(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			logger.Warn().Err(err).Msg("audit: clickhouse sink unavailable, continuing log-only")
		} else {
			auditSink = sink
		}
	}
	auditLog := audit.NewLogger(logger, auditSink)

	catalogCfg := catalog.Config{}
	sqlGW := sqlgateway.New(logger, verifier, docs, upstream, catalogCfg)

	dispatcher := toolgateway.NewDispatcher(logger, docs, approvals, toolgateway.NewPoolUpstream(upstream), auditLog)
	if cfg.ToolGateway.WarmAllRoles {
		warmAllRoles(ctx, dispatcher, docs)
	}
	httpHandler := toolgateway.NewHTTPServer(logger, dispatcher, verifier)

	ln, err := net.Listen("tcp", cfg.SQLGateway.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen sql gateway: %w", err)
	}

	runtime := server.New(cfg, logger, sqlGW, ln, httpHandler)
	return runtime.Run(ctx)
}

func warmAllRoles(ctx context.Context, dispatcher *toolgateway.Dispatcher, docs *docmodel.Store) {
	snapshot := docs.Snapshot()
	roles := make([]string, 0, len(snapshot.Roles))
	for name := range snapshot.Roles {
		roles = append(roles, name)
	}
	toolgateway.WarmBundles(ctx, dispatcher, roles)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	var logger zerolog.Logger
	if cfg.Logging.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return logger.Level(level)
}
