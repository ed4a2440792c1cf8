package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"google.golang.org/grpc"

	"podoagenda/backend/internal/config"
	"podoagenda/backend/internal/domain"
	"podoagenda/backend/internal/rotation"
	"podoagenda/backend/internal/service/scheduling"
	"podoagenda/backend/internal/store/postgres"
	grpcTransport "podoagenda/backend/internal/transport/grpc"
	"podoagenda/backend/internal/transport/httpapi"
	"podoagenda/backend/migrations"
)

const serviceName = "podoagenda-server"

func main() {
	rootCmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Podiatry clinic availability and scheduling engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(rotateCmd())

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", slog.String("service", serviceName), slog.Any("err", err))
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gRPC and HTTP servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			db, err := openDatabase(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer closeDatabase(log, db)

			applied, err := postgres.Migrate(ctx, db, migrations.FS)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info("migrations applied", slog.Int("count", len(applied)), slog.Any("files", applied))
			return nil
		},
	}
}

func rotateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rotate",
		Short: "Generate schedule overrides from a rotation plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			planPath, _ := cmd.Flags().GetString("plan")
			fromRaw, _ := cmd.Flags().GetString("from")
			toRaw, _ := cmd.Flags().GetString("to")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			from, err := scheduling.ParseDate("from", fromRaw)
			if err != nil {
				return err
			}
			to, err := scheduling.ParseDate("to", toRaw)
			if err != nil {
				return err
			}
			plan, err := rotation.LoadPlan(planPath)
			if err != nil {
				return err
			}

			cfg, log, err := setup()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			db, err := openDatabase(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer closeDatabase(log, db)

			svc := newService(cfg, db, log)
			overrides, err := svc.MaterializeRotation(ctx, plan, from, to, dryRun)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, o := range overrides {
				fmt.Fprintf(out, "%s\t%s\t%s\n", domain.DateKey(o.Date), o.ProfessionalID, o.Kind)
			}
			return nil
		},
	}
	cmd.Flags().String("plan", "rotation.yaml", "Path to the rotation plan")
	cmd.Flags().String("from", "", "First date to generate (2006-01-02)")
	cmd.Flags().String("to", "", "Last date to generate, inclusive (2006-01-02)")
	cmd.Flags().Bool("dry-run", false, "Print the overrides without storing them")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func setup() (config.Config, *slog.Logger, error) {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", serviceName),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, log, fmt.Errorf("config load failed: %w", err)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", serviceName),
	)
	slog.SetDefault(log)
	return cfg, log, nil
}

func openDatabase(ctx context.Context, cfg config.Config, log *slog.Logger) (*bun.DB, error) {
	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		return nil, err
	}
	return db, nil
}

func closeDatabase(log *slog.Logger, db *bun.DB) {
	if err := postgres.Close(db); err != nil {
		log.Warn("database close failed", slog.Any("err", err))
	}
}

func newService(cfg config.Config, db *bun.DB, log *slog.Logger) *scheduling.Service {
	return scheduling.NewService(scheduling.Repositories{
		Roster:       postgres.NewRosterRepo(db),
		Appointments: postgres.NewAppointmentRepo(db),
		Overrides:    postgres.NewOverrideRepo(db),
		Contracts:    postgres.NewContractRepo(db),
	}, scheduling.Options{
		Location:          cfg.Location,
		Grid:              cfg.Grid,
		SnapGrid:          cfg.SnapGrid,
		Scale:             cfg.Scale,
		DayStart:          cfg.DayStart,
		Mode:              cfg.TimelineMode,
		ContractLookahead: cfg.ContractLookahead,
		MaxRangeDays:      cfg.MaxRangeDays,
	}, log)
}

func runServer() error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	log.Info("starting",
		slog.String("grpc_addr", cfg.GRPCAddr),
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("timezone", cfg.Location.String()),
		slog.String("timeline_mode", string(cfg.TimelineMode)),
		slog.String("log_level", cfg.LogLevel),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDatabase(log, db)

	svc := newService(cfg, db, log)

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(defaultRequestTimeoutInterceptor(cfg.GRPCRequestTimeout)),
	)
	grpcTransport.RegisterSchedulingServiceServer(grpcServer, grpcTransport.NewSchedulingServer(svc, log))

	httpServer := httpapi.NewServer(httpapi.NewTimelineHandler(svc, log), log)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr))
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	go func() {
		if err := httpServer.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	log.Info("servers started", slog.String("grpc_addr", cfg.GRPCAddr), slog.String("http_addr", cfg.HTTPAddr))

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdown(log, grpcServer, httpServer, cfg.ShutdownTimeout)
		return nil
	case err := <-errCh:
		log.Error("server stopped with error", slog.Any("err", err))
		shutdown(log, grpcServer, httpServer, cfg.ShutdownTimeout)
		return err
	}
}

func defaultRequestTimeoutInterceptor(timeout time.Duration) grpc.UnaryServerInterceptor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := ctx.Deadline(); ok {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return handler(ctx, req)
	}
}

func shutdown(log *slog.Logger, s *grpc.Server, e *echo.Echo, timeout time.Duration) {
	log.Info("shutting down servers", slog.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Warn("http shutdown failed", slog.Any("err", err))
	}

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-ctx.Done():
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		s.Stop()
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
