package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medicare/internal/config"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/domain/doctor"
	v1 "github.com/dmehra2102/prod-golang-projects/medicare/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/service"
	"github.com/dmehra2102/prod-golang-projects/medicare/internal/storage/jsonfile"
	"github.com/dmehra2102/prod-golang-projects/medicare/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/medicare/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/medicare/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/medicare/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/medicare/pkg/tracer"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "medicare",
		Short:         "Appointment booking API for clinics",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedUserCmd())
	rootCmd.AddCommand(importDoctorsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// bootstrap loads the config and builds the logger every command needs.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("building logger: %w", err)
	}
	return cfg, log, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return serve(cmd.Context(), cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracer.Init(ctx, cfg.Tracing, cfg.App)
	if err != nil {
		return fmt.Errorf("initialising tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(cfg.App.Name, reg)

	deps, err := openDeps(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.Close()

	auditSvc := service.NewAuditService(deps.stores.audit, collector, log)
	defer auditSvc.Shutdown(10 * time.Second)

	doctors := service.NewCachedDoctors(deps.stores.doctors, cfg.Cache.DoctorsSize, cfg.Cache.DoctorsTTL, collector)
	jwtManager := auth.NewJWTManager(cfg.JWT)

	bookings := service.NewBookingService(
		deps.stores.appointments,
		doctors,
		deps.locker,
		deps.publisher,
		auditSvc,
		collector,
		service.BookingConfig{LockTimeout: cfg.Lock.WaitTimeout, PublishTimeout: cfg.Events.Timeout},
		log.Named("booking"),
	)

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := v1.NewRouter(v1.Services{
		Auth:         service.NewAuthService(deps.stores.users, doctors, jwtManager, auditSvc, log.Named("auth")),
		Directory:    service.NewDirectoryService(doctors, log.Named("directory")),
		Availability: service.NewAvailabilityService(doctors, deps.stores.appointments, collector, log.Named("availability")),
		Bookings:     bookings,
		Feedback:     service.NewFeedbackService(deps.stores.feedback, bookings, auditSvc, log.Named("feedback")),
	}, v1.RouterConfig{
		JWT:       jwtManager,
		Collector: collector,
		Gatherer:  reg,
		CORS:      cfg.CORS,
		RateLimit: cfg.RateLimit,
		Log:       log.Named("http"),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening",
			zap.String("addr", srv.Addr),
			zap.String("storage", cfg.Storage.Driver),
			zap.String("events", cfg.Events.Sink),
			zap.String("version", cfg.App.Version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the postgres schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			db, err := database.Connect(cfg.Database, log)
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err == nil {
				defer sqlDB.Close()
			}
			return database.Migrate(db, log)
		},
	}
}

func seedUserCmd() *cobra.Command {
	var reg service.RegisterCommand
	var role string

	cmd := &cobra.Command{
		Use:   "seed-user",
		Short: "Create an account of any role, including admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			deps, err := openStores(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer deps.Close()

			collector := metrics.NewCollector(cfg.App.Name, prometheus.NewRegistry())
			auditSvc := service.NewAuditService(deps.audit, collector, log)
			defer auditSvc.Shutdown(5 * time.Second)

			svc := service.NewAuthService(deps.users, deps.doctors, auth.NewJWTManager(cfg.JWT), auditSvc, log)
			reg.Role = domain.Role(role)
			u, err := svc.CreateAccount(cmd.Context(), &reg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s account %s (%s)\n", u.Role, u.Email, u.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", string(domain.RoleAdmin), "account role: admin, doctor or patient")
	cmd.Flags().StringVar(&reg.Email, "email", "", "login email")
	cmd.Flags().StringVar(&reg.Password, "password", "", "initial password")
	cmd.Flags().StringVar(&reg.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&reg.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&reg.Mobile, "mobile", "", "mobile number")
	cmd.Flags().StringVar(&reg.DoctorID, "doctor-id", "", "directory id for doctor accounts")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func importDoctorsCmd() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "import-doctors",
		Short: "Copy a doctors.json or doctors.yaml directory into the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			src, err := jsonfile.Open(from)
			if err != nil {
				return err
			}
			list, err := src.Doctors().List(cmd.Context(), doctor.SearchQuery{})
			if err != nil {
				return err
			}

			deps, err := openStores(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer deps.Close()

			for _, d := range list {
				if err := deps.doctors.Upsert(cmd.Context(), d); err != nil {
					return fmt.Errorf("importing doctor %s: %w", d.ID, err)
				}
			}
			log.Info("doctors imported", zap.Int("count", len(list)), zap.String("from", from))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "directory containing doctors.json or doctors.yaml")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}
