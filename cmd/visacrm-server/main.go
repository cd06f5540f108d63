package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gousa/visacrm/internal/config"
	"github.com/gousa/visacrm/internal/domain/catalog"
	"github.com/gousa/visacrm/internal/domain/customer"
	"github.com/gousa/visacrm/internal/domain/family"
	"github.com/gousa/visacrm/internal/domain/procedure"
	"github.com/gousa/visacrm/internal/domain/scheduling"
	"github.com/gousa/visacrm/internal/platform/auth"
	"github.com/gousa/visacrm/internal/platform/db"
	"github.com/gousa/visacrm/internal/platform/middleware"
	"github.com/gousa/visacrm/internal/platform/notify"
	"github.com/gousa/visacrm/migrations"
)

// activeMemberLister is the part of family.Service combo scheduling reads.
type activeMemberLister interface {
	ActiveMembers(ctx context.Context, familyID int) ([]*family.ActiveMember, error)
}

// familyResolver adapts the family package to scheduling.MemberResolver so
// neither domain imports the other.
type familyResolver struct {
	families activeMemberLister
}

func (r familyResolver) ActiveMembers(ctx context.Context, familyID int) ([]scheduling.Member, error) {
	active, err := r.families.ActiveMembers(ctx, familyID)
	if errors.Is(err, family.ErrNotFound) {
		return nil, scheduling.ErrFamilyNotFound
	}
	if err != nil {
		return nil, err
	}
	members := make([]scheduling.Member, len(active))
	for i, m := range active {
		members[i] = scheduling.Member{
			CustomerID:    m.CustomerID,
			ProcedureID:   m.ProcedureID,
			DisplayName:   strings.TrimSpace(m.FirstNames + " " + m.LastNames),
			ProcedureType: m.ProcedureType,
			ProcessState:  m.ProcessState,
			Relationship:  m.Relationship,
			Email:         m.Email,
		}
	}
	return members, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "visacrm-server",
		Short: "Visa agency CRM API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(officeCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, migrations.Files)
			fmt.Printf("Running migrations on schema: %s\n", schema)

			count, err := migrator.Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", db.SchemaName("main"), "Target schema for migrations")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrations.Files).Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("schema", db.SchemaName("main"), "Target schema for migrations")
	cmd.AddCommand(statusCmd)

	return cmd
}

func officeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "office",
		Short: "Manage agency offices",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an office schema and apply migrations to it",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			fmt.Printf("Creating office schema: %s\n", db.SchemaName(name))
			if err := db.CreateOfficeSchema(ctx, pool, name, migrations.Files); err != nil {
				return err
			}
			fmt.Println("Office created successfully.")
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Office identifier (alphanumeric)")

	cmd.AddCommand(createCmd)
	return cmd
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func runServer() error {
	logger := newLogger(os.Getenv("ENV"))

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid time zone")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	notifier, err := notify.New(ctx, notify.Config{
		Region:    cfg.AWSRegion,
		FromEmail: cfg.SESFromEmail,
		FromName:  cfg.SESFromName,
		Location:  loc,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure appointment notices")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("2M"))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", db.OfficeHeader, auth.DevRoleHeader},
	}))

	if cfg.IsDev() && cfg.AuthIssuer == "" && cfg.AuthSigningKey == "" {
		logger.Warn().Msg("development authentication enabled; every request acts as a local user")
		e.Use(auth.DevAuthMiddleware(auth.AuthSkipper))
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		}))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool, func() *db.PoolStats { return db.GetPoolStats(pool) }))

	rateLimitCfg := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rateLimitCfg.RequestsPerSecond = cfg.RateLimitRPS
		rateLimitCfg.BurstSize = cfg.RateLimitBurst
	}

	cache := middleware.NewInMemoryCacheStore()
	cacheCtx, cacheCancel := context.WithCancel(context.Background())
	defer cacheCancel()
	cache.StartCleanup(cacheCtx, time.Minute)

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	apiV1.Use(db.OfficeMiddleware(pool, cfg.DefaultOffice))
	apiV1.Use(middleware.ETag(0))
	apiV1.Use(middleware.ResponseCache(cache, cfg.CacheTTL()))

	// Catalogs
	catalogSvc := catalog.NewService(catalog.NewRepoPG(pool))
	catalog.NewHandler(catalogSvc).RegisterRoutes(apiV1)

	// Families, customers and procedures
	familySvc := family.NewService(family.NewRepoPG(pool))
	family.NewHandler(familySvc, cache).RegisterRoutes(apiV1)

	customerSvc := customer.NewService(customer.NewRepoPG(pool), familySvc, logger)
	customer.NewHandler(customerSvc, cache).RegisterRoutes(apiV1)

	procedureSvc := procedure.NewService(procedure.NewRepoPG(pool))
	procedure.NewHandler(procedureSvc, cache).RegisterRoutes(apiV1)

	// Appointments and combo scheduling
	schedulingSvc := scheduling.NewService(
		scheduling.NewRepoPG(pool),
		familyResolver{families: familySvc},
		notifier,
		loc,
		logger,
	)
	scheduling.NewHandler(schedulingSvc, cache).RegisterRoutes(apiV1)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("office", cfg.DefaultOffice).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	if err := schedulingSvc.WaitNotices(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("appointment notices still pending at shutdown")
	}
	logger.Info().Msg("server stopped")
	return nil
}
