package main

import (
	"context"
	crypto_rand "crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bitacora/bitacora/internal/config"
	"github.com/bitacora/bitacora/internal/domain/activity"
	"github.com/bitacora/bitacora/internal/domain/bitacora"
	"github.com/bitacora/bitacora/internal/domain/catalog"
	"github.com/bitacora/bitacora/internal/domain/identity"
	"github.com/bitacora/bitacora/internal/platform/auth"
	"github.com/bitacora/bitacora/internal/platform/db"
	"github.com/bitacora/bitacora/internal/platform/middleware"
	"github.com/bitacora/bitacora/internal/platform/push"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bitacora-server",
		Short: "Bitácora de diálisis peritoneal API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedAdminCmd())

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
			dir, _ := cmd.Flags().GetString("dir")

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

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

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

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

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
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func seedAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create an administrator user",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			password, _ := cmd.Flags().GetString("password")
			if name == "" || password == "" {
				return fmt.Errorf("--name and --password are required")
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

			svc := identity.NewService(identity.NewUserRepoPG(pool), identity.NewPatientRepoPG(pool))
			u, err := svc.CreateUser(ctx, name, password, auth.RoleCodeAdmin)
			if err != nil {
				return err
			}
			fmt.Printf("Created admin user %q with id %d.\n", u.Name, u.ID)
			return nil
		},
	}
	cmd.Flags().String("name", "", "Administrator login name")
	cmd.Flags().String("password", "", "Administrator password")
	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	secret := cfg.SessionSecret
	if secret == "" {
		// Dev only; Validate rejects a missing secret in production.
		buf := make([]byte, 32)
		if _, err := crypto_rand.Read(buf); err != nil {
			logger.Fatal().Err(err).Msg("failed to generate session secret")
		}
		secret = hex.EncodeToString(buf)
		logger.Warn().Msg("SESSION_SECRET not set, using a random secret; sessions will not survive restarts")
	}
	issuer := auth.NewTokenIssuer([]byte(secret), time.Duration(cfg.SessionTTLMin)*time.Minute)

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(auth.Middleware(issuer))
	e.Use(db.LeaseMiddleware(pool))

	// Health check
	e.GET("/health", db.HealthHandler(pool))

	// Identity domain
	identitySvc := identity.NewService(identity.NewUserRepoPG(pool), identity.NewPatientRepoPG(pool))

	// Bitácora domain: decorator chain, notifier, facade
	chain := bitacora.NewChain(logger)
	listeners := []bitacora.Listener{bitacora.LogListener(logger)}

	var pushClient *push.Client
	if cfg.PushEnabled() {
		pushClient = push.NewClient(push.Config{
			AppID:   cfg.PushAppID,
			Key:     cfg.PushKey,
			Secret:  cfg.PushSecret,
			Cluster: cfg.PushCluster,
		}, logger)
		listeners = append(listeners, bitacora.PushListener(pushClient, "canalBitacora"))
		logger.Info().Msg("push channel enabled")
	}
	notifier := bitacora.NewNotifier(logger, listeners...)

	txRun := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	}
	facade := bitacora.NewFacade(bitacora.NewEntryRepoPG(pool), identitySvc, chain, notifier, txRun, logger)

	// Catalog domain
	var catalogPush catalog.PushTrigger
	if pushClient != nil {
		catalogPush = pushClient
	}
	catalogSvc := catalog.NewService(catalog.NewRepoPG(pool), catalogPush, logger)

	// API routes
	api := e.Group("/api/v1")
	identity.NewHandler(identitySvc, issuer).RegisterRoutes(api)
	bitacora.NewHandler(facade).RegisterRoutes(api)
	catalog.NewHandler(catalogSvc).RegisterRoutes(api)
	activity.NewHandler(activity.NewRepoPG(pool), logger).RegisterRoutes(api)

	// Server-side clock for clients that render local timestamps
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn().Err(err).Str("timezone", cfg.Timezone).Msg("unknown timezone, falling back to UTC")
		loc = time.UTC
	}
	api.GET("/time", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"fecha": time.Now().In(loc).Format("2006-01-02 15:04:05"),
			"zona":  loc.String(),
		})
	})

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
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
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
