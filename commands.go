package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/yeremiapane/steamybites/board"
	"github.com/yeremiapane/steamybites/cache"
	"github.com/yeremiapane/steamybites/config"
	"github.com/yeremiapane/steamybites/router"
	"github.com/yeremiapane/steamybites/services"
	"github.com/yeremiapane/steamybites/utils"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "steamybites",
		Short:         "SteamyBites restaurant ordering API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newSeedAdminCmd())
	return root
}

// bootstrap loads configuration, configures logging and opens the database.
func bootstrap() (*config.Config, *gorm.DB, error) {
	cfg, loaded := config.Load()
	if err := utils.ConfigureLogger(cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, nil, err
	}
	if !loaded {
		utils.InfoLogger.Warn(".env file not found, using process environment")
	}
	utils.SetJWTSecret(cfg.JWTSecret)

	db, err := config.InitDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func newServeCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, err := bootstrap()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			return serve(cmd.Context(), cfg, db)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(_ *cobra.Command, _ []string) error {
			_, db, err := bootstrap()
			if err != nil {
				return err
			}
			return config.AutoMigrate(db)
		},
	}
}

func newSeedAdminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the admin account from ADMIN_EMAIL and ADMIN_PASSWORD",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, err := bootstrap()
			if err != nil {
				return err
			}
			if err := config.AutoMigrate(db); err != nil {
				return err
			}
			if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
				return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set")
			}
			return seedAdmin(cmd.Context(), cfg, db)
		},
	}
}

func seedAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	created, err := services.NewAuthService(db).SeedAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		utils.InfoLogger.WithField("email", cfg.AdminEmail).Info("admin account created")
	}
	return nil
}

func attachMongoHook(cfg *config.Config) func() {
	if cfg.LogMongoURI == "" {
		return func() {}
	}
	level, err := logrus.ParseLevel(cfg.LogMongoLevel)
	if err != nil {
		level = logrus.WarnLevel
	}
	hook, err := utils.NewMongoHook(cfg.LogMongoURI, cfg.LogMongoDB, cfg.LogMongoCollection, level)
	if err != nil {
		utils.ErrorLogger.WithError(err).Warn("mongo log sink disabled")
		return func() {}
	}
	utils.AddHook(hook)
	utils.InfoLogger.WithField("collection", cfg.LogMongoCollection).Info("mongo log sink enabled")
	return hook.Close
}

func menuCache(ctx context.Context, cfg *config.Config) (cache.MenuCache, func()) {
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.MenuCacheTTL)
		if err == nil {
			utils.InfoLogger.WithField("addr", cfg.RedisAddr).Info("menu cache: redis")
			return rc, func() { _ = rc.Close() }
		}
		utils.ErrorLogger.WithError(err).Warn("redis unavailable, falling back to in-memory menu cache")
	}
	return cache.NewMemory(cfg.MenuCacheTTL), func() {}
}

func serve(parent context.Context, cfg *config.Config, db *gorm.DB) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	closeHook := attachMongoHook(cfg)
	defer closeHook()

	if err := config.AutoMigrate(db); err != nil {
		return err
	}
	if err := seedAdmin(ctx, cfg, db); err != nil {
		return err
	}

	mc, closeCache := menuCache(ctx, cfg)
	defer closeCache()

	opts := router.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		UploadDir:      cfg.UploadDir,
		AuthRatePerMin: cfg.AuthRatePerMin,
		MenuCache:      mc,
		Hub:            board.NewHub(),
	}
	if cfg.DeliveryRadiusEnabled() {
		opts.DeliveryZone = &services.DeliveryZone{
			Latitude:  cfg.RestaurantLat,
			Longitude: cfg.RestaurantLng,
			RadiusKm:  cfg.DeliveryRadiusKm,
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.SetupRouter(db, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.InfoLogger.Infof("Server running on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	utils.InfoLogger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
