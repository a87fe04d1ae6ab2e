package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	config "github.com/callendorph/mturkemu/internal/configs"
	httpapi "github.com/callendorph/mturkemu/internal/http"
	"github.com/callendorph/mturkemu/internal/questions"
	repository "github.com/callendorph/mturkemu/internal/repositories"
	"github.com/callendorph/mturkemu/internal/services"
	"github.com/callendorph/mturkemu/internal/throttle"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the emulator HTTP API",
	Long:  "Starts the requester RPC endpoint and the worker REST API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			log.Info(".env file not found, using environment variables")
		}

		cfg := config.Load()
		database := config.NewDatabaseClient(cfg.DatabaseDSN)

		accountRepo := repository.NewAccountRepository(database)
		taskRepo := repository.NewTaskRepository(database)
		qualRepo := repository.NewQualRepository(database)
		paymentRepo := repository.NewPaymentRepository(database)

		validator := questions.NewValidator()

		qualSvc := services.NewQualService(database, qualRepo, taskRepo,
			accountRepo, validator, services.SystemClock)
		taskSvc := services.NewTaskService(database, taskRepo, qualRepo,
			accountRepo, qualSvc, validator, services.SystemClock)
		taskTypeSvc := services.NewTaskTypeService(database, taskRepo, qualRepo)
		accountSvc := services.NewAccountService(database, accountRepo,
			taskRepo, paymentRepo)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var tokens throttle.TokenManager
		if cfg.RedisAddr != "" {
			redisClient := config.NewRedisClient(cfg.RedisAddr)
			defer redisClient.Close()
			tokens = throttle.NewRedisTokenManager(redisClient, cfg.RedisTokenKey)
			if err := tokens.Initialize(ctx, cfg.RequestTokens); err != nil {
				log.Fatalf("failed to initialize request tokens: %v", err)
			}
		} else {
			tokens = throttle.NewMemoryTokenManager(cfg.RequestTokens)
		}

		e := echo.New()
		e.HideBanner = true

		handler := httpapi.NewHandler(accountSvc, qualSvc, taskSvc, taskTypeSvc, accountRepo)
		httpapi.Register(e, handler, tokens, cfg.RateLimit)

		go func() {
			log.Info("HTTP server listening", "addr", cfg.AppURL)
			if err := e.Start(cfg.AppURL); err != nil {
				log.Info("server stopped", "err", err)
			}
		}()

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second,
		)
		defer cancel()
		_ = e.Shutdown(shutdownCtx)

		log.Info("HTTP server shut down gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
