package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/quartzcap/dataroom/internal/config"
	"github.com/quartzcap/dataroom/internal/handler"
	"github.com/quartzcap/dataroom/internal/job"
	"github.com/quartzcap/dataroom/internal/middleware"
	"github.com/quartzcap/dataroom/internal/repo"
	"github.com/quartzcap/dataroom/internal/schedule"
	"github.com/quartzcap/dataroom/internal/service"
	"github.com/quartzcap/dataroom/internal/store"
)

const indexRepairSpec = "*/30 * * * *"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "dataroom",
		Short: "data room sharing backend server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run dataroom server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
			return runServer(cfg)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logutil.GetLogger(ctx).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("table", cfg.Dynamo.Table),
	)

	client, err := store.NewDynamoClient(ctx, cfg.Dynamo)
	if err != nil {
		return fmt.Errorf("init dynamodb client: %w", err)
	}
	st := store.NewDynamoStore(client, cfg.Dynamo.Table)

	linkRepo := repo.NewLinkRepo(st)
	ndaRepo := repo.NewNdaRepo(st)
	grantRepo := repo.NewAccessGrantRepo(st)
	logRepo := repo.NewAccessLogRepo(st)

	accessLogService := service.NewAccessLogService(logRepo)
	linkService := service.NewLinkService(linkRepo, accessLogService)
	ndaService := service.NewNdaService(ndaRepo, 24*time.Hour*time.Duration(cfg.NdaGrantDays))
	accessService := service.NewAccessService(
		linkService,
		ndaService,
		grantRepo,
		accessLogService,
		time.Duration(cfg.GrantTTLSeconds)*time.Second,
		cfg.PublicBaseURL,
	)

	deps := handler.RouterDeps{
		Shares:          handler.NewShareHandler(linkService, ndaService, accessService),
		Links:           handler.NewLinkHandler(linkService, accessLogService),
		Ndas:            handler.NewNdaHandler(ndaService),
		Access:          handler.NewAccessHandler(accessService),
		JWTSecret:       []byte(cfg.JWTSecret),
		RateLimit:       cfg.RateLimit.Requests,
		RateLimitWindow: time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	scheduler := schedule.NewScheduler()
	if err := scheduler.AddJob(job.NewIndexRepairJob(linkRepo), indexRepairSpec); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
