package main

import (
	"context"
	"flag"
	"os"

	"go.uber.org/zap"

	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/api"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/controller"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/service"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/storage"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/storage/memory"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/storage/redis"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/util"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	ctx := context.Background()
	logger := util.NewZapLogger(*debug)
	defer func() { _ = logger.Sync() }()

	var (
		tokenStorage storage.TokenStorage = memory.NewTokenStorage()
		cleanupFuncs []func()
	)
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisClient, redisCleanup, err := util.NewRedisClient(ctx, logger, &util.RedisConfig{Addr: addr})
		if err != nil {
			logger.Fatal(zap.Error(err))
		}
		tokenStorage = redis.NewTokenStorage(redisClient)
		cleanupFuncs = append(cleanupFuncs, redisCleanup)
	} else {
		logger.Info("REDIS_ADDR is not set, revoked tokens are kept in memory")
	}

	tokenService := service.NewTokenService(util.NewTokenConfig(), tokenStorage)
	authService := service.NewAuthService(
		tokenService,
		memory.NewSessionRepository(logger),
		util.NewStubUserConfig(),
		logger,
	)
	credentialService := service.NewCredentialService(memory.NewCredentialRepository(), logger)

	controller := controller.NewController(logger, authService, credentialService, service.NewAnalyticsService())

	apiServer := api.NewAPI(controller, tokenService, logger, util.NewServerConfig(), cleanupFuncs...)
	apiServer.Run(ctx)
}
