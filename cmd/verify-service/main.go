package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codehosp/internal/common/cache"
	"codehosp/internal/common/db"
	commonmw "codehosp/internal/common/http/middleware"
	"codehosp/internal/common/mq"
	"codehosp/internal/common/storage"
	studycache "codehosp/internal/study/cache"
	"codehosp/internal/study/controller"
	"codehosp/internal/study/repository"
	"codehosp/internal/study/service"
	"codehosp/internal/verify"
	"codehosp/internal/verify/vetter"
	"codehosp/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/verify_service.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	mysqlDB, err := db.NewMySQLWithConfig(&appCfg.Database)
	if err != nil {
		logger.Error(context.Background(), "init database failed", zap.Error(err))
		return
	}
	defer func() {
		_ = mysqlDB.Close()
	}()

	redisCache, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
	if err != nil {
		logger.Error(context.Background(), "init redis failed", zap.Error(err))
		return
	}
	defer func() {
		_ = redisCache.Close()
	}()

	objStorage, err := storage.NewMinIOStorage(appCfg.MinIO)
	if err != nil {
		logger.Error(context.Background(), "init minio failed", zap.Error(err))
		return
	}

	mqClient, err := mq.NewKafkaQueue(appCfg.Kafka.toMQConfig())
	if err != nil {
		logger.Error(context.Background(), "init kafka failed", zap.Error(err))
		return
	}
	defer func() {
		_ = mqClient.Close()
	}()

	executor, err := buildExecutor(appCfg.Executor)
	if err != nil {
		logger.Error(context.Background(), "init executor failed", zap.Error(err))
		return
	}
	cmp, err := buildComparator(appCfg.Comparator)
	if err != nil {
		logger.Error(context.Background(), "init comparator failed", zap.Error(err))
		return
	}
	verifier := verify.NewVerifier(vetter.New(), executor, cmp, appCfg.Verifier.toVerifyConfig())

	artifacts, err := studycache.NewArtifactCache(appCfg.Artifacts, redisCache, objStorage)
	if err != nil {
		logger.Error(context.Background(), "init artifact cache failed", zap.Error(err))
		return
	}

	studyRepo := repository.NewStudyRepository(mysqlDB, redisCache, appCfg.Study.CacheTTL)
	userRepo := repository.NewUserRepository(mysqlDB)
	statusRepo := repository.NewStatusRepository(redisCache, appCfg.Status.TTL)

	verifySvc, err := service.NewService(service.Config{
		Verifier:       verifier,
		DB:             mysqlDB,
		StudyRepo:      studyRepo,
		UserRepo:       userRepo,
		StatusRepo:     statusRepo,
		Artifacts:      artifacts,
		Producer:       mqClient,
		TaskTopic:      appCfg.Kafka.TaskTopic,
		ResultTopic:    appCfg.Kafka.ResultTopic,
		StatusTimeout:  appCfg.Status.Timeout,
		WorkerPoolSize: appCfg.Worker.PoolSize,
	})
	if err != nil {
		logger.Error(context.Background(), "init verify service failed", zap.Error(err))
		return
	}

	limiter := mq.NewTokenLimiter(appCfg.Worker.PoolSize)
	err = mqClient.SubscribeWithOptions(context.Background(), appCfg.Kafka.TaskTopic, verifySvc.HandleMessage, &mq.SubscribeOptions{
		ConsumerGroup:   appCfg.Kafka.ConsumerGroup,
		Concurrency:     appCfg.Kafka.Concurrency,
		MaxRetries:      appCfg.Kafka.MaxRetries,
		RetryDelay:      appCfg.Kafka.RetryDelay,
		DeadLetterTopic: appCfg.Kafka.DeadLetter,
		MessageTTL:      appCfg.Kafka.MessageTTL,
		Limiter:         limiter,
	})
	if err != nil {
		logger.Error(context.Background(), "subscribe kafka failed", zap.Error(err))
		return
	}
	if err := mqClient.Start(); err != nil {
		logger.Error(context.Background(), "start kafka consumer failed", zap.Error(err))
		return
	}

	httpServer := buildHTTPServer(appCfg, verifySvc)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(context.Background(), "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "verify http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
	_ = mqClient.Stop()
}

func buildHTTPServer(cfg *AppConfig, verifySvc *service.Service) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(requestLogger())

	verifier := commonmw.NewTokenVerifier(cfg.Auth.Secret, cfg.Auth.Issuer)
	verifyController := controller.NewVerifyController(verifySvc)

	api := router.Group("/api/v1")
	api.GET("/studies/:id/verification", verifyController.GetVerification)

	authed := api.Group("")
	authed.Use(commonmw.AuthMiddleware(verifier))
	authed.POST("/studies/:id/verify", verifyController.EnqueueVerification)
	authed.POST("/verify", verifyController.VerifyInline)

	return &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
