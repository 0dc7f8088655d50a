package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go4it-sports/media-engine/internal/config"
	"github.com/go4it-sports/media-engine/internal/jobs/repository"
	"github.com/go4it-sports/media-engine/internal/worker"
	"github.com/go4it-sports/media-engine/pkg/db/aws"
	"github.com/go4it-sports/media-engine/pkg/db/postgres"
	clientRedis "github.com/go4it-sports/media-engine/pkg/db/redis"
	"github.com/go4it-sports/media-engine/pkg/logger"
)

func main() {
	configFile := "config.yml"
	cfgFile, err := config.LoadConfig(configFile)
	if err != nil {
		log.Fatalf("loadConfig: %v", err)
	}
	cfg, err := config.ParseConfig(cfgFile)
	if err != nil {
		log.Fatalf("parseConfig: %v", err)
	}
	appLogger := logger.NewApiLogger(cfg)
	appLogger.InitLogger()
	appLogger.Infof("AppVersion: %s, LogLevel: %s, Mode: %s", cfg.Server.AppVersion, cfg.Logger.Level, cfg.Server.Mode)

	psqlDB, err := postgres.NewPsqlDB(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to db: %s", err)
	}
	appLogger.Infof("db connected, status: %#v", psqlDB.Stats())
	defer psqlDB.Close()

	redisClient, err := clientRedis.NewRedisClient(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to redis: %s", err)
	}
	appLogger.Infof("redis connected")
	defer redisClient.Close()

	awsClient, presignClient, err := aws.NewAWSClient(cfg.S3.Endpoint, cfg.S3.Region, cfg.S3.AccessKey, cfg.S3.SecretKey)
	if err != nil {
		appLogger.Fatalf("could not connect to s3: %s", err)
	}

	jobsRepo := repository.NewJobRepository(psqlDB)
	redisRepo := repository.NewJobRedisRepo(redisClient)
	awsRepo := repository.NewAwsRepository(awsClient, presignClient)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("shutting down workers")
		cancel()
	}()

	w := worker.NewWorker(cfg, appLogger, jobsRepo, redisRepo, awsRepo)
	w.Start(ctx)
	w.Wait()
}
