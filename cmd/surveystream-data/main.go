package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"surveystream-data/internal/config"
	httpapi "surveystream-data/internal/http"
	statusmqtt "surveystream-data/internal/mqtt"
	"surveystream-data/internal/repository"
	"surveystream-data/internal/service"
	"surveystream-data/internal/store"
	"surveystream-data/pkg/database"
	"surveystream-data/pkg/logger"
	commonmqtt "surveystream-data/pkg/mqtt"
	"surveystream-data/pkg/redisx"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "surveystream-data")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redisClient := redisx.NewRedisClient(&redisx.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisx.Close(redisClient)
	kv := store.NewRedisKV(redisClient)

	// Repositories
	surveysRepo := repository.NewPostgresSurveysRepository(db)
	usersRepo := repository.NewPostgresUsersRepository(db)
	targetsRepo := repository.NewPostgresTargetsRepository(db)
	enumeratorsRepo := repository.NewPostgresEnumeratorsRepository(db)
	assignmentsRepo := repository.NewPostgresAssignmentsRepository(db)
	mappingRepo := repository.NewPostgresMappingRepository(db)
	permsRepo := repository.NewPostgresPermissionsRepository(db)

	// Services
	locationService := service.NewLocationHierarchyService(surveysRepo, log)
	userService := service.NewUserHierarchyService(usersRepo, log)
	mappingService := service.NewMappingService(
		surveysRepo, usersRepo, targetsRepo, enumeratorsRepo, mappingRepo, locationService, log)

	var streamClient *redis.Client
	if cfg.Streams.Enabled {
		streamClient = redisClient
	}
	assignmentService := service.NewAssignmentService(
		assignmentsRepo, targetsRepo, enumeratorsRepo,
		streamClient, cfg.Streams.AssignmentStream, log)

	var sctoClient *service.SCTOClient
	if cfg.SurveyCTO.BaseURL != "" {
		sctoClient = service.NewSCTOClient(
			cfg.SurveyCTO.BaseURL, cfg.SurveyCTO.Username, cfg.SurveyCTO.Password, log)
	}

	// HTTP surface
	gate := httpapi.NewPermissionGate(permsRepo, kv, log)
	router := httpapi.NewRouter(log)
	router.RegisterHealthRoutes()
	router.RegisterSurveyRoutes(httpapi.NewSurveyHandler(surveysRepo, locationService, sctoClient, gate, log))
	router.RegisterUserHierarchyRoutes(httpapi.NewUserHierarchyHandler(userService, gate, log))
	router.RegisterMappingRoutes(httpapi.NewMappingHandler(mappingService, surveysRepo, gate, log))
	router.RegisterAssignmentRoutes(httpapi.NewAssignmentHandler(assignmentService, surveysRepo, gate, log))
	router.RegisterEntityRoutes(httpapi.NewEntityHandler(
		targetsRepo, enumeratorsRepo, surveysRepo, assignmentService, gate, log))

	// Status pipeline (MQTT)
	var mqttClient *commonmqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = commonmqtt.NewClient(&commonmqtt.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		})
		if err != nil {
			log.Fatal("Failed to connect to MQTT broker", zap.Error(err))
		}
		broker := statusmqtt.NewStatusBroker(assignmentService, cfg.MQTT.Topic, log)
		if err := broker.Start(mqttClient); err != nil {
			log.Fatal("Failed to start status broker", zap.Error(err))
		}
		defer broker.Stop(mqttClient)
		defer mqttClient.Disconnect()
	}

	srv := service.NewServer("surveystream-data", cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("Shutdown signal received")
	case err := <-errCh:
		log.Error("HTTP server stopped", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}
