package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"plategate/internal/config"
	"plategate/internal/db"
	"plategate/internal/emitter"
	handlers "plategate/internal/http"
	"plategate/internal/repository"
	"plategate/internal/service"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path of the config file")
	flag.Parse()

	log := zerolog.New(os.Stdout).With().Timestamp().Str("component", "server").Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	gdb, err := db.Open(cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}

	plateRepo := repository.NewPlateRepository(gdb)
	cameraRepo := repository.NewCameraRepository(gdb)

	var notifier service.GateNotifier
	if cfg.MQTT.Enabled {
		mq := emitter.NewMQTTEmitter(emitter.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
			QoS:      cfg.MQTT.QoS,
		}, log)
		if err := mq.Connect(); err != nil {
			log.Fatal().Err(err).Msg("failed to connect to mqtt broker")
		}
		defer mq.Disconnect()
		notifier = mq
	}

	decisions := service.NewDecisionService(plateRepo, notifier, log)
	registry := service.NewRegistryService(plateRepo, log)
	cameras := service.NewCameraService(cameraRepo, log)
	auth := service.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiration, cfg.Auth.AdminUser, cfg.Auth.AdminPasswordHash)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization", "X-API-Token"},
		MaxAge:       12 * time.Hour,
	}))

	handler := handlers.NewHandler(decisions, registry, cameras, auth, cfg.Auth.APIToken, log)
	handler.Register(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}
