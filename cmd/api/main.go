package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/telecare-api/internal/application/alert"
	"github.com/telecare-api/internal/application/call"
	"github.com/telecare-api/internal/config"
	"github.com/telecare-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/telecare-api/internal/infrastructure/jwt"
	s3infra "github.com/telecare-api/internal/infrastructure/s3"
	"github.com/telecare-api/internal/infrastructure/smtp"
	"github.com/telecare-api/internal/infrastructure/sns"
	transporthttp "github.com/telecare-api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("JWT provider: %v", err)
	}

	// S3 avatar store.
	s3Client := s3infra.NewClient(cfg)
	avatarStore := s3infra.NewStore(s3Client, cfg.S3BucketName)

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// SNS SMS sender (optional; offline alerts degrade to email only).
	var smsSender sns.SMSSender
	if sender, err := sns.NewSender(cfg); err == nil {
		smsSender = sender
	} else {
		log.Printf("WARN: SNS sender not available: %v", err)
	}

	profileRepo := dynamo.NewProfileRepo(dynamoClient, cfg.DynamoTables.Profiles)
	callRepo := dynamo.NewCallNotificationRepo(dynamoClient, cfg.DynamoTables.CallNotifications)
	sessionRepo := dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions)
	deviceRepo := dynamo.NewDeviceRepo(dynamoClient, cfg.DynamoTables.Devices)

	alertSvc := alert.NewService(alert.ServiceDeps{
		ProfileRepo: profileRepo,
		SMS:         smsSender,
		Email:       mailer,
	})
	gateway := call.NewGateway(call.GatewayDeps{
		Notifications: callRepo,
		Profiles:      profileRepo,
		Offline:       alertSvc,
	})

	// Background sweep of stale call notifications.
	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	go call.NewJanitor(gateway, cfg.CallRetention, cfg.JanitorInterval).Run(janitorCtx)

	deps := &transporthttp.Deps{
		ProfileRepo: profileRepo,
		SessionRepo: sessionRepo,
		DeviceRepo:  deviceRepo,
		AvatarStore: avatarStore,
		JWTProvider: jwtProvider,
		Gateway:     gateway,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stopJanitor()
	gateway.UnsubscribeAll()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
