package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/craftlands/votegate/internal/adapters/handler/http"
	"github.com/craftlands/votegate/internal/adapters/notify"
	"github.com/craftlands/votegate/internal/adapters/repository/postgres"
	"github.com/craftlands/votegate/internal/adapters/siteapi"
	"github.com/craftlands/votegate/internal/core/ports"
	"github.com/craftlands/votegate/internal/core/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Println("Warning: JWT_SECRET not set")
	}

	db, err := sql.Open("postgres", dbConnString())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal(err)
	}

	// Repositories
	siteRepo := postgres.NewSiteRepository(db)
	voteRepo := postgres.NewVoteRepository(db)
	challengeRepo := postgres.NewChallengeRepository(db)

	// External site API clients
	otpClient := siteapi.NewOTPClient()
	checkClients := map[string]ports.CheckClient{
		"minelist":     siteapi.NewMinelistClient(),
		"craftservers": siteapi.NewCraftserversClient(),
	}

	// Services
	notifier := notify.NewWebhookNotifier(os.Getenv("ANNOUNCE_WEBHOOK_URL"))
	processor := services.NewProcessorService(siteRepo, voteRepo, notifier)
	challengeService := services.NewChallengeService(siteRepo, challengeRepo, otpClient)
	otpPoller := services.NewOTPPoller(challengeRepo, otpClient, processor)
	checkPoller := services.NewCheckPoller(challengeRepo, checkClients, processor)
	supervisor := services.NewPollSupervisor(siteRepo, challengeRepo, otpPoller, checkPoller)
	siteService := services.NewSiteService(siteRepo, supervisor.Kick)

	// Handlers
	webhookHandler := http.NewWebhookHandler(siteRepo, processor, os.Getenv("DEFAULT_TENANT"))
	siteHandler := http.NewSiteHandler(siteService)
	challengeHandler := http.NewChallengeHandler(challengeService)
	statsHandler := http.NewStatsHandler(voteRepo)
	handler := http.NewHandler(webhookHandler, siteHandler, challengeHandler, statsHandler, []byte(jwtSecret))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	server := &stdhttp.Server{Addr: "0.0.0.0:" + port, Handler: handler}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	supervisor.Start(ctx)

	go func() {
		log.Printf("Listening on :%s", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	fmt.Println("Gracefully shutting down...")

	supervisor.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal(err)
	}
}

func dbConnString() string {
	dbName, user, password, host, port := dbConfig()
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, dbName)
}

func dbConfig() (dbName string, user string, password string, host string, port string) {
	dbName = os.Getenv("POSTGRES_DB")
	user = os.Getenv("POSTGRES_USER")
	password = os.Getenv("POSTGRES_PASSWORD")
	host = os.Getenv("POSTGRES_HOST")
	port = os.Getenv("POSTGRES_PORT")
	return
}
