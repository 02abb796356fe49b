package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/openmart/shopcart/internal/config"
	"github.com/openmart/shopcart/internal/handlers"
	"github.com/openmart/shopcart/internal/logging"
	"github.com/openmart/shopcart/internal/mykafka"
	"github.com/openmart/shopcart/internal/search"
	"github.com/openmart/shopcart/internal/service"
	"github.com/openmart/shopcart/internal/session"
	"github.com/openmart/shopcart/internal/token"
	httpserver "github.com/openmart/shopcart/internal/transport/http"
	loggingmw "github.com/openmart/shopcart/pkg/middleware/logging"
)

const productIndex = "products"

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(context.Background(), configuration)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	var producer *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		producer = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
	}

	var esClient *elasticsearch.Client
	if configuration.ES_URL != "" {
		esClient, err = search.NewClient(configuration)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
	}

	tokens := token.NewService(
		[]byte(configuration.JWT_SECRET),
		time.Duration(configuration.TOKEN_TTL)*time.Second,
	)

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		SessionGate: session.Middleware(tokens, configuration.COOKIE_NAME, logger),
		AuthHandler: &handlers.AuthHandler{
			DB:           db,
			Tokens:       tokens,
			Producer:     producer,
			CookieName:   configuration.COOKIE_NAME,
			CookieSecure: configuration.COOKIE_SECURE,
		},
		ProductHandler: &handlers.ProductHandler{DB: db, ES: esClient, Index: productIndex, Producer: producer},
		CartHandler:    &handlers.CartHandler{Carts: &service.CartService{DB: db}, Producer: producer},
		OrderHandler:   &handlers.OrderHandler{Orders: &service.OrderService{DB: db}, Producer: producer},
		SearchHandler:  &handlers.SearchHandler{ES: esClient, Index: productIndex},
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         configuration.HTTP_ADDR,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := producer.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
