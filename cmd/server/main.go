package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/nahomt/bookbridge/internal/config"
	"github.com/nahomt/bookbridge/internal/es"
	"github.com/nahomt/bookbridge/internal/events"
	"github.com/nahomt/bookbridge/internal/handlers"
	"github.com/nahomt/bookbridge/internal/logging"
	authmw "github.com/nahomt/bookbridge/internal/middleware/auth"
	"github.com/nahomt/bookbridge/internal/middleware/loggingmw"
	authsvc "github.com/nahomt/bookbridge/internal/service/auth"
	"github.com/nahomt/bookbridge/internal/service/catalog"
	"github.com/nahomt/bookbridge/internal/service/genai"
	"github.com/nahomt/bookbridge/internal/service/identity"
	"github.com/nahomt/bookbridge/internal/service/images"
	"github.com/nahomt/bookbridge/internal/service/mailer"
	"github.com/nahomt/bookbridge/internal/service/momo"
	"github.com/nahomt/bookbridge/internal/service/notify"
	"github.com/nahomt/bookbridge/internal/service/recommend"
	"github.com/nahomt/bookbridge/internal/service/token"
	"github.com/nahomt/bookbridge/internal/service/vectorstore"
	httpserver "github.com/nahomt/bookbridge/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	tokens := &token.Signer{
		Secret:   []byte(configuration.JWT_SECRET),
		Issuer:   configuration.JWT_ISSUER,
		Audience: configuration.JWT_AUDIENCE,
	}
	guard := &authmw.Guard{DB: db, Tokens: tokens}

	var prod *events.Producer
	if configuration.KAFKA_ADDRESS != "" {
		prod = events.NewProducer([]string{configuration.KAFKA_ADDRESS})
	}

	var mail mailer.Sender
	if configuration.SMTP_HOST != "" {
		port, err := strconv.Atoi(configuration.SMTP_PORT)
		if err != nil {
			log.Fatalf("invalid SMTP_PORT: %v", err)
		}
		mail = mailer.New(configuration.SMTP_HOST, port,
			configuration.SMTP_USER, configuration.SMTP_PASSWORD, configuration.SMTP_FROM)
	}

	var store *images.Store
	if configuration.AWS_S3_BUCKET != "" {
		store, err = images.NewStore(context.Background(),
			configuration.AWS_S3_BUCKET, configuration.AWS_REGION,
			configuration.AWS_ACCESS_KEY_ID, configuration.AWS_SECRET_ACCESS_KEY)
		if err != nil {
			log.Fatalf("image store init failed: %v", err)
		}
	}

	bookHandler := &handlers.BookHandler{
		DB:       db,
		Producer: prod,
		ESIndex:  configuration.ES_INDEX,
		Catalog:  catalog.NewClient(configuration.CATALOG_URL, configuration.CATALOG_API_KEY),
	}
	if configuration.ES_URL != "" {
		client, err := es.NewClient(configuration)
		if err != nil {
			log.Fatalf("elasticsearch init failed: %v", err)
		}
		bookHandler.ES = client
	}

	var pay *momo.Client
	if configuration.MOMO_BASE_URL != "" {
		pay = momo.NewClient(configuration.MOMO_BASE_URL, configuration.MOMO_KEY,
			configuration.MOMO_SECRET, configuration.MOMO_SUBSCRIPTION_KEY)
	}

	recSvc := &recommend.Service{DB: db}
	if configuration.GENAI_API_KEY != "" {
		recSvc.AI = genai.NewClient(configuration.GENAI_BASE_URL,
			configuration.GENAI_API_KEY, configuration.GENAI_MODEL)
	}
	if configuration.VECTOR_URL != "" {
		recSvc.Vectors = vectorstore.NewClient(configuration.VECTOR_URL, configuration.VECTOR_API_KEY)
	}

	authSvc := &authsvc.Service{
		DB:       db,
		Verifier: identity.NewVerifier(configuration.GOOGLE_CLIENT_ID),
		Tokens:   tokens,
	}
	notifier := &notify.Notifier{DB: db, Mail: mail, AdminEmail: configuration.ADMIN_EMAIL}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		Guard:                 guard,
		AuthHandler:           &handlers.AuthHandler{DB: db, Svc: authSvc},
		UserHandler:           &handlers.UserHandler{DB: db},
		BookHandler:           bookHandler,
		CartHandler:           &handlers.CartHandler{DB: db},
		OrderHandler:          &handlers.OrderHandler{DB: db, Producer: prod},
		OrderItemHandler:      &handlers.OrderItemHandler{DB: db},
		DeliveryHandler:       &handlers.DeliveryHandler{DB: db},
		PaymentHandler:        &handlers.PaymentHandler{DB: db, Momo: pay, Producer: prod},
		ConfirmationHandler:   &handlers.ConfirmationHandler{DB: db, Notifier: notifier, Producer: prod},
		ReviewHandler:         &handlers.ReviewHandler{DB: db},
		RecommendationHandler: &handlers.RecommendationHandler{DB: db, Svc: recSvc},
		ImageHandler:          &handlers.ImageHandler{DB: db, Store: store},
		EmailHandler:          &handlers.EmailHandler{Mail: mail},
		AffiliateHandler:      &handlers.AffiliateHandler{DB: db, Catalog: bookHandler.Catalog},
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.PORT,
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
	}

	if prod != nil {
		if err := prod.Close(); err != nil {
			log.Printf("kafka close error: %v", err)
		}
	}

	log.Println("shutdown complete")
}
