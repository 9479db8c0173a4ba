package app

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/shashank-materialplus/order-api/configs"
	"github.com/shashank-materialplus/order-api/internal/adapter/cache"
	"github.com/shashank-materialplus/order-api/internal/adapter/catalog"
	httpadapter "github.com/shashank-materialplus/order-api/internal/adapter/http"
	"github.com/shashank-materialplus/order-api/internal/adapter/http/middleware"
	"github.com/shashank-materialplus/order-api/internal/adapter/kafka"
	"github.com/shashank-materialplus/order-api/internal/adapter/payment"
	"github.com/shashank-materialplus/order-api/internal/adapter/queue"
	"github.com/shashank-materialplus/order-api/internal/adapter/repo"
	"github.com/shashank-materialplus/order-api/internal/logging"
	"github.com/shashank-materialplus/order-api/internal/security"
	"github.com/shashank-materialplus/order-api/internal/usecase"
)

type App struct {
	Router *gin.Engine
}

func InitWithConfig(cfg configs.Config) (*App, func(), error) {
	log := logging.Init(cfg.App.Name, cfg.App.LogFile, cfg.App.LogLevel)
	log.Info("order-api starting up")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		return nil, nil, err
	}
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	if err := db.PingContext(ctx); err != nil {
		return nil, nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, nil, err
	}

	// Best-effort collaborators: the service must come up and take
	// orders even when the broker side is down.
	var reconcilePub usecase.ReconcilePublisher
	rabbitConn, rabbitCh := initRabbit(cfg.Rabbit.URL, log)
	if rabbitCh != nil {
		if pub, err := queue.NewRabbitReconcilePublisher(rabbitCh); err != nil {
			log.Error("rabbit reconcile publisher setup failed", "error", err)
		} else {
			reconcilePub = pub
		}
	}

	var eventPub usecase.EventPublisher
	producer, err := kafka.NewSyncProducer(cfg.Kafka.Brokers)
	if err != nil {
		log.Error("kafka producer setup failed, lifecycle events disabled", "error", err)
	} else {
		eventPub = kafka.NewEventProducer(producer, cfg.Kafka.TopicEvents)
	}

	orderRepo := repo.NewMySQLOrderRepo(db)
	statusCache := cache.NewRedisStatusCache(rdb, cfg.Redis.StatusTTL)
	idemStore := cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL)
	catalogClient := catalog.NewClient(catalog.Config{
		BaseURL:      cfg.Catalog.BaseURL,
		Timeout:      cfg.Catalog.Timeout,
		MaxRetries:   cfg.Catalog.MaxRetries,
		RetryBackoff: cfg.Catalog.RetryBackoff,
	})
	stripeGW := payment.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.MaxRetries)

	orders := usecase.NewOrderService(orderRepo, catalogClient, idemStore,
		statusCache, eventPub, reconcilePub, cfg.Stripe.Currency)
	payments := usecase.NewPaymentService(orderRepo, stripeGW, statusCache, eventPub,
		usecase.PaymentConfig{
			Currency:           cfg.Stripe.Currency,
			ReturnURL:          cfg.Stripe.ReturnURL,
			CheckoutSuccessURL: cfg.Stripe.CheckoutSuccessURL,
			CheckoutCancelURL:  cfg.Stripe.CheckoutCancelURL,
		})

	verifier := security.NewVerifier(cfg.Security.JWTSecret)
	authn := middleware.NewAuthn(verifier)
	oh := httpadapter.NewOrderHandler(orders)
	ph := httpadapter.NewPaymentHandler(payments)
	router := httpadapter.NewRouter(oh, ph, authn)

	cleanup := func() {
		_ = db.Close()
		_ = rdb.Close()
		if producer != nil {
			_ = producer.Close()
		}
		if rabbitCh != nil {
			_ = rabbitCh.Close()
		}
		if rabbitConn != nil {
			_ = rabbitConn.Close()
		}
	}

	return &App{Router: router}, cleanup, nil
}

func initRabbit(url string, log *slog.Logger) (*amqp.Connection, *amqp.Channel) {
	conn, err := amqp.Dial(url)
	if err != nil {
		log.Error("rabbitmq dial failed, reconcile publishing disabled", "error", err)
		return nil, nil
	}
	ch, err := conn.Channel()
	if err != nil {
		log.Error("rabbitmq channel failed, reconcile publishing disabled", "error", err)
		_ = conn.Close()
		return nil, nil
	}
	return conn, ch
}
