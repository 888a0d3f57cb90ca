package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Eursukkul/event-ticketing/config"
	"github.com/Eursukkul/event-ticketing/internal/consumer"
	"github.com/Eursukkul/event-ticketing/internal/handler"
	"github.com/Eursukkul/event-ticketing/internal/middleware"
	"github.com/Eursukkul/event-ticketing/internal/payment"
	"github.com/Eursukkul/event-ticketing/internal/repository"
	"github.com/Eursukkul/event-ticketing/internal/service"
	"github.com/Eursukkul/event-ticketing/internal/ticketcode"
	"github.com/Eursukkul/event-ticketing/internal/worker"
	"github.com/Eursukkul/event-ticketing/pkg/circuitbreaker"
	"github.com/Eursukkul/event-ticketing/pkg/database"
	"github.com/Eursukkul/event-ticketing/pkg/rabbitmq"
	"github.com/Eursukkul/event-ticketing/pkg/redislock"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var envFile, port string
	flagSet := pflag.NewFlagSet("ticketing", pflag.ExitOnError)
	flagSet.StringVar(&envFile, "env-file", "", "dotenv file to load (default: .env)")
	flagSet.StringVar(&port, "port", "", "HTTP port, overrides SERVER_PORT")
	_ = flagSet.Parse(os.Args[1:])

	var cfg *config.Config
	if envFile != "" {
		cfg = config.Load(envFile)
	} else {
		cfg = config.Load()
	}
	if port != "" {
		cfg.ServerPort = port
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db := database.NewPostgresDB(cfg.DSN())

	// Redis is optional: without it the unique index on idempotency keys is the only guard.
	var locker service.KeyLocker
	if cfg.RedisURL != "" {
		rdb, err := redislock.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
		locker = redislock.New(rdb)
	}

	var (
		publisher  service.Publisher
		mqConsumer *rabbitmq.Consumer
	)
	if cfg.RabbitURL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL)
		if err != nil {
			log.Fatalf("failed to connect to RabbitMQ: %v", err)
		}
		defer pub.Close()
		publisher = pub

		mqConsumer, err = rabbitmq.NewConsumer(cfg.RabbitURL, rabbitmq.ScanQueue, rabbitmq.ScanRoutingKey)
		if err != nil {
			log.Fatalf("failed to start scan consumer: %v", err)
		}
		defer mqConsumer.Close()
	}

	gateway := payment.WithBreaker(newGateway(cfg), circuitbreaker.New("payment", circuitbreaker.DefaultSettings()))

	// Repositories
	eventRepo := repository.NewEventRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Services
	ledger := service.NewInventoryLedger(inventoryRepo, eventRepo, cfg.ReservationTTL)
	points := service.NewPointsService(userRepo, gateway, cfg.PointPrice, cfg.PaymentTimeout)
	tickets := service.NewTicketService(ticketRepo, eventRepo, ledger, ticketcode.NewSigner(cfg.TicketSigningKey), cfg.ResaleOnCancel)
	events := service.NewEventService(eventRepo, points, ledger, publisher, cfg.EventCreationCost)
	enrollments := service.NewEnrollmentService(enrollmentRepo, eventRepo)
	purchases := service.NewPurchaseService(orderRepo, eventRepo, ledger, tickets, gateway, locker, publisher, service.PurchaseConfig{
		PaymentTimeout: cfg.PaymentTimeout,
		ReservationTTL: cfg.ReservationTTL,
		LockTTL:        cfg.IdempotencyLockTTL,
	})

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			log.Printf("%s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "ticketing"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	handler.NewEventHandler(events).RegisterRoutes(api)
	handler.NewPurchaseHandler(purchases, tickets.Payload).RegisterRoutes(api)
	handler.NewEnrollmentHandler(enrollments).RegisterRoutes(api)
	handler.NewTicketHandler(tickets).RegisterRoutes(api)
	handler.NewPointsHandler(points).RegisterRoutes(api)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Ticketing service starting on :%s", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Println("Shutting down HTTP server")
		return e.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return worker.NewSweeper(ledger, purchases, points, tickets, cfg.SweepInterval).Run(gctx)
	})

	if mqConsumer != nil {
		msgs, err := mqConsumer.Consume()
		if err != nil {
			log.Fatalf("failed to start consuming: %v", err)
		}
		scans := consumer.NewScanConsumer(tickets, publisher)
		g.Go(func() error { return scans.Run(gctx, msgs) })
	}

	if err := g.Wait(); err != nil {
		log.Printf("Ticketing service stopped: %v", err)
		os.Exit(1)
	}
	log.Println("Ticketing service stopped")
}

func newGateway(cfg *config.Config) payment.Gateway {
	switch cfg.PaymentGateway {
	case "http":
		if cfg.PaymentGatewayURL == "" {
			log.Fatal("PAYMENT_GATEWAY_URL is required when PAYMENT_GATEWAY=http")
		}
		return payment.NewHTTPGateway(cfg.PaymentGatewayURL, cfg.PaymentCurrency, &http.Client{Timeout: cfg.PaymentTimeout})
	case "mock":
		log.Printf("[Payment] using mock gateway (success rate %.2f)", cfg.MockPaymentSuccessRate)
		return payment.NewMockGateway(cfg.MockPaymentSuccessRate, cfg.MockPaymentLatency)
	default:
		log.Fatalf("unknown PAYMENT_GATEWAY %q", cfg.PaymentGateway)
		return nil
	}
}
