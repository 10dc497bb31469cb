package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"

	config "github.com/avvvet/serial-liars/configs"
	mongodb "github.com/avvvet/serial-liars/internal/db"
	"github.com/avvvet/serial-liars/internal/gamesvc/broker"
	svcconfig "github.com/avvvet/serial-liars/internal/gamesvc/config"
	"github.com/avvvet/serial-liars/internal/gamesvc/db"
	handlers "github.com/avvvet/serial-liars/internal/gamesvc/handlers"
	"github.com/avvvet/serial-liars/internal/gamesvc/identity"
	"github.com/avvvet/serial-liars/internal/gamesvc/service"
	"github.com/avvvet/serial-liars/internal/gamesvc/store"
	nats "github.com/avvvet/serial-liars/internal/nats"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "game"

var instanceId string

func init() {
	config.LoadEnv(SERVICE_NAME)
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId[:8])
}

func main() {
	cfg, err := svcconfig.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx := context.Background()

	// mongo holds the shared room documents
	mdb, err := mongodb.ConnectToDB(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongodb.Disconnect(context.Background(), mdb); err != nil {
			log.Warnf("MongoDB disconnect: %v", err)
		}
	}()
	if err := mongodb.CreateTTLIndexForCollection(ctx, mdb, cfg.RoomsCollection); err != nil {
		log.Fatalf("Failed to create TTL index on %s: %v", cfg.RoomsCollection, err)
	}
	log.Printf("mongo connection established successfully")

	// Connect to NATS
	n, err := nats.Connect(cfg.NatsURL, cfg.NatsToken, SERVICE_NAME+"-"+instanceId)
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(1)
	}
	defer n.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	ids := identity.NewDefault()

	// room snapshots fan out over NATS
	b := broker.NewBroker(broker.NewNatsTransport(n.Conn))
	rooms := store.NewRoomStore(store.NewMongoBackend(mdb, cfg.RoomsCollection), b, ids, cfg.DeletedRoomTTL)
	b.Rooms = rooms

	opts := []service.Option{service.WithOptimisticWrites(cfg.OptimisticWrites)}

	// the result ledger is optional
	var ledger handlers.Ledger
	if cfg.PostgresURL != "" {
		dbpool, err := db.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatalf("Failed to connect to DB: %v", err)
		}
		defer dbpool.Close()
		log.Printf("pg connection established successfully")

		results := store.NewResultStore(dbpool)
		if err := results.EnsureSchema(ctx); err != nil {
			log.Fatalf("Failed to prepare result ledger: %v", err)
		}
		opts = append(opts, service.WithResults(results))
		ledger = results
	} else {
		log.Warn("POSTGRES_URL not set, result ledger disabled")
	}

	engine := service.NewEngine(rooms, ids, opts...)

	// Setup router
	r := chi.NewRouter()
	c := config.CORS(cfg.CORSOrigins)

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(engine, b, rooms, ledger, cfg.Port)
	h.InitAuth(cfg.JWTSecret)
	h.SetRoutes(r)

	// Create server with timeout settings. No write timeout: websockets are long lived.
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
