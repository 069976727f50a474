package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"studychat/infrastructure/cache"
	"studychat/infrastructure/db"
	"studychat/infrastructure/ws"
	httpHandler "studychat/internal/delivery/http"
	"studychat/internal/delivery/websocket"
	"studychat/internal/events"
	"studychat/internal/repository"
	"studychat/internal/usecase"
	"studychat/pkg/jwt"
	"studychat/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("godotenv: error loading .env file")
	}

	log, err := logger.New(os.Getenv("ENV") != "production")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()

	mongoDbHost := os.Getenv("MONGODB_URI")
	mongoDbName := os.Getenv("MONGODB_DATABASE")
	mongoDb, err := db.NewMongoStore(ctx, mongoDbHost, mongoDbName)
	if err != nil {
		log.Fatalw("mongo connect failed", "err", err)
	}
	defer mongoDb.Close(ctx)

	if err := mongoDb.EnsureIndexes(ctx); err != nil {
		log.Fatalw("mongo index setup failed", "err", err)
	}

	log.Info("connected to MongoDB")

	// Initialize repositories
	messageRepo := repository.NewMessageRepository(*mongoDb.DB)
	unreadRepo := repository.NewUnreadRepository(*mongoDb.DB)
	groupRepo := repository.NewGroupRepository(*mongoDb.DB)

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "your-secret-key-change-this-in-production" // Default for development
		log.Warn("using default JWT secret, set JWT_SECRET in .env for production")
	}
	tokens := jwt.NewManager(jwtSecret)

	// Initialize use cases
	hot := cache.NewMemCache(10 * time.Minute)
	defer hot.Close()
	messageUc := usecase.NewMessageUsecase(messageRepo)
	conversationUc := usecase.NewConversationUsecase(groupRepo)
	unreadUc := usecase.NewUnreadUsecase(unreadRepo, hot)

	// Optional Kafka event stream
	var publisher *events.Publisher
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		topic := os.Getenv("KAFKA_TOPIC")
		if topic == "" {
			topic = "chat-events"
		}
		publisher = events.NewPublisher(strings.Split(brokers, ","), topic)
		defer publisher.Close()
		log.Infow("kafka event stream enabled", "topic", topic)
	}

	// Check if Redis is enabled
	redisAddr := os.Getenv("REDIS_ADDR")

	var hub ws.IHub
	if redisAddr != "" {
		serverID := os.Getenv("SERVER_ID")
		if serverID == "" {
			serverID = "server-1" // Default
		}
		log.Infow("using Redis hub", "addr", redisAddr, "serverId", serverID)
		hub = ws.NewRedisHub(redisAddr, serverID, log)
	} else {
		log.Info("using in-memory hub (single server)")
		hub = ws.NewHub(log)
	}

	go hub.Run()

	log.Info("websocket hub is running")

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "http://localhost:3000")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")

			// Handle preflight requests
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := mongoDb.Ping(r.Context()); err != nil {
			log.Warnw("health check failed", "err", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Initialize handlers
	websocketH := websocket.NewWebsocketHandler(hub, messageUc, conversationUc, unreadUc, publisher, tokens, log)
	httpH := httpHandler.NewHttpHandler(conversationUc, messageUc, unreadUc, log)
	authMiddleware := httpHandler.NewAuthMiddleware(tokens)

	// Map routes
	httpHandler.MapHttpRoutes(router, httpH, websocketH, authMiddleware)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Infow("HTTP server is running", "port", port)

	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatalw("server stopped", "err", err)
	}
}
