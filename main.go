package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/angga0x/ownchat/internal/auth"
	"github.com/angga0x/ownchat/internal/config"
	"github.com/angga0x/ownchat/internal/db"
	"github.com/angga0x/ownchat/internal/handlers"
	"github.com/angga0x/ownchat/internal/middleware"
	"github.com/angga0x/ownchat/internal/observability"
	"github.com/angga0x/ownchat/internal/rabbitmq"
	"github.com/angga0x/ownchat/internal/repositories"
	"github.com/angga0x/ownchat/internal/telemetry"
	"github.com/angga0x/ownchat/internal/tracing"
	"github.com/angga0x/ownchat/internal/ws"
)

func main() {
	cfg := config.Load()

	shutdownTracing, err := tracing.Setup(context.Background(), cfg.OTLPEndpoint, "ownchat", cfg.Environment)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatalf("failed to create upload dir: %v", err)
	}

	broker := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer broker.Close()
	observability.SetPublisher(broker)
	auditEmitter := telemetry.NewAuditEmitter(broker, "audit.ownchat", cfg.Environment)

	userRepo := repositories.NewUserRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	sessions := auth.NewManager()
	registry := ws.NewRegistry()
	presence := ws.NewPresence(registry, userRepo)
	router := ws.NewRouter(registry, messageRepo, userRepo)
	status := ws.NewStatus(registry, messageRepo)
	typing := ws.NewTypingRelay(registry, ws.TypingWindow)
	socket := ws.NewSocketHandler(registry, presence, router, status, typing, sessions)

	authHandler := handlers.NewAuthHandler(userRepo, sessions, auditEmitter)
	userHandler := handlers.NewUserHandler(userRepo)
	messageHandler := handlers.NewMessageHandler(messageRepo, userRepo, router, status, auditEmitter, cfg.UploadDir)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(otelgin.Middleware("ownchat"))
	engine.Use(observability.HTTPMetricsMiddleware())

	engine.POST("/auth/register", authHandler.Register)
	engine.POST("/auth/login", authHandler.Login)

	authMiddleware := middleware.AuthMiddleware(sessions)

	engine.GET("/users", authMiddleware, userHandler.ListUsers)
	engine.GET("/messages/:partner_id", authMiddleware, messageHandler.GetConversation)
	engine.POST("/messages/image", authMiddleware, messageHandler.PostImage)
	engine.DELETE("/messages/:message_id/for-me", authMiddleware, messageHandler.DeleteForMe)
	engine.DELETE("/messages/:message_id/for-all", authMiddleware, messageHandler.DeleteForAll)
	for _, action := range []string{"pin", "unpin", "archive", "unarchive"} {
		engine.POST("/chats/:partner_id/"+action, authMiddleware, userHandler.ChatSetting(action))
	}

	engine.GET("/ws", socket.Handle)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.Static("/uploads", cfg.UploadDir)

	handlers.RegisterDebugRoutes(engine, auditEmitter, cfg.Debug)

	if err := engine.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
