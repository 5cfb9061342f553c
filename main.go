package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chat-relay/internal/auth"
	"chat-relay/internal/config"
	"chat-relay/internal/db"
	"chat-relay/internal/handlers"
	"chat-relay/internal/middleware"
	"chat-relay/internal/observability"
	"chat-relay/internal/rabbitmq"
	"chat-relay/internal/registry"
	"chat-relay/internal/repositories"
	"chat-relay/internal/router"
	"chat-relay/internal/telemetry"
	"chat-relay/internal/ws"
)

func main() {
	cfg := config.Load()

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	shutdownTracer := observability.InitTracer(context.Background(), "chat-relay")
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Printf("tracer shutdown: %v", err)
		}
	}()

	if publisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange); err != nil {
		log.Printf("event publishing disabled: %v", err)
	} else {
		observability.SetPublisher(publisher)
		defer publisher.Close()
	}

	auditPublisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer auditPublisher.Close()
	audit := telemetry.NewAuditEmitter(auditPublisher, "audit.chat_relay", "chat-relay", cfg.Environment)

	userRepo := repositories.NewUserRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	groupRepo := repositories.NewGroupRepo(database)

	verifier := auth.NewBcryptVerifier(userRepo)
	sessions := registry.New()
	msgRouter := router.New(sessions, messageRepo)

	wsHandler := ws.NewHandler(sessions, msgRouter, userRepo, verifier, cfg.MaxConns)
	userHandler := handlers.NewUserHandler(userRepo, sessions, audit)
	messageHandler := handlers.NewMessageHandler(messageRepo)
	groupHandler := handlers.NewGroupHandler(groupRepo, userRepo, audit)

	engine := gin.Default()
	engine.Use(gin.Recovery())
	engine.Use(otelgin.Middleware("chat-relay"))
	engine.Use(observability.HTTPMetricsMiddleware())

	basicAuth := middleware.BasicAuth(verifier)

	engine.POST("/users", userHandler.Register)
	engine.GET("/users/:user_id/presence", basicAuth, userHandler.Presence)
	engine.GET("/messages/:peer_id", basicAuth, messageHandler.History)
	engine.PUT("/messages/:message_id/read", basicAuth, messageHandler.MarkRead)

	engine.POST("/groups", basicAuth, groupHandler.CreateGroup)
	engine.GET("/groups", basicAuth, groupHandler.ListGroups)
	engine.GET("/groups/:group_id", basicAuth, groupHandler.GetGroup)
	engine.POST("/groups/:group_id/members", basicAuth, groupHandler.AddMember)
	engine.DELETE("/groups/:group_id/members/:user_id", basicAuth, groupHandler.RemoveMember)

	engine.GET("/ws", wsHandler.Handle)

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "sessions": sessions.Len()})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(engine, audit, cfg.DebugRoutes)

	if err := engine.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
