package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"trip-service/internal/auth"
	"trip-service/internal/db"
	"trip-service/internal/handlers"
	"trip-service/internal/middleware"
	"trip-service/internal/observability"
	"trip-service/internal/rabbitmq"
	"trip-service/internal/repositories"
	"trip-service/internal/telemetry"
	"trip-service/internal/tracing"
	"trip-service/internal/ws"
)

const serviceName = "trip-service"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	ctx := context.Background()

	shutdownTracing, err := tracing.Init(ctx, serviceName, os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("tracing shutdown error: %v", err)
		}
	}()

	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	amqpURL := os.Getenv("RABBITMQ_URL")
	publisher := rabbitmq.NewPublisher(amqpURL, getEnv("AUDIT_EXCHANGE", "audit.events"))
	defer publisher.Close()
	log.Printf("event publisher mode: %s", rabbitmq.PublisherMode(publisher))

	audit := telemetry.NewAuditEmitter(publisher, getEnv("AUDIT_ROUTING_KEY", "audit.trip-service"), serviceName, getEnv("ENVIRONMENT", "development"))

	if amqpURL != "" {
		amqpPublisher, err := observability.NewAMQPPublisher(amqpURL, getEnv("WS_EVENTS_EXCHANGE", "ws.events"))
		if err != nil {
			log.Printf("observability publisher unavailable: %v", err)
		} else {
			observability.SetPublisher(amqpPublisher)
			defer amqpPublisher.Close()
		}
	}

	tripRepo := repositories.NewTripRepo(database)
	discussionRepo := repositories.NewDiscussionRepo(database)
	chatRepo := repositories.NewChatRepo(database)
	chatMessageRepo := repositories.NewChatMessageRepo(database)
	ratingRepo := repositories.NewRatingRepo(database)
	orderRepo := repositories.NewOrderRepo(database)
	userRepo := repositories.NewUserRepo(database)

	hub := ws.NewHub()

	verifier := middleware.NewTokenVerifier([]byte(getEnv("JWT_SECRET", "dev-secret")))
	policy := auth.NewPolicy(parseAdminIDs(os.Getenv("ADMIN_USER_IDS")))

	tripHandler := handlers.NewTripHandler(tripRepo, discussionRepo, userRepo, hub, audit, policy)
	discussionHandler := handlers.NewDiscussionHandler(tripRepo, discussionRepo, userRepo, hub, audit)
	chatHandler := handlers.NewChatHandler(chatRepo, chatMessageRepo, tripRepo, userRepo, hub, audit)
	ratingHandler := handlers.NewRatingHandler(ratingRepo, tripRepo, userRepo, audit)
	orderHandler := handlers.NewOrderHandler(orderRepo, userRepo, hub, audit)

	tripWS := ws.NewTripWebSocketHandler(hub, tripRepo, verifier)
	userWS := ws.NewUserWebSocketHandler(hub, verifier)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(verifier)

	router.POST("/trips", authMiddleware, tripHandler.CreateTrip)
	router.GET("/trips", authMiddleware, tripHandler.ListTrips)
	router.GET("/trips/:trip_id", authMiddleware, tripHandler.GetTrip)
	router.PUT("/trips/:trip_id", authMiddleware, tripHandler.UpdateTrip)
	router.DELETE("/trips/:trip_id", authMiddleware, tripHandler.DeleteTrip)
	router.POST("/trips/:trip_id/approve", authMiddleware, tripHandler.ApproveTrip)
	router.POST("/trips/:trip_id/join", authMiddleware, tripHandler.JoinTrip)
	router.POST("/trips/:trip_id/leave", authMiddleware, tripHandler.LeaveTrip)
	router.PUT("/trips/:trip_id/itinerary", authMiddleware, tripHandler.UpdateItinerary)

	router.GET("/discussions/trip/:trip_id", authMiddleware, discussionHandler.GetDiscussion)
	router.POST("/discussions/trip/:trip_id/messages", authMiddleware, discussionHandler.SendMessage)
	router.POST("/discussions/trip/:trip_id/typing", authMiddleware, discussionHandler.UpdateTyping)
	router.POST("/discussions/trip/:trip_id/active", authMiddleware, discussionHandler.MarkActive)

	router.POST("/chats", authMiddleware, chatHandler.CreateDirectChat)
	router.GET("/chats", authMiddleware, chatHandler.ListChats)
	router.GET("/chats/:chat_id", authMiddleware, chatHandler.GetChat)
	router.GET("/chats/:chat_id/messages", authMiddleware, chatHandler.GetChatMessages)
	router.POST("/chats/:chat_id/messages", authMiddleware, chatHandler.SendChatMessage)
	router.POST("/chats/:chat_id/read", authMiddleware, chatHandler.MarkAsRead)
	router.DELETE("/chats/:chat_id/messages/:message_id", authMiddleware, chatHandler.DeleteMessage)

	router.POST("/trips/:trip_id/qa", authMiddleware, chatHandler.OpenTripQA)
	router.GET("/trips/:trip_id/questions", authMiddleware, chatHandler.ListQuestions)
	router.POST("/trips/:trip_id/questions/:message_id/answer", authMiddleware, chatHandler.AnswerQuestion)

	router.POST("/ratings/:target_type/:target_id", authMiddleware, ratingHandler.SubmitRating)
	router.GET("/ratings/:target_type/:target_id", authMiddleware, ratingHandler.ListRatings)
	router.GET("/users/me/ratings", authMiddleware, ratingHandler.ListOwnRatings)
	router.POST("/ratings/:target_type/:target_id/:rating_id/helpful", authMiddleware, ratingHandler.VoteHelpful)
	router.POST("/ratings/:target_type/:target_id/:rating_id/report", authMiddleware, ratingHandler.ReportRating)

	router.POST("/orders", authMiddleware, orderHandler.CreateOrder)
	router.GET("/orders", authMiddleware, orderHandler.ListOrders)
	router.GET("/orders/:order_id", authMiddleware, orderHandler.GetOrder)
	router.PUT("/orders/:order_id/status", authMiddleware, orderHandler.UpdateStatus)
	router.PUT("/orders/:order_id/cancel", authMiddleware, orderHandler.Cancel)
	router.POST("/orders/:order_id/refund", authMiddleware, orderHandler.Refund)

	router.GET("/ws/trips/:trip_id", tripWS.Handle)
	router.GET("/ws/user", userWS.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, audit, hub, getEnv("DEBUG_ROUTES", "") == "true")

	port := getEnv("PORT", "8083")
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func parseAdminIDs(raw string) []int {
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			log.Printf("skipping invalid admin id %q", part)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
