package server

import (
	"net/http"

	"supportdesk/internal/bot_engine"
	"supportdesk/internal/handler"
	"supportdesk/internal/middleware"
	"supportdesk/internal/repository"
	"supportdesk/internal/service"
	"supportdesk/internal/training"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

type Server struct {
	router *gin.Engine
	logger *zap.Logger
}

// NewServer wires repositories, services and handlers onto the router. The
// user/auth vertical logs through logrus, everything else through zap.
func NewServer(db *sqlx.DB, engine *bot_engine.Engine, trainingStore *training.Store, logger *zap.Logger, authLog *logrus.Logger) *Server {
	router := gin.Default()

	s := &Server{
		router: router,
		logger: logger,
	}

	userRepo := repository.NewUserRepository(db, authLog)
	ticketRepo := repository.NewTicketRepository(db, logger)
	billingRepo := repository.NewBillingRepository(db, logger)

	authService := service.NewAuthService(userRepo, logger)

	userHandler := handler.NewUserHandler(authService, userRepo, authLog)
	ticketHandler := handler.NewTicketHandler(ticketRepo, logger)
	billingHandler := handler.NewBillingHandler(billingRepo, logger)
	botHandler := handler.NewBotHandler(engine, trainingStore, logger)

	// Ping route for health check
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	botGroup := router.Group("/api/bot")
	{
		botGroup.POST("/message", botHandler.HandleUserMessage)
		botGroup.POST("/add", botHandler.AddResponse)
		botGroup.PUT("/update-response/:message", botHandler.UpdateResponse)
		botGroup.GET("/unknown", botHandler.GetUnknownMessages)
	}

	userGroup := router.Group("/api/users")
	{
		userGroup.POST("/register", userHandler.Register)
		userGroup.POST("/login", userHandler.Login)
		userGroup.POST("/forget-password", userHandler.ForgetPassword)
		userGroup.POST("/reset-password", userHandler.ResetPassword)
		userGroup.GET("", userHandler.GetAllUsers)
		userGroup.GET("/:id", userHandler.GetUser)

		protected := userGroup.Group("")
		protected.Use(middleware.AuthMiddleware(logger))
		{
			protected.PUT("/:id", userHandler.UpdateUser)
			protected.DELETE("/:id", userHandler.DeleteUser)
		}
	}

	ticketGroup := router.Group("/api/tickets")
	{
		ticketGroup.POST("", ticketHandler.CreateTicket)
		ticketGroup.GET("", ticketHandler.GetAllTickets)
		ticketGroup.GET("/:id", ticketHandler.GetTicketByID)
		ticketGroup.PUT("/:id", ticketHandler.UpdateTicket)
		ticketGroup.DELETE("/:id", ticketHandler.DeleteTicket)
	}

	billGroup := router.Group("/api/bills")
	{
		billGroup.POST("", billingHandler.CreateBillingRecord)
		billGroup.PUT("/update-status", billingHandler.UpdatePaymentStatus)
		billGroup.GET("/:userId", billingHandler.GetBillingDetails)
		billGroup.PUT("/:userId/update-address", billingHandler.UpdateBillingAddress)
		billGroup.DELETE("/:id", billingHandler.DeleteBillingRecord)
	}

	return s
}

func (s *Server) Run(addr string) {
	s.logger.Info("Server starting", zap.String("port", addr))
	if err := s.router.Run(addr); err != nil {
		s.logger.Fatal("Server failed to start", zap.Error(err))
	}
}
