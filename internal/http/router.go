package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tonirodriguezolivera/chiangmaiacademy/internal/http/handlers"
	"github.com/tonirodriguezolivera/chiangmaiacademy/internal/http/middleware"
	"github.com/tonirodriguezolivera/chiangmaiacademy/internal/modules/courses"
	"github.com/tonirodriguezolivera/chiangmaiacademy/internal/modules/gateway"
	"github.com/tonirodriguezolivera/chiangmaiacademy/internal/modules/payments"
)

func NewRouter(logger *slog.Logger, db *gorm.DB) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Recovery(logger),
		middleware.ErrorHandler(logger),
	)

	courseRepo := courses.NewRepo(db)
	payRepo := payments.NewRepo(db)

	paySvc := payments.NewService(payRepo, courseRepo)
	paySvc.SetLogger(logger)

	configRepo := gateway.NewConfigRepo(db)
	notifRepo := gateway.NewNotificationRepo(db)
	reconciler := gateway.NewReconciler(configRepo, payRepo, notifRepo)
	reconciler.SetLogger(logger)

	ph := handlers.NewPaymentHandler(logger, paySvc, courseRepo, configRepo, reconciler)
	ah := handlers.NewAdminGatewayHandler(logger, configRepo)

	pay := r.Group("/payment")
	{
		pay.POST("/buy/:courseID", ph.Buy)
		pay.GET("/process/:paymentID", ph.Process)
		pay.GET("/status/:paymentID", ph.Status)

		// Gateway-facing endpoints; must stay publicly reachable.
		pay.POST("/redsys/notification", ph.Notification)
		pay.GET("/redsys/ok", ph.ReturnOK)
		pay.GET("/redsys/ko", ph.ReturnKO)
	}

	admin := r.Group("/api/admin")
	{
		admin.GET("/gateway-config", ah.Get)
		admin.PUT("/gateway-config", ah.Update)
	}

	return r
}
