package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tonirodriguezolivera/chiangmaiacademy/internal/http/middleware"
	"github.com/tonirodriguezolivera/chiangmaiacademy/internal/modules/courses"
	"github.com/tonirodriguezolivera/chiangmaiacademy/internal/modules/gateway"
	"github.com/tonirodriguezolivera/chiangmaiacademy/internal/modules/payments"
	"github.com/tonirodriguezolivera/chiangmaiacademy/internal/shared/apperr"
)

type PaymentHandler struct {
	Logger     *slog.Logger
	PaySvc     *payments.Service
	Courses    *courses.Repo
	Configs    *gateway.ConfigRepo
	Reconciler *gateway.Reconciler
}

func NewPaymentHandler(logger *slog.Logger, paySvc *payments.Service, courseRepo *courses.Repo, configs *gateway.ConfigRepo, rec *gateway.Reconciler) *PaymentHandler {
	return &PaymentHandler{Logger: logger, PaySvc: paySvc, Courses: courseRepo, Configs: configs, Reconciler: rec}
}

// POST /payment/buy/:courseID
// Creates a pending payment for the course and points the client at the
// processing page.
func (h *PaymentHandler) Buy(c *gin.Context) {
	courseID, err := strconv.ParseInt(c.Param("courseID"), 10, 64)
	if err != nil {
		middleware.Fail(c, apperr.InvalidErr("Curso no válido.", nil))
		return
	}

	p, err := h.PaySvc.StartPurchase(c.Request.Context(), courseID)
	if err != nil {
		if errors.Is(err, payments.ErrCourseNotAvailable) {
			middleware.Fail(c, apperr.NotFoundErr("Curso no encontrado."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"payment_id": p.ID,
		"amount":     p.Amount,
		"process":    "/payment/process/" + strconv.FormatInt(p.ID, 10),
	})
}

// GET /payment/process/:paymentID
// Returns the auto-submit form payload towards the gateway's hosted page.
func (h *PaymentHandler) Process(c *gin.Context) {
	p, ok := h.lookupPayment(c)
	if !ok {
		return
	}

	if p.Status == payments.StatusCompleted {
		c.JSON(http.StatusOK, gin.H{"payment_id": p.ID, "status": p.Status})
		return
	}

	course, found, err := h.Courses.Get(c.Request.Context(), p.CourseID)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	description := ""
	if found {
		description = course.Title
	}

	cfg, err := h.Configs.GetActive(c.Request.Context())
	if err != nil {
		h.failGateway(c, err)
		return
	}

	req, err := gateway.BuildPaymentRequest(gateway.BuildInput{
		PaymentID:     p.ID,
		Amount:        p.Amount,
		Description:   description,
		RequestOrigin: requestOrigin(c),
	}, cfg)
	if err != nil {
		h.failGateway(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment_id":            p.ID,
		"status":                p.Status,
		"endpoint_url":          req.EndpointURL,
		"Ds_SignatureVersion":   req.SignatureVersion,
		"Ds_MerchantParameters": req.MerchantParameters,
		"Ds_Signature":          req.Signature,
	})
}

type notificationInput struct {
	MerchantParameters string `form:"Ds_MerchantParameters" binding:"required"`
	Signature          string `form:"Ds_Signature" binding:"required"`
}

// POST /payment/redsys/notification
// Publicly reachable, unauthenticated; the signature is the authentication.
// Replies 200 with a minimal body for every reconciliation outcome so the
// gateway stops retrying; retries are safe because settled payments absorb
// duplicates as no-ops.
func (h *PaymentHandler) Notification(c *gin.Context) {
	var in notificationInput
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "missing parameters"})
		return
	}

	result, err := h.Reconciler.Reconcile(c.Request.Context(), in.MerchantParameters, in.Signature)
	if err != nil {
		h.Logger.Warn("notification rejected",
			"request_id", middleware.GetRequestID(c), "err", err)
		c.JSON(http.StatusOK, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"payment_id": result.PaymentID,
		"result":     result.Status,
	})
}

// GET /payment/redsys/ok and /payment/redsys/ko
// Return-redirect landing. The parameters are decoded for display only; this
// path carries no signature verification and never mutates payment state —
// only the server-to-server notification is trust-bearing.
func (h *PaymentHandler) ReturnOK(c *gin.Context) { h.returnPage(c, true) }
func (h *PaymentHandler) ReturnKO(c *gin.Context) { h.returnPage(c, false) }

func (h *PaymentHandler) returnPage(c *gin.Context, ok bool) {
	payload := gin.H{"ok": ok}

	if envelope := c.Query("Ds_MerchantParameters"); envelope != "" {
		if params, err := gateway.DecodeMerchantParameters(envelope); err == nil {
			payload["order"] = params["Ds_Order"]
			payload["response_code"] = params["Ds_Response"]
		}
	}

	c.JSON(http.StatusOK, payload)
}

// GET /payment/status/:paymentID
func (h *PaymentHandler) Status(c *gin.Context) {
	p, ok := h.lookupPayment(c)
	if !ok {
		return
	}

	payload := gin.H{"payment_id": p.ID, "status": p.Status}
	if p.TransactionID != nil {
		payload["transaction_id"] = *p.TransactionID
	}
	if p.CompletedAt != nil {
		payload["completed_at"] = *p.CompletedAt
	}
	c.JSON(http.StatusOK, payload)
}

func (h *PaymentHandler) lookupPayment(c *gin.Context) (payments.Payment, bool) {
	id, err := strconv.ParseInt(c.Param("paymentID"), 10, 64)
	if err != nil {
		middleware.Fail(c, apperr.InvalidErr("Pago no válido.", nil))
		return payments.Payment{}, false
	}

	p, err := h.PaySvc.GetPayment(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, payments.ErrNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Pago no encontrado."))
			return payments.Payment{}, false
		}
		middleware.Fail(c, apperr.Wrap(err))
		return payments.Payment{}, false
	}
	return p, true
}

func (h *PaymentHandler) failGateway(c *gin.Context, err error) {
	if errors.Is(err, gateway.ErrConfigIncomplete) {
		middleware.Fail(c, &apperr.AppError{
			Kind:      apperr.Conflict,
			PublicMsg: "La pasarela de pago no está configurada correctamente. Por favor, contacte con el administrador.",
			Err:       err,
		})
		return
	}
	middleware.Fail(c, apperr.Wrap(err))
}

func requestOrigin(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}
