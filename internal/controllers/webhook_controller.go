package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/franciscosanchezn/gin-entitlement-auth/internal/entitlement"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/models"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/webhook"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const maxWebhookBody = 64 << 10

type WebhookController struct {
	verifier *webhook.Verifier
	ledger   *entitlement.Ledger
}

func NewWebhookController(verifier *webhook.Verifier, ledger *entitlement.Ledger) *WebhookController {
	return &WebhookController{verifier: verifier, ledger: ledger}
}

// PaymentEvent godoc
// @Summary Payment confirmation webhook
// @Description Record the purchase carried by a signed payment_intent.succeeded event. Other event types are acknowledged.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "t=<unix>,v1=<hex hmac>"
// @Success 200 {object} map[string]bool "received"
// @Failure 400 {object} models.APIError
// @Failure 500 {object} models.APIError
// @Router /webhooks/payments [post]
func (wc *WebhookController) PaymentEvent(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrBadRequest, "unreadable body"))
		return
	}

	if err := wc.verifier.Verify(payload, c.GetHeader(webhook.SignatureHeader)); err != nil {
		log.WithError(err).Warn("Rejected payment webhook signature")
		if errors.Is(err, webhook.ErrMissingSecret) {
			c.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "webhook secret not configured"))
			return
		}
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrInvalidSignature, err.Error()))
		return
	}

	event, err := entitlement.ParsePaymentEvent(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrMalformedEvent, err.Error()))
		return
	}

	created, err := wc.ledger.HandlePaymentEvent(c.Request.Context(), event)
	if err != nil {
		if errors.Is(err, entitlement.ErrMalformedEvent) {
			c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrMalformedEvent, err.Error(),
				map[string]interface{}{"event_id": event.ID}))
			return
		}
		log.WithError(err).WithField("event_id", event.ID).Error("Failed to record payment event")
		c.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "purchase_recording_failed"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true, "recorded": created})
}
