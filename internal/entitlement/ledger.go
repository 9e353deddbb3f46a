package entitlement

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/franciscosanchezn/gin-entitlement-auth/internal/metrics"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/models"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/services"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// EventPaymentSucceeded is the only event type that records a purchase.
const EventPaymentSucceeded = "payment_intent.succeeded"

var ErrMalformedEvent = errors.New("malformed payment event")

// MetadataID is an identifier from payment metadata, sent either as a JSON
// string or a JSON number.
type MetadataID string

func (id *MetadataID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = MetadataID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("metadata id must be a string or a number: %w", err)
	}
	*id = MetadataID(n.String())
	return nil
}

// PaymentMetadata is the metadata attached to a charge when it is created.
type PaymentMetadata struct {
	AppID  MetadataID `json:"app_id"`
	UserID MetadataID `json:"user_id"`
	AnonID MetadataID `json:"anon_id"`
}

// PaymentEvent is a payment-confirmation event whose signature has already been verified.
type PaymentEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			Metadata PaymentMetadata `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// ParsePaymentEvent decodes a verified event payload.
func ParsePaymentEvent(payload []byte) (*PaymentEvent, error) {
	var event PaymentEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	if event.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	}
	return &event, nil
}

// Purchaser resolves the metadata to an application id and exactly one purchaser identity.
func (m PaymentMetadata) Purchaser() (string, Purchaser, error) {
	appID := string(m.AppID)
	if appID == "" {
		return "", Purchaser{}, fmt.Errorf("%w: missing app_id", ErrMalformedEvent)
	}

	hasUser, hasAnon := m.UserID != "", m.AnonID != ""
	switch {
	case hasUser && hasAnon:
		return "", Purchaser{}, fmt.Errorf("%w: both user_id and anon_id set", ErrMalformedEvent)
	case hasUser:
		userID, err := strconv.ParseUint(string(m.UserID), 10, 64)
		if err != nil || userID == 0 {
			return "", Purchaser{}, fmt.Errorf("%w: invalid user_id %q", ErrMalformedEvent, m.UserID)
		}
		return appID, Purchaser{UserID: uint(userID)}, nil
	case hasAnon:
		anonID, err := uuid.Parse(string(m.AnonID))
		if err != nil {
			return "", Purchaser{}, fmt.Errorf("%w: invalid anon_id: %w", ErrMalformedEvent, err)
		}
		return appID, Purchaser{AnonymousID: anonID.String()}, nil
	default:
		return "", Purchaser{}, fmt.Errorf("%w: neither user_id nor anon_id set", ErrMalformedEvent)
	}
}

// Ledger is the append-only record of confirmed purchases.
type Ledger struct {
	purchases services.PurchaseService
	now       func() time.Time
}

func NewLedger(purchases services.PurchaseService) *Ledger {
	return &Ledger{purchases: purchases, now: time.Now}
}

// RecordPurchase writes the purchase. It reports false when the purchaser
// already owned the application; duplicates are not an error.
func (l *Ledger) RecordPurchase(ctx context.Context, appID string, purchaser Purchaser) (bool, error) {
	var (
		created bool
		err     error
		kind    string
	)
	switch {
	case appID == "":
		return false, ErrMissingAppID
	case purchaser.UserID != 0:
		kind = "user"
		created, err = l.purchases.CreatePurchase(ctx, &models.Purchase{AppID: appID, UserID: purchaser.UserID})
	case purchaser.AnonymousID != "":
		kind = "anonymous"
		created, err = l.purchases.CreateAnonymousPurchase(ctx, &models.AnonymousPurchase{AppID: appID, UUID: purchaser.AnonymousID})
	default:
		return false, ErrNoPurchaser
	}
	if err != nil {
		return false, fmt.Errorf("failed to record purchase: %w", err)
	}

	outcome := "created"
	if !created {
		outcome = "duplicate"
	}
	metrics.PurchasesRecorded.WithLabelValues(kind, outcome).Inc()

	log.WithFields(log.Fields{
		"app_id":  appID,
		"subject": purchaser.Subject(),
		"outcome": outcome,
	}).Info("Recorded purchase")
	return created, nil
}

// HasActivePurchase reports whether the purchaser holds an unexpired purchase of appID.
func (l *Ledger) HasActivePurchase(ctx context.Context, purchaser Purchaser, appID string) (bool, error) {
	var err error
	switch {
	case purchaser.UserID != 0:
		_, err = l.purchases.FindActivePurchase(ctx, purchaser.UserID, appID, l.now())
	case purchaser.AnonymousID != "":
		_, err = l.purchases.FindActiveAnonymousPurchase(ctx, purchaser.AnonymousID, appID, l.now())
	default:
		return false, ErrNoPurchaser
	}
	if errors.Is(err, services.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// HandlePaymentEvent records the purchase carried by a succeeded payment.
// Other event types are acknowledged without effect.
func (l *Ledger) HandlePaymentEvent(ctx context.Context, event *PaymentEvent) (bool, error) {
	if event.Type != EventPaymentSucceeded {
		log.WithFields(log.Fields{
			"event_id": event.ID,
			"type":     event.Type,
		}).Debug("Ignoring payment event")
		return false, nil
	}

	appID, purchaser, err := event.Data.Object.Metadata.Purchaser()
	if err != nil {
		log.WithError(err).WithField("event_id", event.ID).Warn("Rejected payment event")
		return false, err
	}

	return l.RecordPurchase(ctx, appID, purchaser)
}
