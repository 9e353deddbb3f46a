// Package entitlement mints and verifies signed tokens proving that a
// purchaser paid for an application, and records the purchases behind them.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/franciscosanchezn/gin-entitlement-auth/internal/metrics"
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

const (
	// PurchasedTTL is the lifetime of a token backed by a purchase.
	PurchasedTTL = 10 * 365 * 24 * time.Hour
	// TrialTTL is the lifetime of an unauthenticated trial token.
	TrialTTL = 10 * time.Minute

	DefaultIssuer = "gin-entitlement-auth"

	// TrialSubject carries no purchase linkage.
	TrialSubject = "users/0"
)

var (
	ErrInvalidEntitlement = errors.New("invalid entitlement token")
	ErrNoPurchaser        = errors.New("purchaser has neither a user id nor an anonymous id")
	ErrMissingAppID       = errors.New("missing application id")
)

// Claims is the payload of an entitlement token.
type Claims struct {
	Prefixes []string `json:"prefixes"`
	jwt.RegisteredClaims
}

// Purchaser identifies who paid: a signed-in user or an anonymous UUID.
type Purchaser struct {
	UserID      uint
	AnonymousID string
}

// Subject returns the sub claim for the purchaser.
func (p Purchaser) Subject() string {
	if p.UserID != 0 {
		return "users/" + strconv.FormatUint(uint64(p.UserID), 10)
	}
	return "anonymous/" + p.AnonymousID
}

func (p Purchaser) valid() bool {
	return p.UserID != 0 || p.AnonymousID != ""
}

// BatchResult partitions requested application ids into signed tokens and denials.
type BatchResult struct {
	Denied []string          `json:"denied"`
	Tokens map[string]string `json:"tokens"`
}

// PurchaseChecker answers whether a purchaser holds an active purchase.
type PurchaseChecker interface {
	HasActivePurchase(ctx context.Context, purchaser Purchaser, appID string) (bool, error)
}

type Issuer struct {
	keys   *Keyring
	ledger PurchaseChecker
	issuer string
	now    func() time.Time
}

func NewIssuer(keys *Keyring, ledger PurchaseChecker, issuer string) *Issuer {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return &Issuer{
		keys:   keys,
		ledger: ledger,
		issuer: issuer,
		now:    time.Now,
	}
}

// IssueForPurchaser signs a long-lived token for every id the purchaser has an
// active purchase for. The rest are returned as denied.
func (i *Issuer) IssueForPurchaser(ctx context.Context, purchaser Purchaser, appIDs []string) (*BatchResult, error) {
	if !purchaser.valid() {
		return nil, ErrNoPurchaser
	}

	result := &BatchResult{Denied: []string{}, Tokens: map[string]string{}}
	seen := make(map[string]struct{}, len(appIDs))

	for _, appID := range appIDs {
		if _, dup := seen[appID]; dup {
			continue
		}
		seen[appID] = struct{}{}

		if appID == "" {
			result.Denied = append(result.Denied, appID)
			continue
		}

		ok, err := i.ledger.HasActivePurchase(ctx, purchaser, appID)
		if err != nil {
			return nil, fmt.Errorf("failed to check purchase of %s: %w", appID, err)
		}
		if !ok {
			result.Denied = append(result.Denied, appID)
			metrics.EntitlementsDenied.Inc()
			continue
		}

		token, err := i.sign(purchaser.Subject(), appID, PurchasedTTL)
		if err != nil {
			return nil, err
		}
		result.Tokens[appID] = token
		metrics.EntitlementsIssued.WithLabelValues("purchased").Inc()
	}

	log.WithFields(log.Fields{
		"subject": purchaser.Subject(),
		"granted": len(result.Tokens),
		"denied":  len(result.Denied),
	}).Debug("Processed entitlement batch")
	return result, nil
}

// IssueAnonymousTrial signs a short-lived token for appID. It is not proof of payment.
func (i *Issuer) IssueAnonymousTrial(appID string) (string, error) {
	if appID == "" {
		return "", ErrMissingAppID
	}
	token, err := i.sign(TrialSubject, appID, TrialTTL)
	if err != nil {
		return "", err
	}
	metrics.EntitlementsIssued.WithLabelValues("trial").Inc()
	return token, nil
}

// Verify checks the signature, expiry and issuer of an entitlement token.
func (i *Issuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, i.keys.Keyfunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEntitlement, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidEntitlement
	}
	return claims, nil
}

func (i *Issuer) sign(subject, appID string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		Prefixes: []string{appID},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := i.keys.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign entitlement: %w", err)
	}
	return signed, nil
}
