// Package metrics exposes the server's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "entitlement_auth"

var (
	AuthorizationCodesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authorization_codes_issued_total",
		Help:      "Authorization codes issued after end-user consent.",
	})

	TokensIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Bearer tokens issued, by grant type.",
	}, []string{"grant_type"})

	TokensRevoked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_revoked_total",
		Help:      "Bearer tokens revoked through the revocation endpoint.",
	})

	OAuthErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "oauth_errors_total",
		Help:      "Protocol errors returned to callers, by error code.",
	}, []string{"error"})

	EntitlementsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entitlements_issued_total",
		Help:      "Entitlement tokens minted, by tier.",
	}, []string{"tier"})

	EntitlementsDenied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "entitlements_denied_total",
		Help:      "Application ids reported as denied in entitlement checks.",
	})

	PurchasesRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "purchases_recorded_total",
		Help:      "Purchases written to the ledger, by purchaser kind and outcome.",
	}, []string{"kind", "outcome"})
)
