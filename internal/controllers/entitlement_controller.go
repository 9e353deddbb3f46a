package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/franciscosanchezn/gin-entitlement-auth/internal/entitlement"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/middleware"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

type EntitlementController struct {
	issuer *entitlement.Issuer
}

func NewEntitlementController(issuer *entitlement.Issuer) *EntitlementController {
	return &EntitlementController{issuer: issuer}
}

type entitlementRequest struct {
	IDs    []string `json:"ids" binding:"required,max=100"`
	AnonID string   `json:"anon_id" binding:"omitempty,uuid"`
}

type trialRequest struct {
	ID string `json:"id" binding:"required"`
}

type verifyRequest struct {
	Token string `json:"token" binding:"required"`
}

// VerifyResponse describes a valid entitlement token.
type VerifyResponse struct {
	Prefixes  []string `json:"prefixes"`
	Subject   string   `json:"sub"`
	Issuer    string   `json:"iss"`
	IssuedAt  int64    `json:"iat"`
	ExpiresAt int64    `json:"exp"`
}

// CheckEntitlements godoc
// @Summary Check purchased entitlements
// @Description Sign a long-lived entitlement token for every requested app the caller purchased.
// @Description The caller is the bearer token's user, or the anonymous purchaser named by anon_id.
// @Tags entitlements
// @Accept json
// @Produce json
// @Param request body entitlementRequest true "Application ids and optional anonymous id"
// @Success 200 {object} entitlement.BatchResult
// @Failure 400 {object} models.APIError
// @Failure 401 {object} models.OAuth2Error
// @Security BearerAuth
// @Router /api/v1/entitlements [post]
func (ec *EntitlementController) CheckEntitlements(c *gin.Context) {
	var req entitlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrBadRequest, err.Error()))
		return
	}

	var purchaser entitlement.Purchaser
	if user, ok := middleware.CurrentUser(c); ok {
		purchaser.UserID = user.ID
	} else if req.AnonID != "" {
		purchaser.AnonymousID = strings.ToLower(req.AnonID)
	} else {
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrBadRequest, "a bearer token or anon_id is required"))
		return
	}

	result, err := ec.issuer.IssueForPurchaser(c.Request.Context(), purchaser, req.IDs)
	if err != nil {
		log.WithError(err).WithField("subject", purchaser.Subject()).Error("Entitlement check failed")
		c.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "entitlement_check_failed"))
		return
	}
	c.JSON(http.StatusOK, result)
}

// IssueTrial godoc
// @Summary Issue trial entitlement
// @Description Sign a short-lived entitlement token for one app without proof of purchase
// @Tags entitlements
// @Accept json
// @Produce json
// @Param request body trialRequest true "Application id"
// @Success 200 {object} map[string]string "token"
// @Failure 400 {object} models.APIError
// @Router /api/v1/entitlements/trial [post]
func (ec *EntitlementController) IssueTrial(c *gin.Context) {
	var req trialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrBadRequest, err.Error()))
		return
	}

	token, err := ec.issuer.IssueAnonymousTrial(req.ID)
	if err != nil {
		log.WithError(err).Error("Trial entitlement failed")
		c.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "trial_issue_failed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// VerifyEntitlement godoc
// @Summary Verify entitlement token
// @Description Check the signature, issuer and expiry of an entitlement token against every configured key
// @Tags entitlements
// @Accept json
// @Produce json
// @Param request body verifyRequest true "Entitlement token"
// @Success 200 {object} VerifyResponse
// @Failure 400 {object} models.APIError
// @Failure 401 {object} models.APIError
// @Router /api/v1/entitlements/verify [post]
func (ec *EntitlementController) VerifyEntitlement(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrBadRequest, err.Error()))
		return
	}

	claims, err := ec.issuer.Verify(req.Token)
	if err != nil {
		details := map[string]interface{}{"expired": errors.Is(err, jwt.ErrTokenExpired)}
		c.JSON(http.StatusUnauthorized, models.NewAPIError(models.ErrUnauthorized, "invalid entitlement token", details))
		return
	}

	resp := VerifyResponse{
		Prefixes: claims.Prefixes,
		Subject:  claims.Subject,
		Issuer:   claims.Issuer,
	}
	if claims.IssuedAt != nil {
		resp.IssuedAt = claims.IssuedAt.Unix()
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Unix()
	}
	c.JSON(http.StatusOK, resp)
}
