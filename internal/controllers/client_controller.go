package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/franciscosanchezn/gin-entitlement-auth/internal/auth"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/middleware"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/models"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type ClientController struct {
	clientService services.ClientService
}

func NewClientController(clientService services.ClientService) *ClientController {
	return &ClientController{clientService: clientService}
}

// ClientRegistrationResponse is returned once at registration; the secret is not retrievable later.
type ClientRegistrationResponse struct {
	ClientID              string `json:"client_id"`
	ClientSecret          string `json:"client_secret,omitempty"`
	ClientIDIssuedAt      int64  `json:"client_id_issued_at"`
	ClientSecretExpiresAt int64  `json:"client_secret_expires_at"`
	models.ClientMetadata
}

// CreateClient godoc
// @Summary Register OAuth2 client
// @Description Register a new OAuth2 client owned by the authenticated user
// @Tags OAuth2 Clients
// @Accept json
// @Produce json
// @Param client body models.ClientMetadata true "Client metadata"
// @Success 201 {object} ClientRegistrationResponse "Client created with client_id and client_secret"
// @Failure 400 {object} models.APIError "Invalid metadata"
// @Failure 500 {object} models.APIError "Client creation failed"
// @Security BearerAuth
// @Router /api/v1/clients [post]
func (cc *ClientController) CreateClient(c *gin.Context) {
	var metadata models.ClientMetadata
	if err := c.ShouldBindJSON(&metadata); err != nil {
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrBadRequest, err.Error()))
		return
	}

	metadata.Normalize()
	if err := metadata.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrValidationFailed, err.Error()))
		return
	}

	client := &models.OAuthClient{
		ID:       uuid.New().String(),
		UserID:   c.GetUint(middleware.UserIDKey),
		IssuedAt: time.Now().UTC(),
		Metadata: metadata,
	}

	// Public clients authenticate with PKCE alone.
	var secret string
	if metadata.TokenEndpointAuthMethod != models.AuthMethodNone {
		var err error
		if secret, err = auth.GenerateClientSecret(); err != nil {
			log.WithError(err).Error("Failed to generate client secret")
			c.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "secret_generation_failed"))
			return
		}
		if client.Secret, err = auth.HashClientSecret(secret); err != nil {
			log.WithError(err).Error("Failed to hash client secret")
			c.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "secret_generation_failed"))
			return
		}
	}

	if err := cc.clientService.CreateClient(c.Request.Context(), client); err != nil {
		log.WithError(err).Error("Failed to store client")
		c.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "client_creation_failed"))
		return
	}

	log.WithFields(log.Fields{
		"client_id": client.ID,
		"user_id":   client.UserID,
		"method":    metadata.TokenEndpointAuthMethod,
	}).Info("Registered OAuth client")

	c.JSON(http.StatusCreated, ClientRegistrationResponse{
		ClientID:         client.ID,
		ClientSecret:     secret, // Return plain secret only once
		ClientIDIssuedAt: client.IssuedAt.Unix(),
		ClientMetadata:   client.Metadata,
	})
}

// ListClients godoc
// @Summary List OAuth2 clients
// @Description Get all OAuth2 clients owned by the authenticated user
// @Tags OAuth2 Clients
// @Produce json
// @Success 200 {array} models.OAuthClient "List of clients"
// @Failure 500 {object} models.APIError "Failed to retrieve clients"
// @Security BearerAuth
// @Router /api/v1/clients [get]
func (cc *ClientController) ListClients(c *gin.Context) {
	userID := c.GetUint(middleware.UserIDKey)
	clients, err := cc.clientService.GetClientsByUserID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "failed_to_retrieve_clients"))
		return
	}

	c.JSON(http.StatusOK, clients)
}

// DeleteClient godoc
// @Summary Delete OAuth2 client
// @Description Delete an OAuth2 client owned by the authenticated user
// @Tags OAuth2 Clients
// @Param id path string true "Client ID"
// @Success 204 "Client deleted successfully"
// @Failure 404 {object} models.APIError "Client not found"
// @Security BearerAuth
// @Router /api/v1/clients/{id} [delete]
func (cc *ClientController) DeleteClient(c *gin.Context) {
	clientID := c.Param("id")
	userID := c.GetUint(middleware.UserIDKey)

	if err := cc.clientService.DeleteClient(c.Request.Context(), clientID, userID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.NewAPIError(models.ErrNotFound, "client_not_found"))
			return
		}
		c.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "client_deletion_failed"))
		return
	}

	log.WithFields(log.Fields{"client_id": clientID, "user_id": userID}).Info("Deleted OAuth client")
	c.Status(http.StatusNoContent)
}
