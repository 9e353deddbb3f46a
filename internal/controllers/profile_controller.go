package controllers

import (
	"net/http"

	"github.com/franciscosanchezn/gin-entitlement-auth/internal/middleware"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/models"
	"github.com/gin-gonic/gin"
)

type ProfileController struct{}

func NewProfileController() *ProfileController {
	return &ProfileController{}
}

// Profile is the resource-server view of the token's user.
type Profile struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Stripe   string `json:"stripe"`
}

// Me godoc
// @Summary Current user profile
// @Description Return the user the bearer token was issued for
// @Tags Profile
// @Produce json
// @Success 200 {object} Profile
// @Failure 401 {object} models.OAuth2Error
// @Failure 403 {object} models.OAuth2Error
// @Security BearerAuth
// @Router /api/me [get]
func (pc *ProfileController) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.NewOAuth2Error(models.ErrInvalidToken, "no authenticated user"))
		return
	}

	c.JSON(http.StatusOK, Profile{
		ID:       user.ID,
		Username: user.Username,
		Stripe:   user.StripeCustomerID,
	})
}
