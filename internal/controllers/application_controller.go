package controllers

import (
	"errors"
	"net/http"

	"github.com/franciscosanchezn/gin-entitlement-auth/internal/models"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/services"
	"github.com/gin-gonic/gin"
)

// ApplicationController handles HTTP requests related to the application catalog
type ApplicationController interface {
	// GetAllApplications retrieves all applications
	GetAllApplications(c *gin.Context)
	// GetApplicationByID retrieves an application by its app id
	GetApplicationByID(c *gin.Context)
}

type applicationController struct {
	service services.ApplicationService
}

// NewApplicationController creates a new instance of ApplicationController
func NewApplicationController(service services.ApplicationService) ApplicationController {
	return &applicationController{service: service}
}

// GetAllApplications godoc
// @Summary Get all applications
// @Description List the applications that can be purchased
// @Tags applications
// @Produce json
// @Success 200 {array} models.Application
// @Failure 500 {object} models.APIError
// @Router /api/v1/applications [get]
func (ac *applicationController) GetAllApplications(ctx *gin.Context) {
	apps, err := ac.service.GetAllApplications(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "Failed to retrieve applications"))
		return
	}
	ctx.JSON(http.StatusOK, apps)
}

// GetApplicationByID godoc
// @Summary Get application by ID
// @Description Get a single application by its app id
// @Tags applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} models.Application
// @Failure 404 {object} models.APIError
// @Failure 500 {object} models.APIError
// @Router /api/v1/applications/{id} [get]
func (ac *applicationController) GetApplicationByID(ctx *gin.Context) {
	appID := ctx.Param("id")

	app, err := ac.service.GetApplicationByID(ctx.Request.Context(), appID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, models.NewAPIError(models.ErrApplicationNotFound, "Application not found",
				map[string]interface{}{"app_id": appID}))
			return
		}
		ctx.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "Failed to retrieve application"))
		return
	}
	ctx.JSON(http.StatusOK, app)
}
