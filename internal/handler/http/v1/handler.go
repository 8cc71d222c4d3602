package v1

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shenikar/sos_broadcasting_system/internal/config"
	"github.com/shenikar/sos_broadcasting_system/internal/events"
	"github.com/shenikar/sos_broadcasting_system/internal/models"
	"github.com/shenikar/sos_broadcasting_system/internal/service"
	"github.com/sirupsen/logrus"
)

const emergencyFallback = "call emergency services directly"

// LiveStream открывает поток live-событий пользователя
type LiveStream interface {
	Subscribe(ctx context.Context, userID string) (events.Stream, error)
}

type Handler struct {
	incidentService     service.IncidentService
	notificationService service.NotificationService
	stream              LiveStream
	logger              *logrus.Logger
	validate            *validator.Validate
	cfg                 *config.Config
	upgrader            websocket.Upgrader
}

func NewHandler(
	incidentService service.IncidentService,
	notificationService service.NotificationService,
	stream LiveStream,
	logger *logrus.Logger,
	cfg *config.Config,
) *Handler {
	return &Handler{
		incidentService:     incidentService,
		notificationService: notificationService,
		stream:              stream,
		logger:              logger,
		validate:            validator.New(),
		cfg:                 cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Доступ уже проверен API-ключом и токеном идентификации
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// @Summary Trigger an emergency alert
// @Description Record an incident for the caller and notify their emergency contacts and trusted bystanders. Requires API key and identity token.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Security IdentityToken
// @Param incident body TriggerIncidentRequest true "Alert request"
// @Success 201 {object} TriggerIncidentResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 503 {object} PersistenceFailureResponse "Alert could not be recorded"
// @Router /incidents [post]
func (h *Handler) triggerIncident(c *gin.Context) {
	var input TriggerIncidentRequest
	log := h.logger.WithField("method", "triggerIncident")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ownerID, ownerName := currentOwner(c)
	result, err := h.incidentService.TriggerIncident(c.Request.Context(), DTOToTriggerRequest(input, ownerID, ownerName))
	if err != nil {
		if errors.Is(err, models.ErrInvalidSeverity) {
			c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrInvalidSeverity.Error()})
			return
		}
		// Тревога не записана: пользователь должен сразу узнать, куда звонить
		log.WithError(err).Error("Failed to trigger incident in service")
		c.JSON(http.StatusServiceUnavailable, PersistenceFailureResponse{
			Error:           "alert could not be recorded",
			Fallback:        emergencyFallback,
			EmergencyNumber: h.cfg.EmergencyServicesNumber,
		})
		return
	}

	c.JSON(http.StatusCreated, TriggerIncidentResponse{
		Incident: ModelToIncidentResponse(result.Incident),
		Summary:  ModelToDeliverySummaryResponse(result.Summary),
		Outcome:  string(result.Outcome),
	})
}

// @Summary Get a list of incidents
// @Description Get a paginated list of the caller's incidents, newest first. Requires API key and identity token.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Security IdentityToken
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Number of items per page" default(20)
// @Success 200 {array} IncidentResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [get]
func (h *Handler) listIncidents(c *gin.Context) {
	log := h.logger.WithField("method", "listIncidents")
	page, pageSize := pagination(c)
	ownerID, _ := currentOwner(c)

	incidents, err := h.incidentService.ListIncidents(c.Request.Context(), ownerID, page, pageSize)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ModelsToIncidentResponses(incidents))
}

// @Summary Get incident statistics
// @Description Get totals of the caller's incidents by status. Requires API key and identity token.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Security IdentityToken
// @Success 200 {object} StatsResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/stats [get]
func (h *Handler) getStats(c *gin.Context) {
	log := h.logger.WithField("method", "getStats")
	ownerID, _ := currentOwner(c)

	stats, err := h.incidentService.GetStats(c.Request.Context(), ownerID)
	if err != nil {
		log.WithError(err).Error("Failed to get stats from service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, StatsResponse{Total: stats.Total, Active: stats.Active, Resolved: stats.Resolved})
}

// @Summary Get incident by ID
// @Description Get a single incident of the caller by its ID. Requires API key and identity token.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Security IdentityToken
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Incident belongs to another user"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id} [get]
func (h *Handler) getIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "getIncident").WithField("id", id)
	ownerID, _ := currentOwner(c)

	incident, err := h.incidentService.GetIncident(c.Request.Context(), ownerID, id)
	if err != nil {
		h.incidentError(c, log, err, "Failed to get incident from service")
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Mark an incident as safe
// @Description Resolve an active incident of the caller. A resolved incident cannot be resolved again. Requires API key and identity token.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Security IdentityToken
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Incident belongs to another user"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 409 {object} map[string]string "Incident is already resolved"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id}/resolve [post]
func (h *Handler) resolveIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "resolveIncident").WithField("id", id)
	ownerID, _ := currentOwner(c)

	incident, err := h.incidentService.ResolveIncident(c.Request.Context(), ownerID, id)
	if err != nil {
		h.incidentError(c, log, err, "Failed to resolve incident in service")
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Get a list of notifications
// @Description Get the caller's in-app notifications, newest first. Requires API key and identity token.
// @Tags Notifications
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Security IdentityToken
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Number of items per page" default(20)
// @Success 200 {array} NotificationResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /notifications [get]
func (h *Handler) listNotifications(c *gin.Context) {
	log := h.logger.WithField("method", "listNotifications")
	page, pageSize := pagination(c)
	userID, _ := currentOwner(c)

	notifications, err := h.notificationService.ListNotifications(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		log.WithError(err).Error("Failed to list notifications from service")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ModelsToNotificationResponses(notifications))
}

// @Summary Mark a notification as read
// @Description Mark one of the caller's notifications as read. Requires API key and identity token.
// @Tags Notifications
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Security IdentityToken
// @Param id path string true "Notification ID"
// @Success 204 "No Content"
// @Failure 400 {object} map[string]string "Invalid notification ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Notification not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /notifications/{id}/read [post]
func (h *Handler) markNotificationRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification ID"})
		return
	}
	log := h.logger.WithField("method", "markNotificationRead").WithField("id", id)
	userID, _ := currentOwner(c)

	if err := h.notificationService.MarkRead(c.Request.Context(), userID, id); err != nil {
		if errors.Is(err, models.ErrNotificationNotFound) {
			log.WithError(err).Warn("Notification not found")
			c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
			return
		}
		log.WithError(err).Error("Failed to mark notification as read")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Mark all notifications as read
// @Description Mark every unread notification of the caller as read. Requires API key and identity token.
// @Tags Notifications
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Security IdentityToken
// @Success 200 {object} MarkAllReadResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /notifications/read-all [post]
func (h *Handler) markAllNotificationsRead(c *gin.Context) {
	log := h.logger.WithField("method", "markAllNotificationsRead")
	userID, _ := currentOwner(c)

	updated, err := h.notificationService.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		log.WithError(err).Error("Failed to mark all notifications as read")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, MarkAllReadResponse{Updated: updated})
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// incidentError переводит ошибки сервиса инцидентов в HTTP-статусы
func (h *Handler) incidentError(c *gin.Context, log *logrus.Entry, err error, message string) {
	switch {
	case errors.Is(err, models.ErrIncidentNotFound):
		log.WithError(err).Warn(message)
		c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
	case errors.Is(err, models.ErrForbidden):
		log.WithError(err).Warn(message)
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, models.ErrInvalidTransition):
		log.WithError(err).Warn(message)
		c.JSON(http.StatusConflict, gin.H{"error": "incident is already resolved"})
	default:
		log.WithError(err).Error(message)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// pagination читает page и pageSize. Границы проверяет сервис.
func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	return page, pageSize
}
