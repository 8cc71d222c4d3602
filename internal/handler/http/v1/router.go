package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Маршрут Health-check, без аутентификации
	api.GET("/system/health", h.healthCheck)

	protected := api.Group("",
		APIKeyAuthMiddleware(h.cfg, h.logger),
		IdentityMiddleware(h.cfg, h.logger),
	)

	// Тревоги и жизненный цикл инцидентов
	incidents := protected.Group("/incidents")
	{
		incidents.POST("", h.triggerIncident)
		incidents.GET("", h.listIncidents)
		incidents.GET("/stats", h.getStats)
		incidents.GET("/:id", h.getIncident)
		incidents.POST("/:id/resolve", h.resolveIncident)
	}

	// Входящие in-app уведомления
	notifications := protected.Group("/notifications")
	{
		notifications.GET("", h.listNotifications)
		notifications.POST("/read-all", h.markAllNotificationsRead)
		notifications.POST("/:id/read", h.markNotificationRead)
	}

	protected.GET("/events/ws", h.streamEvents)
}
