package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"escalation-service/internal/config"
	"escalation-service/internal/db"
	"escalation-service/internal/escalation"
	"escalation-service/internal/events"
	"escalation-service/internal/metrics"
)

func NewRouter(store *db.Store, coord *escalation.Coordinator, hub *events.Hub, logger *logrus.Logger, cfg config.Config) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	h := NewHandler(store, coord, hub, logger)
	api := r.Group(cfg.API.BasePath)
	{
		api.POST("/escalations", h.TriggerEscalation)
		api.GET("/log-records/alert/:alert_id", h.GetLogRecordsByAlert)
		api.GET("/log-records/user/:user_id", h.GetLogRecordsByUser)
		api.GET("/leases/:user_id/:alert_id", h.GetLease)
		api.GET("/ws", h.Subscribe)
	}

	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
