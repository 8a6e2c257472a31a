package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"escalation-service/internal/db"
	"escalation-service/internal/escalation"
	"escalation-service/internal/events"
	"escalation-service/internal/metrics"
)

type Handler struct {
	store  *db.Store
	coord  *escalation.Coordinator
	hub    *events.Hub
	logger *logrus.Logger
}

func NewHandler(store *db.Store, coord *escalation.Coordinator, hub *events.Hub, logger *logrus.Logger) *Handler {
	return &Handler{store: store, coord: coord, hub: hub, logger: logger}
}

// TriggerEscalation starts an escalation chain for (user, alert) manually.
func (h *Handler) TriggerEscalation(c *gin.Context) {
	var req struct {
		UserID                 int64  `json:"user_id" binding:"required"`
		AlertID                int64  `json:"alert_id" binding:"required"`
		Important              bool   `json:"important"`
		Reason                 string `json:"reason"`
		NotifyEvenAcknowledged bool   `json:"notify_even_acknowledged"`
		NotifyAnyway           bool   `json:"notify_anyway"`
		PreventPosting         bool   `json:"prevent_posting"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.coord.Start(c.Request.Context(), escalation.AdvanceArgs{
		UserID:                 req.UserID,
		AlertID:                req.AlertID,
		Important:              req.Important,
		Reason:                 req.Reason,
		NotifyEvenAcknowledged: req.NotifyEvenAcknowledged,
		NotifyAnyway:           req.NotifyAnyway,
		PreventPosting:         req.PreventPosting,
	})
	if err != nil {
		h.logger.Errorf("Trigger escalation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	metrics.ChainStarted()
	h.logger.Infof("Triggered escalation for user=%d alert=%d", req.UserID, req.AlertID)
	c.JSON(http.StatusAccepted, gin.H{"message": "escalation started"})
}

func (h *Handler) GetLogRecordsByAlert(c *gin.Context) {
	alertID, err := strconv.ParseInt(c.Param("alert_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert_id"})
		return
	}
	limit, offset := pagination(c)
	records, err := h.store.ListLogRecordsByAlert(c.Request.Context(), alertID, limit, offset)
	if err != nil {
		h.logger.Errorf("Get log records failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) GetLogRecordsByUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}
	limit, offset := pagination(c)
	records, err := h.store.ListLogRecordsByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Errorf("Get log records failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) GetLease(c *gin.Context) {
	userID, err1 := strconv.ParseInt(c.Param("user_id"), 10, 64)
	alertID, err2 := strconv.ParseInt(c.Param("alert_id"), 10, 64)
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id or alert_id"})
		return
	}
	lease, err := h.store.GetLease(c.Request.Context(), userID, alertID)
	if errors.Is(err, escalation.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "lease not found"})
		return
	}
	if err != nil {
		h.logger.Errorf("Get lease failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, lease)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Subscribe upgrades the connection and streams the user's notification
// events until the client disconnects.
func (h *Handler) Subscribe(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	h.hub.AddConnection(userID, conn)
	go func() {
		defer func() {
			h.hub.RemoveConnection(userID, conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func pagination(c *gin.Context) (limit, offset int) {
	limit = 100
	offset = 0
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 1000 {
		limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
