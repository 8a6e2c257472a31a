package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	chainsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "escalation_chains_started_total",
		Help: "Escalation chains started.",
	})
	logRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "escalation_log_records_total",
		Help: "Escalation log records created, by type.",
	}, []string{"type"})
	usersNotified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "escalation_users_notified_total",
		Help: "First notification attempts per user and alert.",
	}, []string{"user_id"})
)

// ChainStarted counts a new escalation chain.
func ChainStarted() {
	chainsStarted.Inc()
}

// LogRecordCreated counts a log record by type.
func LogRecordCreated(recordType string) {
	logRecords.WithLabelValues(recordType).Inc()
}

// Recorder implements the fire-and-forget per-user metrics hook.
type Recorder struct{}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Update(_ context.Context, userID int64) error {
	usersNotified.WithLabelValues(strconv.FormatInt(userID, 10)).Inc()
	return nil
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
