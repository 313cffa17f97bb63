package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BotUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "itcubebot", Name: "updates_total", Help: "Processed telegram updates",
	})
	HandlerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "itcubebot", Name: "handler_errors_total", Help: "Handler errors",
	})
	TicketsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "itcubebot", Name: "tickets_created_total", Help: "Feedback tickets created",
	})
	TicketsClosed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "itcubebot", Name: "tickets_closed_total", Help: "Feedback tickets closed",
	})
	NotifySendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "itcubebot", Name: "notify_send_errors_total", Help: "Failed notification sends",
	})
	BroadcastSends = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "itcubebot", Name: "broadcast_sends_total", Help: "Broadcast deliveries by result",
	}, []string{"result"})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "itcubebot", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(BotUpdates, HandlerErrors, TicketsCreated, TicketsClosed, NotifySendErrors, BroadcastSends, DBPing)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }
