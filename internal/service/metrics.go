package service

import "github.com/prometheus/client_golang/prometheus"

var authEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "auth_events_total", Help: "Credential and session events by outcome"},
	[]string{"event", "result"},
)

func init() { prometheus.MustRegister(authEvents) }

func countAuth(event string, err error) {
	result := "ok"
	if err != nil {
		result = "fail"
	}
	authEvents.WithLabelValues(event, result).Inc()
}
