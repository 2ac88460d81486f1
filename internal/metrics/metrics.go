// Package metrics объявляет счетчики prometheus для бота.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calibration_bot_events_received_total",
		Help: "Total number of messages and callbacks received from Telegram.",
	})
	EventsHandled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calibration_bot_events_handled_total",
		Help: "Total number of events handled without an error.",
	})
	EventsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calibration_bot_events_failed_total",
		Help: "Total number of events whose handling ended with an error.",
	})
)
