package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bugpilot"

var AuthzDecisions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "authz",
		Name:      "decisions_total",
		Help:      "Anzahl der Berechtigungsentscheidungen, nach Ressource, Aktion und Ergebnis (allow/deny).",
	},
	[]string{"resource", "action", "result"},
)

var OTPEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "otp",
		Name:      "events_total",
		Help:      "OTP-Ereignisse, nach Typ (issued/verified/rejected).",
	},
	[]string{"event"},
)

var ScreenshotCleanups = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "storage",
		Name:      "cleanups_total",
		Help:      "Entfernte Screenshot-Dateien, nach Ergebnis (removed/missing/failed).",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(AuthzDecisions, OTPEvents, ScreenshotCleanups)
}
