// Package metrics exposes Prometheus counters for the admission engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AdmissionOutcomes counts guest-session state transitions by result code.
	AdmissionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guest_lobby_admission_outcomes_total",
		Help: "Guest session state transition outcomes by result code.",
	}, []string{"result"})

	// VerificationOutcomes counts guest verification decisions by result code.
	VerificationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guest_lobby_verification_outcomes_total",
		Help: "Guest verification outcomes by result code.",
	}, []string{"result"})

	// LobbyStateRecalculations counts full lobby-state recomputations.
	LobbyStateRecalculations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guest_lobby_state_recalculations_total",
		Help: "Full lobby-state recalculations.",
	})

	// GuestSessionsEnded counts sessions ended through bulk project clears.
	GuestSessionsEnded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guest_lobby_sessions_bulk_ended_total",
		Help: "Bulk guest-session end operations.",
	})
)
