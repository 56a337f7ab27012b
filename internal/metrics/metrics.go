// Package metrics exposes Prometheus counters for the suggestion box.
package metrics

import (
	"net/http"
	"time"

	"github.com/bwmarrin/lit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "suggestionbot"

var (
	// Submissions counts suggestions that were posted and persisted
	Submissions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "suggestions_submitted_total",
		Help:      "Suggestions posted and persisted.",
	})

	// Votes counts vote toggles by choice and effect (cast, switch, retract)
	Votes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "votes_total",
		Help:      "Vote toggles by choice and effect.",
	}, []string{"choice", "effect"})

	// Moderation counts moderation actions by action and outcome
	Moderation = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "moderation_actions_total",
		Help:      "Moderation actions by action and outcome.",
	}, []string{"action", "outcome"})

	// Reminders counts sticky reminder decisions (posted, suppressed, busy)
	Reminders = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sticky_reminders_total",
		Help:      "Sticky reminder decisions.",
	}, []string{"result"})
)

// Serve exposes /metrics on address in the background. An empty address disables it.
func Serve(address string) *http.Server {
	if address == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lit.Error("Error serving metrics, %s", err)
		}
	}()

	return srv
}
