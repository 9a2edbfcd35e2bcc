// Package metrics exposes the Prometheus counters an operator would watch
// to tell whether the position-history engine is behaving sanely in the
// field: how often seeks are recorded vs. suppressed, and how restoration
// attempts fare. Grounded on the promauto package-level-vars style used
// throughout the cartographus example repo's internal/authz/metrics.go.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SeeksRecordedTotal counts entries appended to a history engine, by
	// kind ("seek" or "manual").
	SeeksRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "position_engine_seeks_recorded_total",
			Help: "Total number of position entries recorded, by kind.",
		},
		[]string{"kind"},
	)

	// SeeksDebouncedTotal counts keyboard/button seeks suppressed by the
	// save-suppression window (spec §4.5 step 3).
	SeeksDebouncedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "position_engine_seeks_debounced_total",
			Help: "Total number of keyboard/button seeks suppressed by the debounce window.",
		},
	)

	// SeeksRejectedProximityTotal counts candidate entries rejected for
	// being too close to an existing entry (spec §4.5 step 2).
	SeeksRejectedProximityTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "position_engine_seeks_rejected_proximity_total",
			Help: "Total number of candidate entries rejected by proximity rejection.",
		},
	)

	// AutoResumesObservedTotal counts seeks classified as service
	// auto-resume (spec §4.4) — never recorded, but worth observing.
	AutoResumesObservedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "position_engine_auto_resumes_observed_total",
			Help: "Total number of seeks classified as service auto-resume.",
		},
	)

	// RestoresTotal counts restoration attempts, by outcome ("success" or
	// "failure").
	RestoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "position_engine_restores_total",
			Help: "Total number of restoration attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	// AttachedVideosTotal counts Augmented Video Accessor (re)attachments —
	// a proxy for how often SPA navigation swaps out the video element.
	AttachedVideosTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "position_engine_attached_videos_total",
			Help: "Total number of times the accessor attached to a new video element.",
		},
	)
)
