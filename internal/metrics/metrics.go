package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "classattend"

var (
	// SimilarityScores records the best cosine similarity per comparison, by mode (verify|identify).
	SimilarityScores = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "similarity_score",
		Help:      "Best cosine similarity found per matching request.",
		Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
	}, []string{"mode"})

	// MatchOutcomes counts accepted/rejected matching requests by mode.
	MatchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "match_outcomes_total",
		Help:      "Matching requests by mode and result.",
	}, []string{"mode", "result"})

	// ProximityDistance records student-to-class distances in meters.
	ProximityDistance = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "proximity_distance_meters",
		Help:      "Distance between the student and the class location.",
		Buckets:   prometheus.ExponentialBuckets(5, 2, 12),
	})

	// WindowTransitions counts attendance window opens and closes.
	WindowTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "window_transitions_total",
		Help:      "Attendance window state changes.",
	}, []string{"transition"})

	// RecordWrites counts attendance upserts by attribution and outcome (created|updated).
	RecordWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "record_writes_total",
		Help:      "Attendance record upserts.",
	}, []string{"marked_by", "outcome"})

	// SelfMarkRejections counts self-marks rejected because both signals failed.
	SelfMarkRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "self_mark_rejections_total",
		Help:      "Self-marks where neither face nor location verified.",
	})
)

// Result maps a boolean outcome to a label value.
func Result(ok bool) string {
	if ok {
		return "accepted"
	}
	return "rejected"
}
