package kartrumble

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"justapengu.in/kartrumble/internal/race"
)

const metricsNamespace = "kartrumble"

var (
	racesOpened = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "races_opened_total",
		Help:      "Races opened for entries.",
	})

	racesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "races_finished_total",
		Help:      "Races that ran to completion, by result.",
	}, []string{"result"})

	racesCancelled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "races_cancelled_total",
		Help:      "Races that ended before completion, by reason.",
	}, []string{"reason"})

	racesRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "races_running",
		Help:      "Races currently open or running.",
	})

	lapsRun = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "laps_total",
		Help:      "Laps run across all races.",
	})

	raceEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "race_events_total",
		Help:      "Race events, by kind.",
	}, []string{"kind"})

	raceParticipants = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "race_human_participants",
		Help:      "Human participants per race.",
		Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
	})

	raceLaps = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "race_laps",
		Help:      "Laps per finished race.",
		Buckets:   prometheus.LinearBuckets(1, 2, 10),
	})

	pointsAwarded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "points_awarded_total",
		Help:      "Points saved to the store.",
	})

	scoringFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "scoring_failures_total",
		Help:      "Awards that could not be saved.",
	})
)

func observeLap(report *race.LapReport) {
	lapsRun.Inc()

	if len(report.ForcedElimination) > 0 {
		raceEvents.WithLabelValues("forced_elimination").Inc()
	}

	if len(report.Revolution) > 0 {
		raceEvents.WithLabelValues("revolution").Inc()
	}

	raceEvents.WithLabelValues("revival").Add(float64(len(report.Revival)))
	raceEvents.WithLabelValues("battle").Add(float64(len(report.Battles)))
	raceEvents.WithLabelValues("skill").Add(float64(len(report.Skills)))

	if report.FinalDuel {
		if report.Outcome.ComebackOccurred {
			raceEvents.WithLabelValues("comeback").Inc()
		} else {
			raceEvents.WithLabelValues("final_duel").Inc()
		}
	}
}

func raceResult(outcome race.Outcome, aborted bool) string {
	switch {
	case aborted:
		return "aborted"
	case outcome.ComebackOccurred:
		return "comeback"
	case outcome.Winner == nil:
		return "no_winner"
	default:
		return "winner"
	}
}
