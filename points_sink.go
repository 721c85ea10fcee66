package kartrumble

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// PointsSink saves contest awards to the Store. The contest session ID is the guild ID.
type PointsSink struct {
	store Store
}

func NewPointsSink(store Store) *PointsSink {
	return &PointsSink{store: store}
}

// SavePoints writes every award, carrying on past individual failures. The first failure is
// returned once all awards have been attempted.
func (ps *PointsSink) SavePoints(guildID string, awards map[string]int) error {
	keys := make([]string, 0, len(awards))

	for key := range awards {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	var firstErr error

	for _, key := range keys {
		if _, err := ps.store.AddPoints(guildID, key, awards[key]); err != nil {
			logrus.WithError(err).Errorf("Could not save %d points for %s", awards[key], key)
			scoringFailures.Inc()

			if firstErr == nil {
				firstErr = errors.Wrapf(err, "saving points for %s", key)
			}

			continue
		}

		pointsAwarded.Add(float64(awards[key]))
	}

	return firstErr
}
