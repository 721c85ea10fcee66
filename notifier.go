package kartrumble

import (
	"context"

	"golang.org/x/sync/errgroup"

	"justapengu.in/kartrumble/internal/race"
)

// Notifier is told about everything that happens to a race. Implementations may block to pace
// their output; the RaceManager waits for every notifier before running the next lap.
type Notifier interface {
	OnRaceOpened(session *RaceSession) error
	OnParticipantJoined(session *RaceSession, participant *race.Participant) error
	OnRaceStarted(session *RaceSession) error
	OnLap(session *RaceSession, report *race.LapReport) error
	OnRaceFinished(session *RaceSession, record *RaceRecord) error
	OnRaceCancelled(session *RaceSession, reason error) error
}

type multiNotifier struct {
	notifiers []Notifier
}

// MultiNotifier delivers every notification to all notifiers concurrently.
func MultiNotifier(notifiers ...Notifier) Notifier {
	return &multiNotifier{notifiers: notifiers}
}

func (mn *multiNotifier) each(fn func(notifier Notifier) error) error {
	g, _ := errgroup.WithContext(context.Background())

	for _, notifier := range mn.notifiers {
		notifier := notifier
		g.Go(func() error {
			return fn(notifier)
		})
	}

	return g.Wait()
}

func (mn *multiNotifier) OnRaceOpened(session *RaceSession) error {
	return mn.each(func(notifier Notifier) error {
		return notifier.OnRaceOpened(session)
	})
}

func (mn *multiNotifier) OnParticipantJoined(session *RaceSession, participant *race.Participant) error {
	return mn.each(func(notifier Notifier) error {
		return notifier.OnParticipantJoined(session, participant)
	})
}

func (mn *multiNotifier) OnRaceStarted(session *RaceSession) error {
	return mn.each(func(notifier Notifier) error {
		return notifier.OnRaceStarted(session)
	})
}

func (mn *multiNotifier) OnLap(session *RaceSession, report *race.LapReport) error {
	return mn.each(func(notifier Notifier) error {
		return notifier.OnLap(session, report)
	})
}

func (mn *multiNotifier) OnRaceFinished(session *RaceSession, record *RaceRecord) error {
	return mn.each(func(notifier Notifier) error {
		return notifier.OnRaceFinished(session, record)
	})
}

func (mn *multiNotifier) OnRaceCancelled(session *RaceSession, reason error) error {
	return mn.each(func(notifier Notifier) error {
		return notifier.OnRaceCancelled(session, reason)
	})
}

type nilNotifier struct{}

func (nilNotifier) OnRaceOpened(_ *RaceSession) error {
	return nil
}

func (nilNotifier) OnParticipantJoined(_ *RaceSession, _ *race.Participant) error {
	return nil
}

func (nilNotifier) OnRaceStarted(_ *RaceSession) error {
	return nil
}

func (nilNotifier) OnLap(_ *RaceSession, _ *race.LapReport) error {
	return nil
}

func (nilNotifier) OnRaceFinished(_ *RaceSession, _ *RaceRecord) error {
	return nil
}

func (nilNotifier) OnRaceCancelled(_ *RaceSession, _ error) error {
	return nil
}
