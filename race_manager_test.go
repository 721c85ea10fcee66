package kartrumble

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"justapengu.in/kartrumble/internal/narrative"
	"justapengu.in/kartrumble/internal/race"
)

type recordingNotifier struct {
	mutex sync.Mutex

	events    []string
	laps      []*race.LapReport
	record    *RaceRecord
	cancelled error
}

func (rn *recordingNotifier) add(event string) {
	rn.mutex.Lock()
	defer rn.mutex.Unlock()

	rn.events = append(rn.events, event)
}

func (rn *recordingNotifier) OnRaceOpened(_ *RaceSession) error {
	rn.add("opened")
	return nil
}

func (rn *recordingNotifier) OnParticipantJoined(_ *RaceSession, _ *race.Participant) error {
	rn.add("joined")
	return nil
}

func (rn *recordingNotifier) OnRaceStarted(_ *RaceSession) error {
	rn.add("started")
	return nil
}

func (rn *recordingNotifier) OnLap(_ *RaceSession, report *race.LapReport) error {
	rn.add("lap")

	rn.mutex.Lock()
	rn.laps = append(rn.laps, report)
	rn.mutex.Unlock()

	return nil
}

func (rn *recordingNotifier) OnRaceFinished(_ *RaceSession, record *RaceRecord) error {
	rn.add("finished")

	rn.mutex.Lock()
	rn.record = record
	rn.mutex.Unlock()

	return nil
}

func (rn *recordingNotifier) OnRaceCancelled(_ *RaceSession, reason error) error {
	rn.add("cancelled")

	rn.mutex.Lock()
	rn.cancelled = reason
	rn.mutex.Unlock()

	return nil
}

func (rn *recordingNotifier) count(event string) int {
	rn.mutex.Lock()
	defer rn.mutex.Unlock()

	n := 0

	for _, e := range rn.events {
		if e == event {
			n++
		}
	}

	return n
}

func newTestRaceManager(t *testing.T, pacing PacingConfig) (*RaceManager, *BoltStore, *recordingNotifier) {
	t.Helper()

	store := newTestStore(t)
	notifier := &recordingNotifier{}

	rm := NewRaceManager(store, narrative.Default(), notifier, race.DefaultTuning(), pacing)
	rm.newRandom = func() race.Random {
		return race.NewRandom(42)
	}

	return rm, store, notifier
}

func TestRaceManager_Run(t *testing.T) {
	rm, store, notifier := newTestRaceManager(t, PacingConfig{})

	session, err := rm.Open("guild-1", "channel-1")

	if err != nil {
		t.Fatal(err)
	}

	if _, err := rm.Join("channel-1", 1000, "Penguin", race.StrategyTopSpeed); err != nil {
		t.Fatal(err)
	}

	if err := rm.Run(context.Background(), "channel-1"); err != nil {
		t.Fatal(err)
	}

	if _, ok := rm.Get("channel-1"); ok {
		t.Error("finished races should be removed from the manager")
	}

	if notifier.count("opened") != 1 || notifier.count("joined") != 1 || notifier.count("started") != 1 || notifier.count("finished") != 1 {
		t.Errorf("unexpected notifications: %v", notifier.events)
	}

	if notifier.count("lap") == 0 || notifier.count("lap") != len(notifier.laps) {
		t.Fatalf("expected a notification per lap, got %d", notifier.count("lap"))
	}

	last := notifier.laps[len(notifier.laps)-1]

	if !last.Finished {
		t.Error("the last lap should finish the race")
	}

	record := notifier.record

	if record == nil {
		t.Fatal("expected a race record")
	}

	if record.ID != session.ID || record.GuildID != "guild-1" || record.Humans != 1 || record.Laps != last.Lap {
		t.Errorf("race record does not match the race: %+v", record)
	}

	if len(record.Awards) != 8 {
		t.Errorf("expected awards for 8 participants, got %v", record.Awards)
	}

	records, err := store.ListRaceRecords("guild-1", 0)

	if err != nil {
		t.Fatal(err)
	}

	if len(records) != 1 || records[0].ID != session.ID {
		t.Errorf("expected the race record to be saved, got %+v", records)
	}

	total := 0

	for _, points := range record.Awards {
		total += points
	}

	rankings, err := store.Rankings("guild-1", RankingAll, 10)

	if err != nil {
		t.Fatal(err)
	}

	stored := 0

	for _, ranking := range rankings {
		stored += ranking.Points
	}

	if stored != total {
		t.Errorf("expected %d points in the rankings, got %d", total, stored)
	}

	player, err := store.LoadPlayerPoints("guild-1", "1000")

	if err != nil {
		t.Fatal(err)
	}

	if player.Points != record.Awards["1000"] {
		t.Errorf("expected the human to have %d points, got %d", record.Awards["1000"], player.Points)
	}
}

func TestRaceManager_Open(t *testing.T) {
	rm, _, _ := newTestRaceManager(t, PacingConfig{})

	session, err := rm.Open("guild-1", "channel-1")

	if err != nil {
		t.Fatal(err)
	}

	if session.Course.Name == "" {
		t.Error("expected the race to have a course")
	}

	if _, err := rm.Open("guild-1", "channel-1"); err != ErrRaceInProgress {
		t.Errorf("expected ErrRaceInProgress, got %v", err)
	}

	if _, err := rm.Open("guild-1", "channel-2"); err != nil {
		t.Errorf("races in other channels should be allowed, got %v", err)
	}

	active := rm.Active()

	if len(active) != 2 {
		t.Fatalf("expected 2 races, got %+v", active)
	}

	for _, summary := range active {
		if summary.Started || summary.Active != 7 || summary.Humans != 0 || summary.GuildID != "guild-1" {
			t.Errorf("unexpected summary for an open race: %+v", summary)
		}
	}
}

func TestRaceManager_Join(t *testing.T) {
	rm, _, notifier := newTestRaceManager(t, PacingConfig{})

	if _, err := rm.Join("channel-1", 1000, "Penguin", race.StrategyCornering); err != ErrRaceNotFound {
		t.Errorf("expected ErrRaceNotFound, got %v", err)
	}

	if _, err := rm.Open("guild-1", "channel-1"); err != nil {
		t.Fatal(err)
	}

	participant, err := rm.Join("channel-1", 1000, "Penguin", race.StrategyCornering)

	if err != nil {
		t.Fatal(err)
	}

	if participant.Name != "Penguin" || participant.Strategy != race.StrategyCornering {
		t.Errorf("unexpected participant: %+v", participant)
	}

	if _, err := rm.Join("channel-1", 1000, "Penguin", race.StrategyTopSpeed); errors.Cause(err) != race.ErrDuplicateParticipant {
		t.Errorf("expected ErrDuplicateParticipant, got %v", err)
	}

	session, _ := rm.Get("channel-1")

	if session.HumanCount() != 1 {
		t.Errorf("expected one human, got %d", session.HumanCount())
	}

	if notifier.count("joined") != 1 {
		t.Errorf("expected one join notification, got %d", notifier.count("joined"))
	}
}

func TestRaceManager_RunWithoutParticipants(t *testing.T) {
	rm, store, notifier := newTestRaceManager(t, PacingConfig{})

	if _, err := rm.Open("guild-1", "channel-1"); err != nil {
		t.Fatal(err)
	}

	if err := rm.Run(context.Background(), "channel-1"); err != ErrNoParticipants {
		t.Errorf("expected ErrNoParticipants, got %v", err)
	}

	if notifier.count("cancelled") != 1 || notifier.count("started") != 0 {
		t.Errorf("unexpected notifications: %v", notifier.events)
	}

	if _, ok := rm.Get("channel-1"); ok {
		t.Error("cancelled races should be removed from the manager")
	}

	rankings, err := store.Rankings("guild-1", RankingAll, 10)

	if err != nil {
		t.Fatal(err)
	}

	if len(rankings) != 0 {
		t.Errorf("no points should be awarded for a race nobody joined, got %+v", rankings)
	}
}

func TestRaceManager_Cancel(t *testing.T) {
	rm, _, notifier := newTestRaceManager(t, PacingConfig{JoinWindow: time.Hour})

	if err := rm.Cancel("channel-1"); err != ErrRaceNotFound {
		t.Errorf("expected ErrRaceNotFound, got %v", err)
	}

	if _, err := rm.Open("guild-1", "channel-1"); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)

	go func() {
		done <- rm.Run(context.Background(), "channel-1")
	}()

	if err := rm.Cancel("channel-1"); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		if err != ErrRaceCancelled {
			t.Errorf("expected ErrRaceCancelled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("race was not cancelled")
	}

	if notifier.cancelled != ErrRaceCancelled {
		t.Errorf("expected the notifier to be told why, got %v", notifier.cancelled)
	}
}

func TestRaceManager_RunStopsWithContext(t *testing.T) {
	rm, _, _ := newTestRaceManager(t, PacingConfig{JoinWindow: time.Hour})

	if _, err := rm.Open("guild-1", "channel-1"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := rm.Run(ctx, "channel-1"); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	if err := rm.Run(context.Background(), "channel-1"); err != ErrRaceNotFound {
		t.Errorf("expected ErrRaceNotFound once the race has stopped, got %v", err)
	}
}

func TestRaceManager_JoinAfterStart(t *testing.T) {
	rm, _, _ := newTestRaceManager(t, PacingConfig{})

	session, err := rm.Open("guild-1", "channel-1")

	if err != nil {
		t.Fatal(err)
	}

	if _, err := rm.Join("channel-1", 1000, "Penguin", race.StrategyStartDash); err != nil {
		t.Fatal(err)
	}

	session.mutex.Lock()
	session.contest.Start()
	session.mutex.Unlock()

	if _, err := rm.Join("channel-1", 2000, "Latecomer", race.StrategyStartDash); errors.Cause(err) != race.ErrContestStarted {
		t.Errorf("expected ErrContestStarted, got %v", err)
	}

	if !session.Started() {
		t.Error("expected the session to report it has started")
	}
}
