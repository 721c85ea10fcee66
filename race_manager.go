package kartrumble

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"justapengu.in/kartrumble/internal/narrative"
	"justapengu.in/kartrumble/internal/race"
)

var (
	ErrRaceInProgress = errors.New("kartrumble: a race is already in progress in this channel")
	ErrRaceNotFound   = errors.New("kartrumble: no race in this channel")
	ErrRaceRunning    = errors.New("kartrumble: race is already running")
	ErrNoParticipants = errors.New("kartrumble: nobody joined the race")
	ErrRaceCancelled  = errors.New("kartrumble: race cancelled")
)

// RaceSession is one race in one channel, from the join window until the result.
type RaceSession struct {
	ID        string
	GuildID   string
	ChannelID string
	Course    narrative.Course
	OpenedAt  time.Time

	contest  *race.Contest
	narrator *narrative.Narrator

	mutex        sync.Mutex
	// running is set once Run has been called for the session.
	running      bool
	startedAt    time.Time
	announcement string

	cancelled  chan struct{}
	cancelOnce sync.Once
}

func (s *RaceSession) cancel() {
	s.cancelOnce.Do(func() {
		close(s.cancelled)
	})
}

func (s *RaceSession) Snapshot() race.Snapshot {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.contest.Snapshot()
}

func (s *RaceSession) HumanCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.contest.HumanCount()
}

// Started reports whether entries have closed and laps are being run.
func (s *RaceSession) Started() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.contest.Started()
}

func (s *RaceSession) StartedAt() time.Time {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.startedAt
}

// Announcement is the announcer's pre-race comment, set when the race starts.
func (s *RaceSession) Announcement() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.announcement
}

func (s *RaceSession) Narrator() *narrative.Narrator {
	return s.narrator
}

type RaceSummary struct {
	ID        string    `json:"id"`
	GuildID   string    `json:"guild_id"`
	ChannelID string    `json:"channel_id"`
	Course    string    `json:"course"`
	OpenedAt  time.Time `json:"opened_at"`
	Started   bool      `json:"started"`
	Lap       int       `json:"lap"`
	Humans    int       `json:"humans"`
	Active    int       `json:"active"`
}

func (s *RaceSession) Summary() RaceSummary {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return RaceSummary{
		ID:        s.ID,
		GuildID:   s.GuildID,
		ChannelID: s.ChannelID,
		Course:    s.Course.Name,
		OpenedAt:  s.OpenedAt,
		Started:   s.contest.Started(),
		Lap:       s.contest.Lap(),
		Humans:    s.contest.HumanCount(),
		Active:    len(s.contest.Active()),
	}
}

// RaceManager owns the races in progress, at most one per channel, and runs them lap by lap.
type RaceManager struct {
	store    Store
	library  *narrative.Library
	notifier Notifier
	sink     race.ScoreSink
	tuning   race.Tuning
	pacing   PacingConfig

	newRandom func() race.Random

	mutex sync.Mutex
	races map[string]*RaceSession
}

func NewRaceManager(store Store, library *narrative.Library, notifier Notifier, tuning race.Tuning, pacing PacingConfig) *RaceManager {
	if notifier == nil {
		notifier = nilNotifier{}
	}

	return &RaceManager{
		store:    store,
		library:  library,
		notifier: notifier,
		sink:     NewPointsSink(store),
		tuning:   tuning,
		pacing:   pacing,
		races:    make(map[string]*RaceSession),
		newRandom: func() race.Random {
			return race.NewRandom(time.Now().UnixNano())
		},
	}
}

// SetNotifier replaces the notifier. Races already open keep notifying the new one.
func (rm *RaceManager) SetNotifier(notifier Notifier) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()

	rm.notifier = notifier
}

func (rm *RaceManager) getNotifier() Notifier {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()

	return rm.notifier
}

// Open creates a race in a channel and opens it for entries.
func (rm *RaceManager) Open(guildID, channelID string) (*RaceSession, error) {
	rm.mutex.Lock()

	if _, ok := rm.races[channelID]; ok {
		rm.mutex.Unlock()
		return nil, ErrRaceInProgress
	}

	rng := rm.newRandom()
	narrator := rm.library.NewNarrator(rng)

	contest := race.NewContest(guildID, narrator,
		race.WithTuning(rm.tuning),
		race.WithRandom(rng),
		race.WithScoreSink(rm.sink),
		race.WithLogger(logrus.WithField("channel", channelID)),
	)

	session := &RaceSession{
		ID:        contest.ID.String(),
		GuildID:   guildID,
		ChannelID: channelID,
		Course:    narrator.Course(),
		OpenedAt:  time.Now(),
		contest:   contest,
		narrator:  narrator,
		cancelled: make(chan struct{}),
	}

	rm.races[channelID] = session
	rm.mutex.Unlock()

	racesOpened.Inc()
	racesRunning.Inc()

	logrus.Infof("Race %s opened in channel %s (guild: %s) at %s", session.ID, channelID, guildID, session.Course.Name)

	if err := rm.getNotifier().OnRaceOpened(session); err != nil {
		logrus.WithError(err).Error("Could not notify race opened")
	}

	return session, nil
}

func (rm *RaceManager) Get(channelID string) (*RaceSession, bool) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()

	session, ok := rm.races[channelID]

	return session, ok
}

// Active lists the races in progress, oldest first.
func (rm *RaceManager) Active() []RaceSummary {
	rm.mutex.Lock()
	sessions := make([]*RaceSession, 0, len(rm.races))

	for _, session := range rm.races {
		sessions = append(sessions, session)
	}
	rm.mutex.Unlock()

	summaries := make([]RaceSummary, 0, len(sessions))

	for _, session := range sessions {
		summaries = append(summaries, session.Summary())
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].OpenedAt.Before(summaries[j].OpenedAt)
	})

	return summaries
}

// Join enters a human into the race open in a channel.
func (rm *RaceManager) Join(channelID string, id int64, name string, strategy race.Strategy) (*race.Participant, error) {
	session, ok := rm.Get(channelID)

	if !ok {
		return nil, ErrRaceNotFound
	}

	participant := race.NewParticipant(id, name, strategy)

	session.mutex.Lock()
	err := session.contest.Join(participant)
	session.mutex.Unlock()

	if err != nil {
		return nil, err
	}

	if err := rm.getNotifier().OnParticipantJoined(session, participant); err != nil {
		logrus.WithError(err).Error("Could not notify participant joined")
	}

	return participant, nil
}

// Cancel stops the race in a channel before its next lap.
func (rm *RaceManager) Cancel(channelID string) error {
	session, ok := rm.Get(channelID)

	if !ok {
		return ErrRaceNotFound
	}

	session.cancel()

	return nil
}

func (rm *RaceManager) remove(session *RaceSession) {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()

	if rm.races[session.ChannelID] == session {
		delete(rm.races, session.ChannelID)
		racesRunning.Dec()
	}
}

// Run waits out the join window, then runs the race in a channel until it finishes, is
// cancelled or ctx is done. The race is removed from the manager however it ends.
func (rm *RaceManager) Run(ctx context.Context, channelID string) error {
	session, ok := rm.Get(channelID)

	if !ok {
		return ErrRaceNotFound
	}

	session.mutex.Lock()

	if session.running {
		session.mutex.Unlock()
		return ErrRaceRunning
	}

	session.running = true
	session.mutex.Unlock()

	defer rm.remove(session)

	if err := rm.wait(ctx, session, rm.pacing.JoinWindow); err != nil {
		return rm.cancelled(session, err)
	}

	session.mutex.Lock()

	humans := session.contest.HumanCount()

	if humans == 0 {
		session.mutex.Unlock()
		return rm.cancelled(session, ErrNoParticipants)
	}

	session.contest.Start()
	session.startedAt = time.Now()
	session.announcement = session.narrator.AnnouncerComment(session.contest.FavoredStrategy(), session.Course)
	session.mutex.Unlock()

	raceParticipants.Observe(float64(humans))

	logrus.Infof("Race %s started in channel %s with %d human participants", session.ID, channelID, humans)

	if err := rm.getNotifier().OnRaceStarted(session); err != nil {
		logrus.WithError(err).Error("Could not notify race started")
	}

	for {
		select {
		case <-ctx.Done():
			return rm.cancelled(session, ctx.Err())
		case <-session.cancelled:
			return rm.cancelled(session, ErrRaceCancelled)
		default:
		}

		session.mutex.Lock()
		report, err := session.contest.AdvanceLap()
		session.mutex.Unlock()

		observeLap(report)

		if err := rm.getNotifier().OnLap(session, report); err != nil {
			logrus.WithError(err).Errorf("Could not notify lap %d", report.Lap)
		}

		if err != nil {
			logrus.WithError(err).Errorf("Race %s aborted", session.ID)
			captureError(err, map[string]string{"race": session.ID, "guild": session.GuildID})
		}

		if report.Finished {
			return rm.finished(session, report)
		}
	}
}

func (rm *RaceManager) wait(ctx context.Context, session *RaceSession, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-session.cancelled:
		return ErrRaceCancelled
	case <-timer.C:
		return nil
	}
}

func (rm *RaceManager) cancelled(session *RaceSession, reason error) error {
	label := "cancelled"

	switch errors.Cause(reason) {
	case ErrNoParticipants:
		label = "no_participants"
	case context.Canceled, context.DeadlineExceeded:
		label = "shutdown"
	}

	racesCancelled.WithLabelValues(label).Inc()

	logrus.WithError(reason).Infof("Race %s in channel %s ended early", session.ID, session.ChannelID)

	if err := rm.getNotifier().OnRaceCancelled(session, reason); err != nil {
		logrus.WithError(err).Error("Could not notify race cancelled")
	}

	return reason
}

func (rm *RaceManager) finished(session *RaceSession, report *race.LapReport) error {
	session.mutex.Lock()
	record := &RaceRecord{
		ID:         session.ID,
		GuildID:    session.GuildID,
		ChannelID:  session.ChannelID,
		Course:     session.Course.Name,
		StartedAt:  session.startedAt,
		FinishedAt: time.Now(),
		Laps:       report.Lap,
		Humans:     session.contest.HumanCount(),
		Comeback:   report.Outcome.ComebackOccurred,
		Aborted:    report.Aborted,
		Awards:     session.contest.ScoredAwards(),
	}
	session.mutex.Unlock()

	if winner := report.Outcome.Winner; winner != nil {
		record.Winner = winner.Name
	}

	if second := report.Outcome.SecondPlace; second != nil {
		record.Second = second.Name
	}

	racesFinished.WithLabelValues(raceResult(report.Outcome, report.Aborted)).Inc()
	raceLaps.Observe(float64(report.Lap))

	if err := rm.store.UpsertRaceRecord(record); err != nil {
		logrus.WithError(err).Errorf("Could not save race record %s", record.ID)
		captureError(err, map[string]string{"race": record.ID})
	}

	if err := rm.getNotifier().OnRaceFinished(session, record); err != nil {
		logrus.WithError(err).Error("Could not notify race finished")
	}

	logrus.Infof("Race %s finished after %d laps (winner: %s)", record.ID, record.Laps, record.Winner)

	return nil
}
