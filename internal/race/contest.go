package race

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Option func(*Contest)

func WithTuning(tuning Tuning) Option {
	return func(c *Contest) {
		c.tuning = tuning
	}
}

func WithRandom(rng Random) Option {
	return func(c *Contest) {
		c.rng = rng
	}
}

func WithLogger(logger Logger) Option {
	return func(c *Contest) {
		c.logger = logger
	}
}

func WithScoreSink(sink ScoreSink) Option {
	return func(c *Contest) {
		c.sink = sink
	}
}

func WithStrategies(strategies ...Strategy) Option {
	return func(c *Contest) {
		c.strategies = strategies
	}
}

// Contest is the state of one elimination race. It is not safe for concurrent use; the driver
// must ensure only one call is in flight per contest.
type Contest struct {
	ID        uuid.UUID
	SessionID string

	participants []*Participant

	started          bool
	lap              int
	finalDuel        bool
	nextLapFinalDuel bool
	finished         bool
	aborted          bool

	winner      *Participant
	secondPlace *Participant

	comebackOccurred bool
	comebackWinner   *Participant
	comebackLosers   []*Participant

	eliminatedThisLap []*Participant
	revivedThisLap    []*Participant

	strategies []Strategy
	advantage  StrategyAdvantage
	favored    Strategy

	scored bool
	awards map[string]int

	tuning   Tuning
	narrator Narrator
	sink     ScoreSink
	rng      Random
	logger   Logger
}

func NewContest(sessionID string, narrator Narrator, opts ...Option) *Contest {
	c := &Contest{
		ID:         uuid.New(),
		SessionID:  sessionID,
		narrator:   narrator,
		tuning:     DefaultTuning(),
		strategies: DefaultStrategies,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.narrator == nil {
		c.narrator = nilNarrator{}
	}

	if c.sink == nil {
		c.sink = nilScoreSink{}
	}

	if c.rng == nil {
		c.rng = newTimeSeededRandom()
	}

	if c.logger == nil {
		c.logger = logrus.StandardLogger()
	}

	c.logger = c.logger.WithFields(logrus.Fields{
		"session": sessionID,
		"contest": c.ID.String(),
	})

	c.advantage = CalculateStrategyAdvantage(c.strategies, c.rng)
	c.favored = c.advantage.Favored()

	c.logger.Infof("Calculated strategy advantage: %v (favored: %s)", c.advantage, c.favored)

	c.initComputerParticipants()

	return c
}

func (c *Contest) initComputerParticipants() {
	count := c.tuning.ComputerParticipants

	if count > len(computerRoster) {
		c.logger.Warnf("Requested %d computer participants, but only %d names are available", count, len(computerRoster))
		count = len(computerRoster)
	}

	for i := 0; i < count; i++ {
		var strategy Strategy

		if len(c.strategies) > 0 {
			strategy = c.strategies[c.rng.Intn(len(c.strategies))]
		}

		c.participants = append(c.participants, newComputerParticipant(i, strategy))
	}

	c.logger.Debugf("Initialised %d computer participants", count)
}

// Join adds a human participant. It fails once the contest has started, for duplicate IDs and
// for computer participants.
func (c *Contest) Join(p *Participant) error {
	switch {
	case p == nil:
		return ErrInvalidParticipant
	case c.started:
		return ErrContestStarted
	case p.IsComputer || p.ID < 0:
		return ErrComputerParticipant
	case c.participant(p.ID) != nil:
		return ErrDuplicateParticipant
	}

	p.Active = true
	p.Eliminated = false
	p.UsedThisLap = false

	c.participants = append(c.participants, p)

	c.logger.Infof("Participant %s joined", p)

	return nil
}

// AddParticipant is Join for callers that only need to know whether the participant was added.
func (c *Contest) AddParticipant(p *Participant) bool {
	if err := c.Join(p); err != nil {
		c.logger.WithError(err).Warnf("Could not add participant")
		return false
	}

	return true
}

// Start freezes the participant list. AdvanceLap starts the contest implicitly.
func (c *Contest) Start() {
	if !c.started {
		c.started = true
		c.logger.Infof("Contest started with %d participants (%d human)", len(c.participants), c.HumanCount())
	}
}

func (c *Contest) participant(id int64) *Participant {
	for _, p := range c.participants {
		if p.ID == id {
			return p
		}
	}

	return nil
}

func (c *Contest) Participants() []*Participant {
	return append([]*Participant(nil), c.participants...)
}

func (c *Contest) Humans() []*Participant {
	var humans []*Participant

	for _, p := range c.participants {
		if !p.IsComputer {
			humans = append(humans, p)
		}
	}

	return humans
}

func (c *Contest) HumanCount() int {
	return len(c.Humans())
}

func (c *Contest) Active() []*Participant {
	var active []*Participant

	for _, p := range c.participants {
		if p.Active && !p.Eliminated {
			active = append(active, p)
		}
	}

	return active
}

func (c *Contest) Eliminated() []*Participant {
	var eliminated []*Participant

	for _, p := range c.participants {
		if p.Eliminated {
			eliminated = append(eliminated, p)
		}
	}

	return eliminated
}

func (c *Contest) Lap() int {
	return c.lap
}

func (c *Contest) Started() bool {
	return c.started
}

func (c *Contest) IsFinished() bool {
	return c.finished
}

func (c *Contest) FinalDuel() bool {
	return c.finalDuel
}

func (c *Contest) FavoredStrategy() Strategy {
	return c.favored
}

func (c *Contest) StrategyAdvantage() StrategyAdvantage {
	return c.advantage
}

func (c *Contest) Tuning() Tuning {
	return c.tuning
}

func (c *Contest) isFavored(p *Participant) bool {
	return c.favored != "" && p.Strategy == c.favored
}

func (c *Contest) eliminate(p *Participant) {
	if !p.Active {
		return
	}

	p.Active = false
	p.Eliminated = true

	if !containsParticipant(c.eliminatedThisLap, p) {
		c.eliminatedThisLap = append(c.eliminatedThisLap, p)
	}
}

func (c *Contest) revive(p *Participant) {
	if p.Active || !p.Eliminated {
		return
	}

	p.Active = true
	p.Eliminated = false
	p.UsedThisLap = false

	if !containsParticipant(c.revivedThisLap, p) {
		c.revivedThisLap = append(c.revivedThisLap, p)
	}
}

// resolvePair picks the winner of a head to head. When exactly one side runs the favored
// strategy it wins with the configured bias, otherwise it is a coin flip.
func (c *Contest) resolvePair(a, b *Participant) (winner, loser *Participant) {
	aFavored, bFavored := c.isFavored(a), c.isFavored(b)

	switch {
	case aFavored == bFavored:
		if c.rng.Intn(2) == 0 {
			return a, b
		}

		return b, a
	case aFavored:
		if c.rng.Float64() < c.tuning.StrategyBias {
			return a, b
		}

		return b, a
	default:
		if c.rng.Float64() < c.tuning.StrategyBias {
			return b, a
		}

		return a, b
	}
}

// Snapshot is a read-only view of a contest, used for rendering and debugging.
type Snapshot struct {
	ID                string            `json:"id"`
	SessionID         string            `json:"session_id"`
	Lap               int               `json:"lap"`
	Started           bool              `json:"started"`
	FinalDuel         bool              `json:"final_duel"`
	NextLapFinalDuel  bool              `json:"next_lap_final_duel"`
	Finished          bool              `json:"finished"`
	Aborted           bool              `json:"aborted"`
	FavoredStrategy   Strategy          `json:"favored_strategy"`
	StrategyAdvantage StrategyAdvantage `json:"strategy_advantage"`
	Participants      []Participant     `json:"participants"`
	Outcome           Outcome           `json:"outcome"`
}

func (c *Contest) Snapshot() Snapshot {
	s := Snapshot{
		ID:                c.ID.String(),
		SessionID:         c.SessionID,
		Lap:               c.lap,
		Started:           c.started,
		FinalDuel:         c.finalDuel,
		NextLapFinalDuel:  c.nextLapFinalDuel,
		Finished:          c.finished,
		Aborted:           c.aborted,
		FavoredStrategy:   c.favored,
		StrategyAdvantage: c.advantage,
		Outcome:           c.Outcome(),
	}

	for _, p := range c.participants {
		s.Participants = append(s.Participants, *p)
	}

	return s
}
