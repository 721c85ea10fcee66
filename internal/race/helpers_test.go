package race

import (
	"io/ioutil"
	"math/rand"

	"github.com/sirupsen/logrus"
)

// scriptedRandom returns a fixed draw for every probability check, picks index zero and never
// reorders. A draw of 0 makes every event fire, a draw just below 1 makes none fire.
type scriptedRandom struct {
	draw float64
}

func (s *scriptedRandom) Float64() float64 {
	return s.draw
}

func (s *scriptedRandom) Intn(int) int {
	return 0
}

func (s *scriptedRandom) Shuffle(int, func(i, j int)) {}

func (s *scriptedRandom) always() {
	s.draw = 0
}

func (s *scriptedRandom) never() {
	s.draw = 0.999999
}

func newScriptedRandom(fire bool) *scriptedRandom {
	s := &scriptedRandom{}

	if fire {
		s.always()
	} else {
		s.never()
	}

	return s
}

type recordingSink struct {
	calls     int
	sessionID string
	awards    map[string]int
	err       error
}

func (r *recordingSink) SavePoints(sessionID string, awards map[string]int) error {
	r.calls++
	r.sessionID = sessionID
	r.awards = awards

	return r.err
}

type countingNarrator struct {
	counts map[EventKind]int
}

func (n *countingNarrator) Narrate(kind EventKind, participants ...*Participant) string {
	if n.counts == nil {
		n.counts = make(map[EventKind]int)
	}

	n.counts[kind]++

	return nilNarrator{}.Narrate(kind, participants...)
}

func testLogger() Logger {
	logger := logrus.New()
	logger.Out = ioutil.Discard

	return logger
}

func newTestContest(computers int, rng Random, opts ...Option) *Contest {
	tuning := DefaultTuning()
	tuning.ComputerParticipants = computers

	opts = append([]Option{WithTuning(tuning), WithRandom(rng), WithLogger(testLogger())}, opts...)

	return NewContest("guild-1", &countingNarrator{}, opts...)
}

func newSeededContest(seed int64, humans int) *Contest {
	c := NewContest("guild-1", &countingNarrator{},
		WithRandom(rand.New(rand.NewSource(seed))),
		WithLogger(testLogger()),
	)

	for i := 0; i < humans; i++ {
		c.AddParticipant(NewParticipant(int64(1000+i), "human", DefaultStrategies[i%len(DefaultStrategies)]))
	}

	return c
}

func checkPopulation(c *Contest) (active, eliminated int, ok bool) {
	for _, p := range c.participants {
		if p.Active == p.Eliminated {
			return 0, 0, false
		}

		if p.Active {
			active++
		} else {
			eliminated++
		}
	}

	return active, eliminated, active+eliminated == len(c.participants)
}
