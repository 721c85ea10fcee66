package race

import (
	"testing"

	"github.com/pkg/errors"
)

func TestNewContestComputerParticipants(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		expected  int
	}{
		{name: "Default roster", requested: 7, expected: 7},
		{name: "Fewer than the roster", requested: 3, expected: 3},
		{name: "More than the roster is clamped", requested: 12, expected: len(computerRoster)},
		{name: "None", requested: 0, expected: 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := newTestContest(test.requested, NewRandom(1))

			if len(c.Participants()) != test.expected {
				t.Fatalf("expected %d participants, got %d", test.expected, len(c.Participants()))
			}

			for i, p := range c.Participants() {
				if !p.IsComputer || p.ID != -int64(i+1) || !p.Active || p.Eliminated {
					t.Errorf("unexpected computer participant %+v", p)
				}

				if p.ScoreKey() == "" || p.Strategy == "" {
					t.Errorf("computer participant %s has no score key or strategy", p.Name)
				}
			}

			if c.HumanCount() != 0 {
				t.Errorf("expected no humans, got %d", c.HumanCount())
			}
		})
	}
}

func TestContestJoin(t *testing.T) {
	c := newTestContest(7, NewRandom(1))

	if err := c.Join(NewParticipant(100, "Alice", StrategyTopSpeed)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		participant *Participant
		start       bool
		expected    error
	}{
		{name: "Duplicate ID", participant: NewParticipant(100, "Alice again", StrategyCornering), expected: ErrDuplicateParticipant},
		{name: "Computer flag", participant: &Participant{ID: 101, Name: "Bot", IsComputer: true}, expected: ErrComputerParticipant},
		{name: "Negative ID", participant: NewParticipant(-3, "Impostor", StrategyCornering), expected: ErrComputerParticipant},
		{name: "Nil participant", participant: nil, expected: ErrInvalidParticipant},
		{name: "After start", participant: NewParticipant(102, "Late", StrategyCornering), start: true, expected: ErrContestStarted},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if test.start {
				c.Start()
			}

			if err := c.Join(test.participant); err != test.expected {
				t.Errorf("expected %v, got %v", test.expected, err)
			}

			if c.AddParticipant(test.participant) {
				t.Error("AddParticipant succeeded where Join failed")
			}
		})
	}

	if c.HumanCount() != 1 || len(c.Participants()) != 8 {
		t.Errorf("expected 1 human out of 8 participants, got %d of %d", c.HumanCount(), len(c.Participants()))
	}
}

func TestContestParticipantOrderIsStable(t *testing.T) {
	c := newSeededContest(3, 4)
	before := c.Participants()

	for !c.IsFinished() {
		if _, err := c.AdvanceLap(); err != nil && errors.Cause(err) != ErrInvalidFinalDuel {
			t.Fatal(err)
		}
	}

	for i, p := range c.Participants() {
		if p != before[i] {
			t.Fatalf("participant %d changed position", i)
		}
	}
}

// One human and seven computers, with forced elimination and revival never firing.
func TestFirstLapPairwiseBattles(t *testing.T) {
	rng := newScriptedRandom(false)
	c := newTestContest(7, rng)

	human := NewParticipant(500, "Human", StrategyTopSpeed)

	if !c.AddParticipant(human) {
		t.Fatal("could not add human")
	}

	report, err := c.AdvanceLap()

	if err != nil {
		t.Fatal(err)
	}

	if report.Lap != 1 {
		t.Errorf("expected lap 1, got %d", report.Lap)
	}

	if len(report.ForcedElimination) != 0 || len(report.Revival) != 0 || len(report.Revolution) != 0 {
		t.Errorf("expected no events, got %+v", report)
	}

	if report.BattleCount != 2 || len(report.Battles) != 2 {
		t.Errorf("expected 2 battles, got %d (%d texts)", report.BattleCount, len(report.Battles))
	}

	if report.EliminatedCount != 2 || len(report.EliminatedNames) != 2 {
		t.Errorf("expected 2 eliminations, got %d", report.EliminatedCount)
	}

	if report.ActiveCount != 6 {
		t.Errorf("expected 6 active participants, got %d", report.ActiveCount)
	}

	if len(report.Skills) != 4 {
		t.Errorf("expected 4 unpaired participants to get skill events, got %d", len(report.Skills))
	}

	if report.Finished || c.IsFinished() {
		t.Error("contest should not be finished")
	}

	// participants are never reordered by the scripted source, so the pairs are (1, 2) and (3, 4)
	// and the evenly matched coin flip always goes to the first of each pair
	if report.EliminatedNames[0] != computerRoster[1] || report.EliminatedNames[1] != computerRoster[3] {
		t.Errorf("unexpected eliminations: %v", report.EliminatedNames)
	}

	for _, p := range c.Participants() {
		if p.Active && !p.UsedThisLap {
			t.Errorf("%s was not used this lap", p.Name)
		}
	}
}

func TestFinalDuelLatch(t *testing.T) {
	t.Run("Activates when two remain", func(t *testing.T) {
		c := newTestContest(3, newScriptedRandom(false))

		report, err := c.AdvanceLap()

		if err != nil {
			t.Fatal(err)
		}

		if report.ActiveCount != 2 || !c.nextLapFinalDuel || c.FinalDuel() {
			t.Fatalf("expected latch with two active, got active=%d latch=%t duel=%t", report.ActiveCount, c.nextLapFinalDuel, c.FinalDuel())
		}

		report, err = c.AdvanceLap()

		if err != nil {
			t.Fatal(err)
		}

		if !report.FinalDuel {
			t.Error("expected the second lap to be the final duel")
		}
	})

	t.Run("Cancels when the field changed", func(t *testing.T) {
		c := newTestContest(3, newScriptedRandom(false))

		if _, err := c.AdvanceLap(); err != nil {
			t.Fatal(err)
		}

		for _, p := range c.Eliminated() {
			c.revive(p)
		}

		report, err := c.AdvanceLap()

		if err != nil {
			t.Fatal(err)
		}

		if report.FinalDuel {
			t.Errorf("final duel should have been cancelled: %+v", report)
		}

		if report.BattleCount != 1 {
			t.Errorf("expected a normal battle lap, got %d battles", report.BattleCount)
		}
	})
}

func TestAdvanceLapAfterFinish(t *testing.T) {
	c := newTestContest(2, newScriptedRandom(false))

	report, err := c.AdvanceLap()

	if err != nil {
		t.Fatal(err)
	}

	if !report.Finished || report.Outcome.Winner == nil {
		t.Fatalf("expected a two participant contest to finish on the first lap, got %+v", report)
	}

	lap := c.Lap()

	report, err = c.AdvanceLap()

	if err != ErrContestFinished {
		t.Errorf("expected ErrContestFinished, got %v", err)
	}

	if !report.Finished || c.Lap() != lap {
		t.Error("a finished contest must not advance")
	}
}

func TestInvalidFinalDuelAborts(t *testing.T) {
	sink := &recordingSink{}
	c := newTestContest(3, newScriptedRandom(false), WithScoreSink(sink))

	c.Start()
	c.finalDuel = true

	report, err := c.AdvanceLap()

	if errors.Cause(err) != ErrInvalidFinalDuel {
		t.Fatalf("expected ErrInvalidFinalDuel, got %v", err)
	}

	if !report.Finished || !report.Aborted || !c.IsFinished() {
		t.Errorf("expected an aborted, finished contest: %+v", report)
	}

	if sink.calls != 1 {
		t.Errorf("expected exactly one scoring attempt, got %d", sink.calls)
	}
}

func TestSnapshot(t *testing.T) {
	c := newSeededContest(9, 2)

	if _, err := c.AdvanceLap(); err != nil {
		t.Fatal(err)
	}

	s := c.Snapshot()

	if s.Lap != 1 || !s.Started || len(s.Participants) != 9 || s.FavoredStrategy != c.FavoredStrategy() {
		t.Errorf("unexpected snapshot %+v", s)
	}

	s.Participants[0].Name = "changed"

	if c.Participants()[0].Name == "changed" {
		t.Error("snapshot shares participant state with the contest")
	}
}
