package race

import "github.com/pkg/errors"

const maxSurvivorNames = 5

// LapReport is everything that happened during one lap, in the order it happened.
type LapReport struct {
	Lap       int  `json:"lap"`
	FinalDuel bool `json:"final_duel"`

	ForcedElimination []string `json:"forced_elimination,omitempty"`
	Revival           []string `json:"revival,omitempty"`
	Revolution        []string `json:"revolution,omitempty"`
	Battles           []string `json:"battles,omitempty"`
	Skills            []string `json:"skills,omitempty"`
	Duel              []string `json:"duel,omitempty"`
	DuelOutcome       string   `json:"duel_outcome,omitempty"`

	BattleCount     int      `json:"battle_count"`
	ActiveCount     int      `json:"active_count"`
	EliminatedCount int      `json:"eliminated_count"`
	EliminatedNames []string `json:"eliminated_names"`
	RevivedNames    []string `json:"revived_names,omitempty"`
	// SurvivorNames is only set when between one and five participants remain.
	SurvivorNames []string `json:"survivor_names,omitempty"`

	Finished bool    `json:"finished"`
	Aborted  bool    `json:"aborted,omitempty"`
	Outcome  Outcome `json:"outcome"`
}

// Quiet reports whether a normal lap produced no battle or skill text.
func (r *LapReport) Quiet() bool {
	return !r.FinalDuel && len(r.Battles) == 0 && len(r.Skills) == 0
}

// AdvanceLap runs one lap. Calling it on a finished contest returns the terminal report
// alongside ErrContestFinished.
func (c *Contest) AdvanceLap() (*LapReport, error) {
	if c.finished {
		report := &LapReport{Lap: c.lap, FinalDuel: c.finalDuel}
		c.summarise(report)

		return report, ErrContestFinished
	}

	c.Start()
	c.startLap()

	report := &LapReport{Lap: c.lap, FinalDuel: c.finalDuel}

	if !c.finalDuel {
		for _, phase := range []func(*LapReport){c.forcedElimination, c.revival, c.revolution} {
			phase(report)

			if c.checkEnd() {
				c.summarise(report)
				return report, nil
			}
		}

		c.battles(report)
		c.checkEnd()
		c.summarise(report)

		return report, nil
	}

	err := c.duel(report)

	if !c.finished {
		c.finish()
	}

	c.summarise(report)

	return report, err
}

func (c *Contest) startLap() {
	c.lap++
	c.eliminatedThisLap = nil
	c.revivedThisLap = nil

	for _, p := range c.participants {
		p.UsedThisLap = false
	}

	if c.nextLapFinalDuel {
		c.nextLapFinalDuel = false

		if active := len(c.Active()); active == 2 {
			c.finalDuel = true
			c.logger.Infof("Lap %d: entering final duel", c.lap)
		} else {
			c.finalDuel = false
			c.logger.Warnf("Lap %d: cancelling final duel, %d participants are active", c.lap, active)
		}
	}
}

// checkEnd finishes the contest once one or no participants remain active.
func (c *Contest) checkEnd() bool {
	if c.finished {
		return true
	}

	active := c.Active()

	switch len(active) {
	case 0:
		c.logger.Warnf("Lap %d: contest ended with no active participants", c.lap)
	case 1:
		c.winner = active[0]

		if c.secondPlace == nil {
			c.logger.Debugf("Lap %d: contest ended with a single survivor and no second place", c.lap)
		}
	default:
		return false
	}

	c.finish()

	return true
}

func (c *Contest) finish() {
	c.finished = true

	if c.winner != nil {
		c.logger.Infof("Contest finished after %d laps. Winner: %s", c.lap, c.winner)
	} else {
		c.logger.Infof("Contest finished after %d laps without a winner", c.lap)
	}

	c.score()
}

// abort force-terminates the contest with a best-effort outcome after an invariant violation.
func (c *Contest) abort(cause error) error {
	c.aborted = true

	if active := c.Active(); len(active) == 1 {
		c.winner = active[0]
	}

	c.logger.WithError(cause).Errorf("Lap %d: aborting contest", c.lap)

	c.finish()

	return errors.Wrapf(cause, "lap %d", c.lap)
}

func (c *Contest) summarise(report *LapReport) {
	active := c.Active()

	report.ActiveCount = len(active)
	report.EliminatedCount = len(c.Eliminated())
	report.EliminatedNames = names(c.eliminatedThisLap)
	report.RevivedNames = nil
	report.SurvivorNames = nil

	if len(c.revivedThisLap) > 0 {
		report.RevivedNames = names(c.revivedThisLap)
	}

	if len(active) > 0 && len(active) <= maxSurvivorNames {
		report.SurvivorNames = names(active)
	}

	report.Finished = c.finished
	report.Aborted = c.aborted
	report.Outcome = c.Outcome()
}
