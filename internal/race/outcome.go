package race

// Outcome is the terminal result of a contest. All participants are references into the
// contest's participant list.
type Outcome struct {
	Winner           *Participant   `json:"winner,omitempty"`
	SecondPlace      *Participant   `json:"second_place,omitempty"`
	ComebackOccurred bool           `json:"comeback_occurred"`
	ComebackLosers   []*Participant `json:"comeback_losers,omitempty"`
}

func (c *Contest) Outcome() Outcome {
	return Outcome{
		Winner:           c.winner,
		SecondPlace:      c.secondPlace,
		ComebackOccurred: c.comebackOccurred,
		ComebackLosers:   c.comebackLosers,
	}
}

// Awards computes the points every participant earned. The comeback winner takes the winner
// award and both beaten duelists the comeback loser award; everyone else who took part gets
// the participation award.
func (c *Contest) Awards() map[string]int {
	points := c.tuning.Points
	awards := make(map[string]int)

	switch {
	case c.comebackOccurred && c.comebackWinner != nil:
		awards[c.comebackWinner.ScoreKey()] = points.Winner

		for _, loser := range c.comebackLosers {
			awards[loser.ScoreKey()] = points.ComebackLoser
		}
	case c.winner != nil:
		awards[c.winner.ScoreKey()] = points.Winner

		if c.secondPlace != nil {
			awards[c.secondPlace.ScoreKey()] = points.SecondPlace
		}
	}

	for _, p := range c.participants {
		if _, ok := awards[p.ScoreKey()]; !ok {
			awards[p.ScoreKey()] = points.Participation
		}
	}

	return awards
}

// score hands the awards to the score sink once per contest. Sink failures are logged and
// otherwise ignored.
func (c *Contest) score() {
	if c.scored {
		return
	}

	c.scored = true
	c.awards = c.Awards()

	c.logger.Infof("Awarding points: %v", c.awards)

	defer func() {
		if r := recover(); r != nil {
			c.logger.Errorf("Score sink panicked: %v", r)
		}
	}()

	if err := c.sink.SavePoints(c.SessionID, c.awards); err != nil {
		c.logger.WithError(err).Error("Could not save contest points")
	}
}

// ScoredAwards returns the awards handed to the score sink, or nil before the contest finishes.
func (c *Contest) ScoredAwards() map[string]int {
	return c.awards
}
