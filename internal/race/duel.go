package race

// duel resolves the final head to head, after first rolling for a comeback from the
// eliminated field.
func (c *Contest) duel(report *LapReport) error {
	duelists := c.Active()

	if len(duelists) != 2 {
		return c.abort(ErrInvalidFinalDuel)
	}

	if c.comeback(report, duelists) {
		return nil
	}

	a, b := duelists[0], duelists[1]

	for i := 0; i < c.tuning.DuelBeats; i++ {
		report.Duel = append(report.Duel, c.narrator.Narrate(EventFinalDuelBeat, a, b))
	}

	report.Duel = append(report.Duel, c.narrator.Narrate(EventFinalDuelClimax, a, b))

	winner, loser := c.resolvePair(a, b)

	c.eliminate(loser)
	c.winner = winner
	c.secondPlace = loser

	report.DuelOutcome = c.narrator.Narrate(EventFinalDuelOutcome, winner, loser)

	c.logger.Infof("Lap %d: final duel won by %s over %s (favored: %s)", c.lap, winner, loser, c.favored)

	return nil
}

func (c *Contest) comeback(report *LapReport, duelists []*Participant) bool {
	if !chance(c.rng, c.tuning.ComebackChance) {
		return false
	}

	pool := c.Eliminated()

	if len(pool) == 0 {
		c.logger.Warnf("Lap %d: comeback rolled but nobody has been eliminated", c.lap)
		return false
	}

	winner := pool[c.rng.Intn(len(pool))]

	c.revive(winner)

	for _, p := range duelists {
		c.eliminate(p)
	}

	c.winner = winner
	c.secondPlace = nil
	c.comebackOccurred = true
	c.comebackWinner = winner
	c.comebackLosers = append([]*Participant(nil), duelists...)

	report.DuelOutcome = c.narrator.Narrate(EventComeback, winner, duelists[0], duelists[1])

	c.logger.Infof("Lap %d: comeback by %s over %s and %s", c.lap, winner, duelists[0], duelists[1])

	return true
}
