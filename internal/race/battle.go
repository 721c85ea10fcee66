package race

// battles pairs up the available field. Each pair's loser is eliminated and anyone left
// unpaired gets a cosmetic skill event.
func (c *Contest) battles(report *LapReport) {
	var available []*Participant

	for _, p := range c.Active() {
		if !p.UsedThisLap {
			available = append(available, p)
		}
	}

	battles := BattleCount(len(available))

	c.logger.Debugf("Lap %d: available=%d battles=%d", c.lap, len(available), battles)

	if battles > 0 {
		c.rng.Shuffle(len(available), func(i, j int) {
			available[i], available[j] = available[j], available[i]
		})
	}

	paired, single := available[:battles*2], available[battles*2:]

	for i := 0; i < len(paired); i += 2 {
		a, b := paired[i], paired[i+1]
		winner, loser := c.resolvePair(a, b)

		report.Battles = append(report.Battles, c.narrator.Narrate(EventOvertake, winner, loser))

		c.eliminate(loser)
		a.UsedThisLap = true
		b.UsedThisLap = true

		c.logger.Debugf("Lap %d: %s beat %s (favored: %s)", c.lap, winner, loser, c.favored)
	}

	for _, p := range single {
		if !p.Active {
			continue
		}

		report.Skills = append(report.Skills, c.narrator.Narrate(EventSkill, p))
		p.UsedThisLap = true
	}

	report.BattleCount = battles

	if len(c.Active()) == 2 {
		c.nextLapFinalDuel = true
		c.logger.Infof("Lap %d: two participants remaining, final duel next lap", c.lap)
	}
}
