package race

// forcedElimination culls a random slice of a large field, independent of battle outcomes.
func (c *Contest) forcedElimination(report *LapReport) {
	t := c.tuning.ForcedElimination
	active := c.Active()

	if len(active) < t.Threshold {
		return
	}

	p := ForcedEliminationChance(len(active), t)

	c.logger.Debugf("Lap %d: forced elimination check, active=%d chance=%.3f", c.lap, len(active), p)

	if !chance(c.rng, p) {
		return
	}

	count := ForcedEliminationCount(len(active), t)

	if count == 0 {
		c.logger.Warnf("Lap %d: forced elimination would remove fewer than %d participants, cancelling", c.lap, t.MinAbsolute)
		return
	}

	c.rng.Shuffle(len(active), func(i, j int) {
		active[i], active[j] = active[j], active[i]
	})

	eliminated := active[:count]

	for _, participant := range eliminated {
		c.eliminate(participant)
	}

	report.ForcedElimination = []string{
		c.narrator.Narrate(EventForcedEliminationSetup, eliminated...),
		c.narrator.Narrate(EventForcedEliminationResult, eliminated...),
	}

	c.logger.Infof("Lap %d: forced elimination (%.1f%%) removed %d participants: %v", c.lap, p*100, count, names(eliminated))
}
