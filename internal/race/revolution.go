package race

// revolution swaps the whole active field with the whole eliminated field.
func (c *Contest) revolution(report *LapReport) {
	t := c.tuning.Revolution

	if c.lap < t.MinLap || !chance(c.rng, t.Chance) {
		return
	}

	demoted := c.Active()
	promoted := c.Eliminated()

	if len(demoted) < t.MinActive || len(promoted) == 0 {
		return
	}

	for _, p := range demoted {
		c.eliminate(p)
	}

	for _, p := range promoted {
		c.revive(p)
	}

	report.Revolution = []string{c.narrator.Narrate(EventRevolution)}

	c.logger.Infof("Lap %d: revolution, %d demoted and %d promoted", c.lap, len(demoted), len(promoted))
}
