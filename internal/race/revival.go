package race

// revival gives participants knocked out in earlier laps a lap-dependent chance to return.
func (c *Contest) revival(report *LapReport) {
	if c.lap < 2 {
		return
	}

	if cutoff := c.tuning.Revival.CutoffLap; cutoff > 0 && c.lap >= cutoff {
		return
	}

	p := RevivalChance(c.lap)
	revived := 0

	for _, candidate := range c.Eliminated() {
		if containsParticipant(c.eliminatedThisLap, candidate) {
			continue
		}

		if revived >= c.tuning.Revival.MaxPerLap {
			c.logger.Debugf("Lap %d: revival limit of %d reached", c.lap, c.tuning.Revival.MaxPerLap)
			break
		}

		if chance(c.rng, p) {
			c.revive(candidate)
			report.Revival = append(report.Revival, c.narrator.Narrate(EventRevival, candidate))
			revived++
		}
	}

	if revived > 0 {
		c.logger.Infof("Lap %d: %d participants revived (chance %.1f%%)", c.lap, revived, p*100)
	}
}
