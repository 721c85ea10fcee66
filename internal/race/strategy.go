package race

const (
	strategyFluctuation = 0.05
	strategyMinWeight   = 0.01
)

type StrategyWeight struct {
	Strategy Strategy `json:"strategy"`
	Weight   float64  `json:"weight"`
}

// StrategyAdvantage holds one weight per strategy, in enumeration order, summing to 1.
type StrategyAdvantage []StrategyWeight

// CalculateStrategyAdvantage perturbs a uniform weighting by up to 5% per strategy. The last
// strategy takes the remainder, then the whole table is renormalised.
func CalculateStrategyAdvantage(strategies []Strategy, rng Random) StrategyAdvantage {
	n := len(strategies)

	if n == 0 {
		return nil
	}

	base := 1.0 / float64(n)
	weights := make([]float64, n)
	sum := 0.0

	for i := 0; i < n-1; i++ {
		fluctuation := (rng.Float64()*2 - 1) * strategyFluctuation
		weights[i] = maxFloat(strategyMinWeight, base+fluctuation)
		sum += weights[i]
	}

	weights[n-1] = maxFloat(strategyMinWeight, 1-sum)
	sum += weights[n-1]

	advantage := make(StrategyAdvantage, n)

	for i, strategy := range strategies {
		advantage[i] = StrategyWeight{Strategy: strategy, Weight: weights[i] / sum}
	}

	return advantage
}

// Favored is the strategy with the highest weight. Ties go to the earlier strategy.
func (a StrategyAdvantage) Favored() Strategy {
	var favored Strategy

	best := -1.0

	for _, w := range a {
		if w.Weight > best {
			best = w.Weight
			favored = w.Strategy
		}
	}

	return favored
}

func (a StrategyAdvantage) Weight(strategy Strategy) float64 {
	for _, w := range a {
		if w.Strategy == strategy {
			return w.Weight
		}
	}

	return 0
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}

	return b
}
