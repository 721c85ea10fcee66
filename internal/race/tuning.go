package race

import (
	"math"

	"github.com/pkg/errors"
)

type ForcedEliminationTuning struct {
	Threshold           int     `json:"threshold" yaml:"threshold"`
	PerPlayerRate       float64 `json:"per_player_rate" yaml:"per_player_rate"`
	MaxRate             float64 `json:"max_rate" yaml:"max_rate"`
	EliminationFraction float64 `json:"elimination_fraction" yaml:"elimination_fraction"`
	MinAbsolute         int     `json:"min_absolute" yaml:"min_absolute"`
	MinSurvivors        int     `json:"min_survivors" yaml:"min_survivors"`
}

type RevivalTuning struct {
	MaxPerLap int `json:"max_per_lap" yaml:"max_per_lap"`
	// CutoffLap disables revivals from this lap onwards. Zero means revivals never stop.
	CutoffLap int `json:"cutoff_lap" yaml:"cutoff_lap"`
}

type RevolutionTuning struct {
	MinLap    int     `json:"min_lap" yaml:"min_lap"`
	Chance    float64 `json:"chance" yaml:"chance"`
	MinActive int     `json:"min_active" yaml:"min_active"`
}

type Points struct {
	Winner        int `json:"winner" yaml:"winner"`
	SecondPlace   int `json:"second_place" yaml:"second_place"`
	ComebackLoser int `json:"comeback_loser" yaml:"comeback_loser"`
	Participation int `json:"participation" yaml:"participation"`
}

// Tuning is the complete parameter set for a contest. It is fixed once the contest is created.
type Tuning struct {
	ComputerParticipants int     `json:"computer_participants" yaml:"computer_participants"`
	StrategyBias         float64 `json:"strategy_bias" yaml:"strategy_bias"`
	ComebackChance       float64 `json:"comeback_chance" yaml:"comeback_chance"`
	DuelBeats            int     `json:"duel_beats" yaml:"duel_beats"`

	ForcedElimination ForcedEliminationTuning `json:"forced_elimination" yaml:"forced_elimination"`
	Revival           RevivalTuning           `json:"revival" yaml:"revival"`
	Revolution        RevolutionTuning        `json:"revolution" yaml:"revolution"`
	Points            Points                  `json:"points" yaml:"points"`
}

func DefaultTuning() Tuning {
	return Tuning{
		ComputerParticipants: len(computerRoster),
		StrategyBias:         0.55,
		ComebackChance:       0.05,
		DuelBeats:            7,

		ForcedElimination: ForcedEliminationTuning{
			Threshold:           5,
			PerPlayerRate:       0.02,
			MaxRate:             0.20,
			EliminationFraction: 0.15,
			MinAbsolute:         2,
			MinSurvivors:        3,
		},
		Revival: RevivalTuning{
			MaxPerLap: 5,
		},
		Revolution: RevolutionTuning{
			MinLap:    3,
			Chance:    0.04,
			MinActive: 4,
		},
		Points: Points{
			Winner:        10,
			SecondPlace:   7,
			ComebackLoser: 5,
			Participation: 2,
		},
	}
}

func (t Tuning) Validate() error {
	switch {
	case t.ComputerParticipants < 0:
		return errors.New("race: computer_participants must not be negative")
	case t.StrategyBias <= 0 || t.StrategyBias >= 1:
		return errors.Errorf("race: strategy_bias %.2f must be within (0, 1)", t.StrategyBias)
	case t.ComebackChance < 0 || t.ComebackChance > 1:
		return errors.Errorf("race: comeback_chance %.2f must be within [0, 1]", t.ComebackChance)
	case t.ForcedElimination.MaxRate < 0 || t.ForcedElimination.MaxRate > 1:
		return errors.Errorf("race: forced_elimination.max_rate %.2f must be within [0, 1]", t.ForcedElimination.MaxRate)
	case t.ForcedElimination.EliminationFraction < 0 || t.ForcedElimination.EliminationFraction > 1:
		return errors.New("race: forced_elimination.elimination_fraction must be within [0, 1]")
	case t.ForcedElimination.MinAbsolute < 1:
		return errors.New("race: forced_elimination.min_absolute must be at least 1")
	case t.ForcedElimination.MinSurvivors < 2:
		return errors.New("race: forced_elimination.min_survivors must be at least 2")
	case t.ForcedElimination.Threshold < t.ForcedElimination.MinSurvivors:
		return errors.New("race: forced_elimination.threshold must not be below min_survivors")
	case t.Revival.MaxPerLap < 0:
		return errors.New("race: revival.max_per_lap must not be negative")
	case t.Revolution.Chance < 0 || t.Revolution.Chance > 1:
		return errors.New("race: revolution.chance must be within [0, 1]")
	case t.Points.ComebackLoser >= t.Points.SecondPlace:
		return errors.New("race: points.comeback_loser must be smaller than points.second_place")
	}

	return nil
}

// ForcedEliminationChance scales linearly with the active population above the threshold.
func ForcedEliminationChance(active int, t ForcedEliminationTuning) float64 {
	if active < t.Threshold {
		return 0
	}

	p := t.PerPlayerRate * float64(active-t.Threshold)

	return math.Max(0, math.Min(p, t.MaxRate))
}

// ForcedEliminationCount returns how many participants a forced elimination removes, or zero
// when the event would have to be cancelled to protect the minimum survivor count.
func ForcedEliminationCount(active int, t ForcedEliminationTuning) int {
	target := int(math.Floor(float64(active) * t.EliminationFraction))

	if target < t.MinAbsolute {
		target = t.MinAbsolute
	}

	if maxPossible := active - t.MinSurvivors; target > maxPossible {
		target = maxPossible
	}

	if target < t.MinAbsolute {
		return 0
	}

	return target
}

var revivalCurve = map[int]float64{
	2: 0.50,
	3: 0.40,
	4: 0.30,
	5: 0.20,
	6: 0.10,
	7: 0.08,
	8: 0.06,
	9: 0.04,
}

// RevivalChance is the per-participant probability of a revival on the given lap.
func RevivalChance(lap int) float64 {
	switch {
	case lap < 2:
		return 0
	case lap < 10:
		if p, ok := revivalCurve[lap]; ok {
			return p
		}

		return 0.02
	case lap <= 15:
		return 0.005
	default:
		return 0.002
	}
}

// BattleCount is the number of simultaneous pairwise battles for the available participants.
func BattleCount(available int) int {
	if available < 2 {
		return 0
	}

	battles := available / 4

	if battles < 1 {
		battles = 1
	}

	if battles > 8 {
		battles = 8
	}

	if battles > available/2 {
		battles = available / 2
	}

	return battles
}
