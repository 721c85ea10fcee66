package race

import (
	"fmt"
	"strconv"
)

type Strategy string

const (
	StrategyStartDash Strategy = "start_dash"
	StrategyTopSpeed  Strategy = "top_speed"
	StrategyCornering Strategy = "cornering"
)

var DefaultStrategies = []Strategy{StrategyStartDash, StrategyTopSpeed, StrategyCornering}

var strategyNames = map[Strategy]string{
	StrategyStartDash: "Start Dash",
	StrategyTopSpeed:  "Top Speed",
	StrategyCornering: "Cornering",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}

	return string(s)
}

var computerRoster = []string{
	"Hayate",
	"Road",
	"Roku",
	"Bun",
	"Kanerin",
	"Honty",
	"Rentaro",
}

// ComputerName returns the roster name for a computer participant's score key (CPU_1 ... CPU_n).
func ComputerName(scoreKey string) (string, bool) {
	var index int

	if _, err := fmt.Sscanf(scoreKey, "CPU_%d", &index); err != nil || index < 1 || index > len(computerRoster) {
		return "", false
	}

	return computerRoster[index-1], true
}

// Participant is a single entry in a contest. Negative IDs are reserved for computer participants.
type Participant struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	IsComputer  bool     `json:"is_computer"`
	Active      bool     `json:"active"`
	Eliminated  bool     `json:"eliminated"`
	UsedThisLap bool     `json:"used_this_lap"`
	Strategy    Strategy `json:"strategy"`
}

func NewParticipant(id int64, name string, strategy Strategy) *Participant {
	return &Participant{
		ID:       id,
		Name:     name,
		Active:   true,
		Strategy: strategy,
	}
}

func newComputerParticipant(index int, strategy Strategy) *Participant {
	return &Participant{
		ID:         -int64(index + 1),
		Name:       computerRoster[index],
		IsComputer: true,
		Active:     true,
		Strategy:   strategy,
	}
}

// ScoreKey identifies the participant to a score sink.
func (p *Participant) ScoreKey() string {
	if p.IsComputer {
		id := p.ID

		if id < 0 {
			id = -id
		}

		return "CPU_" + strconv.FormatInt(id, 10)
	}

	return strconv.FormatInt(p.ID, 10)
}

func (p *Participant) String() string {
	return fmt.Sprintf("%s (%d, %s)", p.Name, p.ID, p.Strategy)
}

func names(participants []*Participant) []string {
	out := make([]string, 0, len(participants))

	for _, p := range participants {
		out = append(out, p.Name)
	}

	return out
}

func containsParticipant(participants []*Participant, p *Participant) bool {
	for _, existing := range participants {
		if existing.ID == p.ID {
			return true
		}
	}

	return false
}
