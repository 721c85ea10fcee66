package race

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

type Logger = logrus.FieldLogger

type EventKind int

const (
	EventOvertake EventKind = iota
	EventSkill
	EventRevival
	EventRevolution
	EventForcedEliminationSetup
	EventForcedEliminationResult
	EventFinalDuelBeat
	EventFinalDuelClimax
	EventFinalDuelOutcome
	EventComeback
)

var eventKindNames = map[EventKind]string{
	EventOvertake:                "overtake",
	EventSkill:                   "skill",
	EventRevival:                 "revival",
	EventRevolution:              "revolution",
	EventForcedEliminationSetup:  "forced_elimination_setup",
	EventForcedEliminationResult: "forced_elimination_result",
	EventFinalDuelBeat:           "final_duel_beat",
	EventFinalDuelClimax:         "final_duel_climax",
	EventFinalDuelOutcome:        "final_duel_outcome",
	EventComeback:                "comeback",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("event_%d", int(k))
}

// Narrator returns human readable text for an event. The participants passed depend on the kind:
//
//   EventOvertake: winner, loser
//   EventSkill, EventRevival: the participant
//   EventForcedEliminationSetup, EventForcedEliminationResult: everyone eliminated
//   EventFinalDuelBeat, EventFinalDuelClimax: both duelists
//   EventFinalDuelOutcome: winner, loser
//   EventComeback: comeback winner, both duelists
//   EventRevolution: none
type Narrator interface {
	Narrate(kind EventKind, participants ...*Participant) string
}

// ScoreSink persists the points earned in one contest, keyed by Participant.ScoreKey.
type ScoreSink interface {
	SavePoints(sessionID string, awards map[string]int) error
}

type nilNarrator struct{}

func (nilNarrator) Narrate(kind EventKind, participants ...*Participant) string {
	if len(participants) == 0 {
		return kind.String()
	}

	return kind.String() + ": " + strings.Join(names(participants), ", ")
}

type nilScoreSink struct{}

func (nilScoreSink) SavePoints(string, map[string]int) error {
	return nil
}
