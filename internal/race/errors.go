package race

import "github.com/pkg/errors"

var (
	ErrInvalidParticipant   = errors.New("race: participant is invalid")
	ErrContestStarted       = errors.New("race: contest has already started")
	ErrDuplicateParticipant = errors.New("race: participant has already joined")
	ErrComputerParticipant  = errors.New("race: computer participants cannot join")
	ErrContestFinished      = errors.New("race: contest is finished")
	ErrInvalidFinalDuel     = errors.New("race: final duel requires exactly two active participants")
)
