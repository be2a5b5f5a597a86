package session

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/roach88/truthtrail/internal/game"
)

var (
	// ErrInsufficientContent rejects StartGame when fewer claims than rounds are supplied.
	ErrInsufficientContent = errors.New("not enough claims for the requested rounds")

	// ErrInvalidSettings rejects StartGame settings that cannot start a game.
	ErrInvalidSettings = errors.New("invalid game settings")

	// ErrInvalidSubmission rejects a round submission with bad input.
	ErrInvalidSubmission = errors.New("invalid round submission")

	// ErrInvalidTransition is wrapped by every TransitionError.
	ErrInvalidTransition = errors.New("invalid session transition")

	// ErrUnknownAchievement is returned by ShareAchievement for unknown ids.
	ErrUnknownAchievement = errors.New("unknown achievement")

	// ErrClosed is returned by operations on a closed Machine.
	ErrClosed = errors.New("session machine closed")
)

// TransitionError reports an operation invoked in a state the machine
// should never allow. The session is left untouched.
//
// Transition errors are programming errors, not user errors: the UI only
// offers operations valid for the current phase. With WithStrict(true)
// they panic instead of returning.
type TransitionError struct {
	// Code identifies the error category.
	Code TransitionErrorCode

	// Op is the rejected operation.
	Op string

	// Phase is the phase the machine was in.
	Phase game.Phase

	// Round is the current round at the time of the call.
	Round int
}

// TransitionErrorCode categorizes transition errors.
type TransitionErrorCode string

const (
	// ErrCodeWrongPhase indicates the operation is not valid in the current phase.
	ErrCodeWrongPhase TransitionErrorCode = "WRONG_PHASE"

	// ErrCodeNoCurrentClaim indicates a playing session has no claim for its round.
	ErrCodeNoCurrentClaim TransitionErrorCode = "NO_CURRENT_CLAIM"
)

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s not allowed (phase=%s, round=%d)", e.Code, e.Op, e.Phase, e.Round)
}

// Unwrap lets errors.Is match ErrInvalidTransition.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// IsWrongPhase reports whether err is a wrong-phase TransitionError.
func IsWrongPhase(err error) bool {
	var te *TransitionError
	if errors.As(err, &te) {
		return te.Code == ErrCodeWrongPhase
	}
	return false
}

// IsNoCurrentClaim reports whether err is a missing-claim TransitionError.
func IsNoCurrentClaim(err error) bool {
	var te *TransitionError
	if errors.As(err, &te) {
		return te.Code == ErrCodeNoCurrentClaim
	}
	return false
}

func wrongPhase(op string, s game.Session) *TransitionError {
	return &TransitionError{Code: ErrCodeWrongPhase, Op: op, Phase: s.Phase, Round: s.CurrentRound}
}

func noCurrentClaim(op string, s game.Session) *TransitionError {
	return &TransitionError{Code: ErrCodeNoCurrentClaim, Op: op, Phase: s.Phase, Round: s.CurrentRound}
}
