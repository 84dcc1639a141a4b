// Package apperr defines the domain error taxonomy. Handlers map these onto
// the HTTP envelope; services return them directly and never panic for
// expected conditions.
package apperr

import (
	"errors"
	"fmt"
)

// Validation errors: caller-supplied value outside contract. No state change.
var (
	ErrBidTooLow          = errors.New("bid below required minimum increment")
	ErrInvalidRoster      = errors.New("roster does not satisfy size or composition rules")
	ErrContractBelowFloor = errors.New("offer below 70% of universal value")
	ErrDailyLimitReached  = errors.New("daily action limit reached")
	ErrSelfBid            = errors.New("cannot bid on own listing")
	ErrRegistrationClosed = errors.New("registration window is closed")
)

// Conflict errors: optimistic or transactional conflicts.
var (
	ErrStaleDay      = errors.New("season day advanced concurrently")
	ErrAuctionClosed = errors.New("listing is no longer active")
	ErrListingBusy   = errors.New("listing is locked by another operation")
)

// Resource errors: surfaced, never silently adjusted.
var (
	ErrInsufficientCredits = errors.New("insufficient free credits")
	ErrInsufficientGems    = errors.New("insufficient gems")
	ErrInsufficientLineup  = errors.New("not enough eligible players to field a lineup")
)

// Not-found errors.
var (
	ErrTeamNotFound       = errors.New("team not found")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrGameNotFound       = errors.New("game not found")
	ErrListingNotFound    = errors.New("listing not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrSeasonNotFound     = errors.New("no current season")
)

// Invariant reports a state that should be impossible. The enclosing
// transaction rolls back; these are bugs, not runtime conditions.
type Invariant struct {
	Detail string
}

func (e *Invariant) Error() string {
	return fmt.Sprintf("invariant violation: %s", e.Detail)
}

func Invariantf(format string, args ...interface{}) error {
	return &Invariant{Detail: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err belongs to the validation kind.
func IsValidation(err error) bool {
	return errors.Is(err, ErrBidTooLow) ||
		errors.Is(err, ErrInvalidRoster) ||
		errors.Is(err, ErrContractBelowFloor) ||
		errors.Is(err, ErrDailyLimitReached) ||
		errors.Is(err, ErrSelfBid) ||
		errors.Is(err, ErrRegistrationClosed)
}

// IsConflict reports whether err belongs to the conflict kind.
func IsConflict(err error) bool {
	return errors.Is(err, ErrStaleDay) ||
		errors.Is(err, ErrAuctionClosed) ||
		errors.Is(err, ErrListingBusy)
}

// IsInsufficient reports whether err belongs to the resource kind.
func IsInsufficient(err error) bool {
	return errors.Is(err, ErrInsufficientCredits) ||
		errors.Is(err, ErrInsufficientGems) ||
		errors.Is(err, ErrInsufficientLineup)
}

// IsNotFound reports whether err belongs to the not-found kind.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTeamNotFound) ||
		errors.Is(err, ErrPlayerNotFound) ||
		errors.Is(err, ErrGameNotFound) ||
		errors.Is(err, ErrListingNotFound) ||
		errors.Is(err, ErrTournamentNotFound) ||
		errors.Is(err, ErrSeasonNotFound)
}
