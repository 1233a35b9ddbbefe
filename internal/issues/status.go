package issues

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition indicates an illegal lifecycle move or an attempt to
// mutate a terminal state.
var ErrInvalidTransition = errors.New("issues: invalid status transition")

// terminal states have no outbound edges.
var terminal = map[Status]bool{
	StatusClosed:    true,
	StatusCancelled: true,
}

// allowed is the adjacency map of legal transitions.
var allowed = map[Status][]Status{
	StatusNew:            {StatusScreening, StatusScheduled, StatusAssigned, StatusCancelled},
	StatusScreening:      {StatusScheduled, StatusAssigned, StatusCancelled},
	StatusScheduled:      {StatusAssigned, StatusCancelled},
	StatusAssigned:       {StatusEnRoute, StatusScheduled, StatusCancelled},
	StatusEnRoute:        {StatusInProgress, StatusScheduled, StatusCancelled},
	StatusInProgress:     {StatusOnHoldParts, StatusOnHoldCustomer, StatusAwaitingPay, StatusResolved, StatusCancelled},
	StatusOnHoldParts:    {StatusInProgress, StatusCancelled},
	StatusOnHoldCustomer: {StatusInProgress, StatusCancelled},
	StatusAwaitingPay:    {StatusResolved, StatusCancelled},
	// resolved may reopen or finalize
	StatusResolved: {StatusClosed, StatusAwaitingPay, StatusInProgress, StatusCancelled},
	StatusClosed:   {},
	StatusCancelled: {},
}

// IsTerminal reports whether the status permits no further transitions.
func IsTerminal(s Status) bool {
	return terminal[s]
}

// CanTransition checks a lifecycle move without mutating anything.
func CanTransition(from, to Status) bool {
	if terminal[from] {
		return false
	}
	for _, next := range allowed[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedNext returns the legal target states for the given status.
func AllowedNext(from Status) []Status {
	next := allowed[from]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// ValidStatus reports whether s names a known lifecycle state.
func ValidStatus(s Status) bool {
	if terminal[s] {
		return true
	}
	_, ok := allowed[s]
	return ok
}

func invalidTransition(from, to Status) error {
	return fmt.Errorf("%w: cannot move from %q to %q", ErrInvalidTransition, from, to)
}
