package entity

import (
	"fmt"
)

type BookingAction string

const (
	ActionApprove BookingAction = "approve"
	ActionReject  BookingAction = "reject"
)

// InvalidTransitionError is returned for any (status, action) pair the state
// machine does not admit. Callers match on it to tell a malformed action apart
// from an already-processed booking.
type InvalidTransitionError struct {
	From   BookingStatus
	Action BookingAction
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s booking in status %s", e.Action, e.From)
}

var bookingTransitions = map[BookingStatus]map[BookingAction]BookingStatus{
	BookingStatusRequested: {
		ActionApprove: BookingStatusConfirmed,
		ActionReject:  BookingStatusRejected,
	},
}

// Transition maps (current status, action) to the next booking status. Only
// REQUESTED bookings admit approve/reject; everything else is rejected.
func Transition(current BookingStatus, action BookingAction) (BookingStatus, error) {
	next, ok := bookingTransitions[current][action]
	if !ok {
		return "", &InvalidTransitionError{From: current, Action: action}
	}
	return next, nil
}
