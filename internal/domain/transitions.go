package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidTransition the (from, to) pair is not in the transition table
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrActorNotAllowed the pair exists but the actor may not trigger it
	ErrActorNotAllowed = errors.New("actor is not allowed to perform transition")

	// ErrTransitionTooEarly the transition needs the appointment to have ended
	ErrTransitionTooEarly = errors.New("appointment has not ended yet")
)

// TransitionError describes a rejected status change
type TransitionError struct {
	From   AppointmentStatus
	To     AppointmentStatus
	Actor  ActorRole
	Reason error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%v: %s -> %s by %s", e.Reason, e.From, e.To, e.Actor)
}

func (e *TransitionError) Unwrap() error {
	return e.Reason
}

type transitionRule struct {
	actors        []ActorRole
	requiresEnded bool
}

func (r transitionRule) allows(actor ActorRole) bool {
	for _, a := range r.actors {
		if a == actor {
			return true
		}
	}
	return false
}

// transitions is the complete status table; a missing pair is an invalid transition.
// Payment may cancel a pending appointment: that is how a failed payment is applied.
var transitions = map[AppointmentStatus]map[AppointmentStatus]transitionRule{
	StatusPending: {
		StatusConfirmed: {actors: []ActorRole{ActorBusiness, ActorPayment}},
		StatusCancelled: {actors: []ActorRole{ActorBusiness, ActorCustomer, ActorPayment}},
	},
	StatusConfirmed: {
		StatusCompleted: {actors: []ActorRole{ActorBusiness}, requiresEnded: true},
		StatusNoShow:    {actors: []ActorRole{ActorBusiness}, requiresEnded: true},
		StatusCancelled: {actors: []ActorRole{ActorBusiness, ActorCustomer}},
	},
}

// InitialStatus returns the status a new appointment starts in
func InitialStatus(price float64) AppointmentStatus {
	if price > 0 {
		return StatusPending
	}
	return StatusConfirmed
}

// IsTransitionDefined reports whether the pair is in the table for any actor
func IsTransitionDefined(from, to AppointmentStatus) bool {
	_, ok := transitions[from][to]
	return ok
}

// ValidateTransition checks that actor may move the appointment to status "to" at moment now.
// The end-time check uses now's location to place the appointment on the clock.
func ValidateTransition(a *Appointment, to AppointmentStatus, actor ActorRole, now time.Time) error {
	rule, ok := transitions[a.Status][to]
	if !ok {
		return &TransitionError{From: a.Status, To: to, Actor: actor, Reason: ErrInvalidTransition}
	}
	if !rule.allows(actor) {
		return &TransitionError{From: a.Status, To: to, Actor: actor, Reason: ErrActorNotAllowed}
	}
	if rule.requiresEnded {
		end, err := a.EndsAt(now.Location())
		if err != nil {
			return fmt.Errorf("domain: appointment id=%d end time: %w", a.ID, err)
		}
		if now.Before(end) {
			return &TransitionError{From: a.Status, To: to, Actor: actor, Reason: ErrTransitionTooEarly}
		}
	}
	return nil
}
