package integration

import (
	"encoding/json"
	"time"
)

// Status is the verification state of an integration.
type Status string

const (
	Pending            Status = "pending"
	Verified           Status = "verified"
	VerificationFailed Status = "verification_failed"
)

func (s Status) String() string {
	return string(s)
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case Pending, Verified, VerificationFailed:
		return true
	}
	return false
}

// Ready reports whether delivery may use an integration in status s.
func (s Status) Ready() bool {
	return s == Verified
}

// UnmarshalJSON rejects unknown status names.
func (s *Status) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if !Status(v).Valid() {
		return ErrUnknownStatus
	}
	*s = Status(v)
	return nil
}

// Record is the stored state of one integration.
type Record struct {
	Status Status `json:"status"`
	// Attempt counts verification rounds. Reverify increments it.
	Attempt   int       `json:"attempt"`
	Reason    string    `json:"reason,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// event names drive the transition table.
type event string

const (
	eventVerify   event = "verify"
	eventFail     event = "fail"
	eventReverify event = "reverify"
)

// transitions maps [from][event] to the target status.
var transitions = map[Status]map[event]Status{
	Pending: {
		eventVerify:   Verified,
		eventFail:     VerificationFailed,
		eventReverify: Pending,
	},
	Verified: {
		eventFail:     VerificationFailed,
		eventReverify: Pending,
	},
	VerificationFailed: {
		eventReverify: Pending,
	},
}

func eventFor(to Status) (event, bool) {
	switch to {
	case Verified:
		return eventVerify, true
	case VerificationFailed:
		return eventFail, true
	}
	return "", false
}

// CanTransition reports whether Set may move an integration from one status
// to another. Setting the current status again is always allowed.
func CanTransition(from, to Status) bool {
	if from == to {
		return from.Valid()
	}
	ev, ok := eventFor(to)
	if !ok {
		return false
	}
	next, ok := transitions[from][ev]
	return ok && next == to
}
