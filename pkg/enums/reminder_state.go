package enums

import "fmt"

// ReminderState tracks whether a cart has already received an
// abandoned-cart reminder. Carts only ever move between these two states:
// the expiry sweep resets a reminded cart back to not_reminded.
type ReminderState string

const (
	ReminderStateNotReminded ReminderState = "not_reminded"
	ReminderStateReminded    ReminderState = "reminded"
)

var validReminderStates = []ReminderState{
	ReminderStateNotReminded,
	ReminderStateReminded,
}

// String implements fmt.Stringer.
func (r ReminderState) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReminderState.
func (r ReminderState) IsValid() bool {
	for _, candidate := range validReminderStates {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReminderState converts raw input into a ReminderState.
func ParseReminderState(value string) (ReminderState, error) {
	for _, candidate := range validReminderStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reminder state %q", value)
}
