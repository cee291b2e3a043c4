// Package breaker implements the circuit breaker guarding the single
// upstream weather dependency. One shared instance gates all requests:
// after enough consecutive failures it rejects calls outright, then lets
// exactly one probe through once the cooldown has elapsed.
package breaker

// State is the breaker status.
type State int

const (
	// StateClosed allows all calls.
	StateClosed State = iota

	// StateOpen rejects calls until the cooldown elapses.
	StateOpen

	// StateHalfOpen allows a single probe call.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// event is an input to the breaker state machine.
type event int

const (
	// eventSuccess is a successful upstream call.
	eventSuccess event = iota

	// eventFailure is a failed upstream call below the failure threshold.
	eventFailure

	// eventThresholdReached is a failed call that hits the threshold.
	eventThresholdReached

	// eventCooldownElapsed fires lazily when a call arrives after the
	// open cooldown has passed.
	eventCooldownElapsed
)

// transition computes the next state for an event. It is pure so the full
// transition table can be tested in isolation; counters, timestamps and the
// probe flag are maintained by Breaker around it.
func transition(s State, ev event) State {
	switch s {
	case StateClosed:
		if ev == eventThresholdReached {
			return StateOpen
		}
		return StateClosed
	case StateOpen:
		if ev == eventCooldownElapsed {
			return StateHalfOpen
		}
		return StateOpen
	case StateHalfOpen:
		switch ev {
		case eventSuccess:
			return StateClosed
		case eventFailure, eventThresholdReached:
			return StateOpen
		}
		return StateHalfOpen
	default:
		return s
	}
}
