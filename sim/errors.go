package sim

import "fmt"

// ConfigError reports an invalid argument or setting. It is raised at the
// call that received the bad value.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", e.Message)
}

// NewConfigError creates a ConfigError with a formatted message.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// IllegalStateError reports an operation that is not allowed in the current
// state of a state machine.
type IllegalStateError struct {
	Op    string
	State string
}

func (e *IllegalStateError) Error() string {
	return fmt.Sprintf("illegal operation %s in state %s", e.Op, e.State)
}

// NewIllegalStateError creates an IllegalStateError.
func NewIllegalStateError(op string, state fmt.Stringer) *IllegalStateError {
	return &IllegalStateError{Op: op, State: state.String()}
}
