package generator

import (
	"errors"
	"fmt"
)

// Configuration error constants
var (
	// Resolution errors
	ErrGeneratorNotFound = errors.New("no generator declared with that name")
	ErrUnknownStrategy   = errors.New("unknown generator strategy")
	ErrInvalidDefinition = errors.New("invalid generator definition")
	ErrInvalidParameter  = errors.New("invalid generator parameter")

	// Marker errors
	ErrTooManyMarkers = errors.New("too many generator markers on one property")
	ErrUnknownMarker  = errors.New("no generator registered for marker")

	// Capability errors
	ErrMissingCapability = errors.New("generator implements neither before-execution nor on-execution generation")
	ErrCapabilityMix     = errors.New("value generator must not implement identifier generator or exportable producer")
	ErrVersionEvents     = errors.New("generator for a version property must generate on insert and update")
	ErrIDGeneratorEvents = errors.New("identifier generator must generate on insert and not on update")

	// Construction errors
	ErrInstantiation  = errors.New("could not instantiate generator")
	ErrMissingBacking = errors.New("generator backing service not available")

	// Runtime errors
	ErrValueNotAssigned = errors.New("identifier must be manually assigned before insert")
)

// ConfigurationError is raised at bootstrap and never retried
type ConfigurationError struct {
	Code    string
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func NewConfigurationError(code, message string, err error) *ConfigurationError {
	return &ConfigurationError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewConfigurationErrorf(code, message string, err error, args ...any) *ConfigurationError {
	return &ConfigurationError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// IsConfigurationError reports whether err is a ConfigurationError
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

func IsGeneratorNotFound(err error) bool {
	return errors.Is(err, ErrGeneratorNotFound)
}

func IsUnknownStrategy(err error) bool {
	return errors.Is(err, ErrUnknownStrategy)
}

func IsTooManyMarkers(err error) bool {
	return errors.Is(err, ErrTooManyMarkers)
}

func IsMissingCapability(err error) bool {
	return errors.Is(err, ErrMissingCapability)
}

func IsCapabilityMix(err error) bool {
	return errors.Is(err, ErrCapabilityMix)
}

func IsVersionEvents(err error) bool {
	return errors.Is(err, ErrVersionEvents)
}

func IsIDGeneratorEvents(err error) bool {
	return errors.Is(err, ErrIDGeneratorEvents)
}

func IsInstantiation(err error) bool {
	return errors.Is(err, ErrInstantiation)
}

func IsValueNotAssigned(err error) bool {
	return errors.Is(err, ErrValueNotAssigned)
}
