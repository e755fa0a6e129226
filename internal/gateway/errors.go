package gateway

import "fmt"

// Capability names one of the three generation operations.
type Capability string

const (
	CapabilityChat   Capability = "chat"
	CapabilityImage  Capability = "image"
	CapabilitySpeech Capability = "speech"
)

// Error reports a failed generation call: transport errors, provider errors
// and malformed responses alike.
type Error struct {
	Capability Capability
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Capability, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
