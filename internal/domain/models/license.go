package models

// ValidationRequest is the body sent to the remote license authority.
type ValidationRequest struct {
	Key      string `json:"key"`
	DeviceID string `json:"device_id"`
}

// ValidationResult is the authority's verdict.
type ValidationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// GateState is the license gate state machine.
type GateState string

const (
	GateUnauthorized GateState = "unauthorized"
	GateValidating   GateState = "validating"
	GateAuthorized   GateState = "authorized"
)

// AuthDecision is what the gate tells its caller after a check or activation.
type AuthDecision struct {
	State       GateState `json:"state"`
	Authorized  bool      `json:"authorized"`
	PromptEntry bool      `json:"prompt_entry"`
	Skipped     bool      `json:"skipped,omitempty"`
	Message     string    `json:"message,omitempty"`
}
