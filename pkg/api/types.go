package api

import "github.com/forklift-teleop/controller/pkg/readout"

// --- Data Structures for WebSocket Messages ---

// Client message types.
const (
	MsgValidate  = "validate"
	MsgEndpoint  = "endpoint"
	MsgThrottle  = "throttle"
	MsgDirection = "direction"
	MsgSteering  = "steering"
)

// Server message types.
const (
	MsgSession    = "session"
	MsgValidation = "validation"
	MsgReadout    = "readout"
	MsgError      = "error"
)

// ClientMessage is any message sent by the dashboard. Which fields are used
// depends on Type.
type ClientMessage struct {
	Type    string  `json:"type"`
	Address string  `json:"address,omitempty"`
	Action  string  `json:"action,omitempty"`
	Value   float64 `json:"value,omitempty"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
}

// SessionMessage greets a new connection.
type SessionMessage struct {
	Type  string        `json:"type"`
	ID    string        `json:"id"`
	Scale readout.Scale `json:"scale"`
}

// ValidationMessage reports whether an address is a usable endpoint. It
// answers both "validate" and "endpoint" requests.
type ValidationMessage struct {
	Type     string `json:"type"`
	Address  string `json:"address"`
	Valid    bool   `json:"valid"`
	Endpoint string `json:"endpoint,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ReadoutMessage carries one emitted control value. Needle is set for the
// throttle, whose magnitude drives the speedometer.
type ReadoutMessage struct {
	Type    string   `json:"type"`
	Control string   `json:"control"`
	Value   float64  `json:"value"`
	Display string   `json:"display"`
	Needle  *float64 `json:"needle,omitempty"`
}

// ErrorMessage reports a rejected request. The connection stays open.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
