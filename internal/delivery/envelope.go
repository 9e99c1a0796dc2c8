package delivery

import "errors"

// Envelope is the uniform result shape returned to callers. Kind is empty on success.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Kind    Kind   `json:"kind,omitempty"`
}

// NewEnvelope maps an operation result onto the envelope. message is used only on success.
func NewEnvelope(data any, err error, message string) Envelope {
	if err != nil {
		env := Envelope{Success: false, Kind: KindOf(err), Error: "internal error"}
		var de *Error
		if errors.As(err, &de) {
			env.Error = de.Message
		}
		return env
	}
	return Envelope{Success: true, Data: data, Message: message}
}
