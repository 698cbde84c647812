package protocol

import "sync/atomic"

// ErrorCode is a numeric code exposed to the client alongside every
// error frame. The numbering is part of the wire contract.
type ErrorCode uint32

const (
	ErrUnknownError ErrorCode = iota
	ErrMissingAppData
	ErrJSONPayloadError
	ErrFormPayloadError
	ErrURLPathError
	ErrQueryStringError
	ErrStructValidationError
	ErrInvalidJWTToken
	ErrGameEngineError
	ErrGameEngineCrash
	ErrWebsocketError
	ErrNotRegistered
	ErrFailedToRegister
	ErrFailedToUnregister
	ErrAlreadyConnected
	ErrCannotSendAction
)

// includeDeveloperNotes controls whether error frames carry the
// developerNotes field. Off outside debug builds.
var includeDeveloperNotes atomic.Bool

// IncludeDeveloperNotes toggles the developerNotes field on error frames.
func IncludeDeveloperNotes(on bool) {
	includeDeveloperNotes.Store(on)
}

// ErrorResponse is the JSON frame returned on any error.
type ErrorResponse struct {
	Type           string    `json:"type"`
	Description    string    `json:"description"`
	ErrorCode      ErrorCode `json:"errorCode"`
	DeveloperNotes string    `json:"developerNotes,omitempty"`
}

// NewError builds an error frame. The developer notes are dropped unless
// debug output is enabled.
func NewError(code ErrorCode, description, developerNotes string) ErrorResponse {
	resp := ErrorResponse{
		Type:        "error",
		Description: description,
		ErrorCode:   code,
	}
	if includeDeveloperNotes.Load() {
		resp.DeveloperNotes = developerNotes
	}
	return resp
}

func (e ErrorResponse) Error() string {
	if e.DeveloperNotes != "" {
		return e.Description + ": " + e.DeveloperNotes
	}
	return e.Description
}
