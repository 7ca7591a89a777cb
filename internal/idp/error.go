package idp

import "encoding/json"

// Error carries the IdP's structured error body. The description is kept for
// diagnostics only; it must never be treated as a trust signal by callers.
type Error struct {
	Status      int
	Code        string
	Description string
}

func (e *Error) Error() string {
	if e.Description != "" {
		return "idp: " + e.Code + ": " + e.Description
	}
	if e.Code != "" {
		return "idp: " + e.Code
	}
	return "idp: token endpoint returned an error"
}

// parseError extracts the IdP's error/error_description fields when the body
// is structured, falling back to a generic error otherwise.
func parseError(status int, raw []byte) *Error {
	var body struct {
		ErrorCode   string `json:"error"`
		Description string `json:"error_description"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.ErrorCode == "" {
		return &Error{Status: status, Code: "unknown_error"}
	}
	return &Error{Status: status, Code: body.ErrorCode, Description: body.Description}
}
