package dto

// APIResponse is the envelope for every ledger endpoint.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Ok wraps data in a success envelope.
func Ok(data any) APIResponse {
	return APIResponse{Success: true, Data: data}
}

// Fail builds a failure envelope with a stable error code.
func Fail(code, message string) APIResponse {
	return APIResponse{Success: false, Code: code, Message: message}
}
