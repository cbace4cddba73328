package dto

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// HealthResponse is the liveness check body.
type HealthResponse struct {
	Status string `json:"status"`
}
