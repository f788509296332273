package httpdto

// ErrorResponse is the JSON error body for every failed request. Code and
// Count are set for validation failures so clients can show the right
// message per violated rule.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Count int    `json:"count,omitempty"`
}

func NewErrorResponse(err string) ErrorResponse {
	return ErrorResponse{Error: err}
}

func NewValidationErrorResponse(err, code string, count int) ErrorResponse {
	return ErrorResponse{Error: err, Code: code, Count: count}
}
