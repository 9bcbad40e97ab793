package response

// Response is the JSON envelope all API handlers return.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Err     string `json:"error,omitempty"`
}

// OK wraps a successful payload.
func OK(data any) Response {
	return Response{Success: true, Data: data}
}

// Error wraps a failure message.
func Error(msg string) Response {
	return Response{Success: false, Err: msg}
}
