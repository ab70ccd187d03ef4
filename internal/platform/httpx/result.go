package httpx

import "net/http"

// Failure is the structured body returned when a core operation is rejected.
type Failure struct {
	Success bool           `json:"success"`
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// Succeed writes a {"success": true, ...} body. Fields from payload are merged in.
func Succeed(w http.ResponseWriter, status int, payload map[string]any) {
	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = true
	JSON(w, status, body)
}

// Fail renders err as a structured failure with the given code.
func Fail(w http.ResponseWriter, err error, code string, details map[string]any) {
	status := StatusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	JSON(w, status, Failure{Success: false, Error: msg, Code: code, Details: details})
}
