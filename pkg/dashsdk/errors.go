package dashsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("dashsdk: request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("dashsdk: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil {
		apiErr.Code = er.Error
		apiErr.Message = er.Message
	} else {
		apiErr.Message = string(body)
	}
	return apiErr
}
