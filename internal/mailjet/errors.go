package mailjet

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrConfiguration is returned when the client cannot be created because
// the API key or secret is missing.
var ErrConfiguration = errors.New("mailjet: configuration error")

// TransportError reports a request that never produced an HTTP response.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("mailjet: request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RejectionError reports a send API response outside the 2xx range.
type RejectionError struct {
	StatusCode int
	Message    string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("mailjet: API error (HTTP %d): %s", e.StatusCode, e.Message)
}

type errorResponse struct {
	ErrorMessage string `json:"ErrorMessage"`
	Messages     []struct {
		Errors []struct {
			ErrorMessage string `json:"ErrorMessage"`
		} `json:"Errors"`
	} `json:"Messages"`
}

// errorMessage pulls the provider message out of an error body. v3 puts it at
// the top level; v3.1 nests it under each message result.
func errorMessage(body []byte) string {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err == nil {
		if resp.ErrorMessage != "" {
			return resp.ErrorMessage
		}
		for _, m := range resp.Messages {
			for _, e := range m.Errors {
				if e.ErrorMessage != "" {
					return e.ErrorMessage
				}
			}
		}
	}
	return strings.TrimSpace(string(body))
}
