package prowlarr

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/declarr/declarr/faults"
)

func validationError(message string, cause error) error {
	return faults.NewTypedError(faults.ValidationError, message, cause)
}

func transportError(message string, cause error) error {
	return faults.NewTypedError(faults.RemoteUnavailable, message, cause)
}

func remoteRejected(message string, cause error) error {
	return faults.NewTypedError(faults.RemoteRejected, message, cause)
}

func internalError(message string, cause error) error {
	return faults.NewTypedError(faults.InternalError, message, cause)
}

// classifyStatusError maps an HTTP error status to the fault taxonomy.
// Validation failures carry the remote's own message verbatim so the user
// sees exactly what the instance rejected.
func classifyStatusError(status int, body []byte) error {
	message := remoteMessage(body)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return faults.NewTypedError(faults.AuthError, "remote rejected the api key", nil)
	case status == http.StatusNotFound:
		return faults.NewTypedError(faults.NotFoundError, "remote resource not found", nil)
	case status >= http.StatusInternalServerError:
		return faults.NewTypedError(faults.RemoteUnavailable, fmt.Sprintf("remote returned status %d", status), nil)
	default:
		if message == "" {
			message = fmt.Sprintf("remote returned status %d", status)
		}
		return faults.NewTypedError(faults.RemoteRejected, message, nil)
	}
}

// remoteMessage extracts the human-readable message from a Prowlarr error
// body: either a validation failure array or an object with a message key.
func remoteMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var failures []struct {
		PropertyName string `json:"propertyName"`
		ErrorMessage string `json:"errorMessage"`
	}
	if err := json.Unmarshal(body, &failures); err == nil && len(failures) > 0 {
		parts := make([]string, 0, len(failures))
		for _, failure := range failures {
			if failure.ErrorMessage == "" {
				continue
			}
			if failure.PropertyName != "" {
				parts = append(parts, failure.PropertyName+": "+failure.ErrorMessage)
				continue
			}
			parts = append(parts, failure.ErrorMessage)
		}
		if len(parts) > 0 {
			return strings.Join(parts, "; ")
		}
	}

	var object struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &object); err == nil && object.Message != "" {
		return object.Message
	}
	return ""
}
