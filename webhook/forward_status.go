package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
)

/* ForwardStatus records the outcome of the latest forward attempt
 * Pending until a decision is made, then one of the terminal outcomes
 */
type ForwardStatus int

const (
	ForwardUnknown ForwardStatus = iota
	ForwardPending
	ForwardSuccess
	ForwardFailed
	ForwardTimeout
	ForwardConnectionError
	ForwardSkipped
	ForwardDisabled
	ForwardError
)

// String returns the string representation of the forward status
func (s ForwardStatus) String() string {
	switch s {
	case ForwardPending:
		return "pending"
	case ForwardSuccess:
		return "success"
	case ForwardFailed:
		return "failed"
	case ForwardTimeout:
		return "timeout"
	case ForwardConnectionError:
		return "connection_error"
	case ForwardSkipped:
		return "skipped"
	case ForwardDisabled:
		return "disabled"
	case ForwardError:
		return "error"
	default:
		return "unknown"
	}
}

// NewForwardStatus creates a ForwardStatus from a string
func NewForwardStatus(str string) ForwardStatus {
	switch str {
	case "pending":
		return ForwardPending
	case "success":
		return ForwardSuccess
	case "failed":
		return ForwardFailed
	case "timeout":
		return ForwardTimeout
	case "connection_error":
		return ForwardConnectionError
	case "skipped":
		return ForwardSkipped
	case "disabled":
		return ForwardDisabled
	case "error":
		return ForwardError
	default:
		return ForwardUnknown
	}
}

// Validate checks if the forward status is valid
func (s ForwardStatus) Validate() error {
	if s < ForwardUnknown || s > ForwardError {
		return fmt.Errorf("invalid forward status: %d", s)
	}
	return nil
}

// Attempted returns true if the status is the result of a network attempt
func (s ForwardStatus) Attempted() bool {
	switch s {
	case ForwardSuccess, ForwardFailed, ForwardTimeout, ForwardConnectionError, ForwardError:
		return true
	}
	return false
}

func (s ForwardStatus) MarshalJSON() ([]byte, error) {
	buffer := bytes.NewBufferString(`"`)
	buffer.WriteString(s.String())
	buffer.WriteString(`"`)
	return buffer.Bytes(), nil
}

func (s *ForwardStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("decoding forward status: %w", err)
	}
	*s = NewForwardStatus(str)
	return nil
}
