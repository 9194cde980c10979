package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

/* Importance is the classification outcome that drives forwarding
 * Ordered so that a threshold can be compared with >=
 */
type Importance int

const (
	UnknownImportance Importance = iota
	Low
	Medium
	High
)

// String returns the string representation of the importance
func (i Importance) String() string {
	switch i {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

// NewImportance creates an Importance from a string, ignoring case
func NewImportance(s string) Importance {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return Low
	case "medium":
		return Medium
	case "high":
		return High
	default:
		return UnknownImportance
	}
}

// Validate checks that the importance is one a classifier may produce
func (i Importance) Validate() error {
	if i < Low || i > High {
		return fmt.Errorf("invalid importance: %d", i)
	}
	return nil
}

// AtLeast reports whether i meets the given threshold
func (i Importance) AtLeast(threshold Importance) bool {
	return i != UnknownImportance && i >= threshold
}

func (i Importance) MarshalJSON() ([]byte, error) {
	buffer := bytes.NewBufferString(`"`)
	buffer.WriteString(i.String())
	buffer.WriteString(`"`)
	return buffer.Bytes(), nil
}

func (i *Importance) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding importance: %w", err)
	}
	*i = NewImportance(s)
	return nil
}
