package classify

import "github.com/marcelsud/webhook-analyzer/webhook"

const (
	AnalyzerRemote = "remote"
	AnalyzerRules  = "rules"
)

// Status tells the caller whether a remote analysis can be used
type Status int

const (
	Success Status = iota + 1
	Timeout
	ConnectionError
	RemoteError
	MalformedResponse
	Disabled
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Timeout:
		return "timeout"
	case ConnectionError:
		return "connection_error"
	case RemoteError:
		return "remote_error"
	case MalformedResponse:
		return "malformed_response"
	case Disabled:
		return "disabled"
	default:
		return "unknown"
	}
}

/* Outcome is the result of a remote classification attempt
 * Anything but Success means the caller has to fall back
 */
type Outcome struct {
	Status   Status
	Analysis webhook.Analysis
	Err      error
}
