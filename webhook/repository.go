package webhook

import "context"

/* Small, focused interfaces
 * Stores implement the full Repository; consumers ask only for what they use
 */

// DefaultListLimit is applied when List is called with a non-positive limit
const DefaultListLimit = 50

// Reader provides read operations for events
type Reader interface {
	Get(ctx context.Context, id string) (Event, error)
	/* List returns at most limit events, newest first
	 * Two calls with no write in between return the same sequence
	 */
	List(ctx context.Context, limit int) ([]Event, error)
}

// Writer provides write operations for events
type Writer interface {
	/* Create persists a new event and reports the assigned ID
	 * The ID field of the given event is ignored
	 */
	Create(ctx context.Context, event Event) (Receipt, error)
	Update(ctx context.Context, id string, patch Patch) error
}

type Repository interface {
	Reader
	Writer
	Close(ctx context.Context) error
}

// NormalizeLimit maps a requested limit to the one a store should use
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
