package pending

import (
	"fmt"
	"strings"
	"time"
)

// Op is the kind of workspace change waiting to be pushed.
type Op string

const (
	OpCreate Op = "create"
	OpModify Op = "modify"
	OpDelete Op = "delete"
)

// ParseOp accepts the op names used in the queue file.
func ParseOp(s string) (Op, error) {
	switch Op(strings.ToLower(strings.TrimSpace(s))) {
	case OpCreate:
		return OpCreate, nil
	case OpModify:
		return OpModify, nil
	case OpDelete:
		return OpDelete, nil
	default:
		return "", fmt.Errorf("unknown change op: %q", s)
	}
}

// Change is one queued workspace change. Path is absolute.
type Change struct {
	Path     string    `json:"path"`
	Op       Op        `json:"op"`
	QueuedAt time.Time `json:"queued_at"`
	// Revision counts how many changes were merged into this one.
	Revision int `json:"revision,omitempty"`
}

// coalesce folds next into an already queued change for the same path.
// keep is false when the two cancel out. inFlight marks prev as currently
// being pushed, so a create may already exist in the CMS.
func coalesce(prev, next Change, inFlight bool) (merged Change, keep bool) {
	merged = next
	switch {
	case prev.Op == OpCreate && next.Op == OpDelete && inFlight:
		merged.Op = OpDelete
	case prev.Op == OpCreate && next.Op == OpDelete:
		// never reached the CMS
		return Change{}, false
	case prev.Op == OpCreate:
		merged.Op = OpCreate
	case prev.Op == OpDelete && next.Op != OpDelete:
		// deleted then recreated: the entity still exists remotely
		merged.Op = OpModify
	}
	merged.QueuedAt = prev.QueuedAt
	merged.Revision = prev.Revision + 1
	return merged, true
}
