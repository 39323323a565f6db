package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// NodeError is a generic RPC failure carrying the node's raw JSON error
// body, so callers that need to inspect it for specific fields (offending
// operation hashes, required endorsement counts) can do so without this
// package having to model every error shape the node can return.
type NodeError struct {
	StatusCode int
	Body       []byte
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("rpc: node returned status %d: %s", e.StatusCode, string(e.Body))
}

// InjectionOffense is one entry of a block-injection rejection, naming an
// operation the node refused to include.
type InjectionOffense struct {
	Operation string `json:"operation"`
}

// ParseInjectionOffenses extracts the offending operation hashes from a
// block-injection error body. The node's error payload is a loosely-typed
// JSON array; this parses only the "operation" field of each entry and
// ignores everything else, following the node's own loosely-typed-JSON shape.
// Returns a nil slice (not an error) if the body doesn't look like an
// offense list — that's a normal outcome for unrelated failures.
func ParseInjectionOffenses(body []byte) []string {
	var offenses []InjectionOffense
	if err := json.Unmarshal(body, &offenses); err != nil {
		return nil
	}

	out := make([]string, 0, len(offenses))

	for _, o := range offenses {
		if o.Operation != "" {
			out = append(out, o.Operation)
		}
	}

	return out
}

// requiredEndorsementsError is the shape of a "not enough endorsements for
// priority" preapply/block failure.
type requiredEndorsementsError struct {
	Required int `json:"required_endorsements"`
}

// ParseRequiredEndorsements extracts required_endorsements from a
// preapply/block failure body, if present.
func ParseRequiredEndorsements(body []byte) (int, bool) {
	var e requiredEndorsementsError
	if err := json.Unmarshal(body, &e); err != nil || e.Required == 0 {
		return 0, false
	}

	return e.Required, true
}

// IsNodeError reports whether err (or a cause in its chain) is a *NodeError,
// and returns it.
func IsNodeError(err error) (*NodeError, bool) {
	var ne *NodeError
	if errors.As(err, &ne) {
		return ne, true
	}

	return nil, false
}
