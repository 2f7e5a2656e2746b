package rollout

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/browseragent/agentcore"
)

// SerializeCursor encodes c as "<unix-ms>|<uuid>" (§6). Callers must treat
// the result as opaque.
func SerializeCursor(c agentcore.Cursor) string {
	return strconv.FormatInt(c.Timestamp.UnixMilli(), 10) + "|" + c.ID.String()
}

// DeserializeCursor parses a cursor string produced by SerializeCursor,
// returning ok=false for any malformed input (P3) rather than an error —
// callers treat a bad cursor as "start from newest" per §4.1.
func DeserializeCursor(s string) (agentcore.Cursor, bool) {
	parts := strings.SplitN(s, "|", 2)
	if len(parts) != 2 {
		return agentcore.Cursor{}, false
	}
	ms, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return agentcore.Cursor{}, false
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return agentcore.Cursor{}, false
	}
	return agentcore.Cursor{Timestamp: time.UnixMilli(ms), ID: id}, true
}
