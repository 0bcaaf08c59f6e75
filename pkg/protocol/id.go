package protocol

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewRequestID returns an id that is unique among the outstanding requests
// of one client without any coordination: a base-36 millisecond timestamp
// followed by a random suffix.
func NewRequestID() string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return ts + "-" + suffix
}
