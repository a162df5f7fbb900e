package handler

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/Filip-Szettel/MediaFlow-sub000/internal/store"
)

// DecodeJobCursor parses an opaque pagination cursor. An empty string means
// the first page.
func DecodeJobCursor(cursorStr string) (*store.JobCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(string(decoded), "|")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid cursor format")
	}

	var queuedAt int64
	if _, err := fmt.Sscanf(parts[0], "%d", &queuedAt); err != nil {
		return nil, fmt.Errorf("invalid timestamp in cursor: %w", err)
	}

	return &store.JobCursor{
		QueuedAt: time.Unix(0, queuedAt),
		JobID:    parts[1],
	}, nil
}

// EncodeJobCursor produces the opaque cursor for the row just past the end of
// the current page.
func EncodeJobCursor(cursor *store.JobCursor) string {
	cs := fmt.Sprintf("%d|%s", cursor.QueuedAt.UnixNano(), cursor.JobID)
	return base64.StdEncoding.EncodeToString([]byte(cs))
}
