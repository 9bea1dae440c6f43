// Package pagecursor encodes the (modifiedAt, key) position used for
// keyset pagination over the rule store. Cursors are opaque to
// callers; offset paging would skip or duplicate items under
// concurrent mutation, keyset paging does not.
package pagecursor

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

var ErrInvalidCursor = errors.New("pagecursor: invalid cursor")

type Cursor struct {
	ModifiedAt time.Time
	Key        string
}

func Encode(c Cursor) string {
	raw := c.ModifiedAt.UTC().Format(time.RFC3339Nano) + "|" + c.Key
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func Decode(token string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	ts, key, ok := strings.Cut(string(raw), "|")
	if !ok || key == "" {
		return Cursor{}, ErrInvalidCursor
	}
	at, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	return Cursor{ModifiedAt: at, Key: key}, nil
}
