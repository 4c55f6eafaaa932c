package cache

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Meta is the small sidecar record accompanying each file-tier artifact.
// It is read to decide staleness without deserializing the table.
type Meta struct {
	CachedAt int64  `json:"cached_at"`
	Provider string `json:"provider"`
	Rows     int    `json:"rows"`
}

func (m Meta) Marshal() []byte {
	out, _ := json.Marshal(m)
	return out
}

// ParseMeta accepts the JSON record and, for backward compatibility, the
// legacy payload that was just the cached-at epoch as plain text.
func ParseMeta(payload []byte) (Meta, error) {
	payload = bytes.TrimSpace(payload)
	var m Meta
	if err := json.Unmarshal(payload, &m); err == nil {
		return m, nil
	}
	epoch, err := strconv.ParseInt(string(payload), 10, 64)
	if err != nil {
		return Meta{}, err
	}
	return Meta{CachedAt: epoch}, nil
}
