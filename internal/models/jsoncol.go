package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

func scanJSON(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dest)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}
}

// BoolMap is a jsonb object keyed by user id with boolean values, used for
// per-participant unread flags and per-message read receipts.
type BoolMap map[uint]bool

func (m BoolMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *BoolMap) Scan(value interface{}) error {
	return scanJSON(value, m)
}

// CountMap is the legacy per-participant unread counter object. Read-only:
// new rows never carry it.
type CountMap map[uint]int64

func (m CountMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *CountMap) Scan(value interface{}) error {
	return scanJSON(value, m)
}

// IDList is a jsonb array of user ids; only legacy message rows use it.
type IDList []uint

func (l IDList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *IDList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

// Attachment is one stored file on a message.
type Attachment struct {
	Name         string `json:"name"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Type         string `json:"type,omitempty"`
	Size         int64  `json:"size,omitempty"`
}

type AttachmentList []Attachment

func (l AttachmentList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *AttachmentList) Scan(value interface{}) error {
	return scanJSON(value, l)
}
