package models

import (
	"strconv"
	"time"
)

// Snapshot is one completed backup of a Database.
type Snapshot struct {
	ID         string `json:"_id"`
	DatabaseID string `json:"db_id"`
	Timestamp  int64  `json:"timestamp"`
	Manual     bool   `json:"manual"`
}

// Time returns the snapshot timestamp in UTC.
func (s Snapshot) Time() time.Time {
	return time.UnixMilli(s.Timestamp).UTC()
}

// DirName is the on-disk directory name of the snapshot.
func (s Snapshot) DirName() string {
	return strconv.FormatInt(s.Timestamp, 10)
}
