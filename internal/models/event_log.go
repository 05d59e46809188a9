package models

import (
	"time"
)

type EventSeverity string

const (
	SeverityInfo    EventSeverity = "info"
	SeverityWarning EventSeverity = "warning"
	SeverityError   EventSeverity = "error"
)

// EventLogEntry records a business-level outcome of webhook or capture
// processing. Code is a stable, enumerable identifier; Detail carries
// free-form context so the condition can be replayed manually.
type EventLogEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	EntryID  string        `gorm:"type:varchar(50);uniqueIndex" json:"entry_id"`
	Severity EventSeverity `gorm:"type:varchar(20);index" json:"severity"`
	Source   string        `gorm:"type:varchar(100);index" json:"source"`
	Code     string        `gorm:"type:varchar(100);index" json:"code"`
	Detail   string        `gorm:"type:text" json:"detail"`
}
