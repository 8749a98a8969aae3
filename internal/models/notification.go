package models

import (
	"time"
)

// NotificationFormat is the display tier of a notification.
type NotificationFormat string

const (
	FormatFlash NotificationFormat = "flash" // single line
	FormatCard  NotificationFormat = "card"  // up to 3 lines
	FormatAlert NotificationFormat = "alert" // strong signal
)

// Notification is a user-facing message built from one cycle's admitted
// events. RelatedEvents lists the ids of the events it was built from,
// all from the same cycle.
type Notification struct {
	ID            string             `json:"notification_id"`
	Timestamp     time.Time          `json:"timestamp"`
	Format        NotificationFormat `json:"format"`
	Title         string             `json:"title"`
	Lines         []string           `json:"lines"`
	RelatedEvents []string           `json:"related_events"`
}
