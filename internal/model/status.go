package model

import "time"

// SchedulerStatus is the cursor file shared between scheduler runs. Dates in
// LastNotificationSent are "2006-01-02" strings, one per notification kind.
type SchedulerStatus struct {
	LastNotificationSent map[NotificationKind]string `json:"last_notification_sent"`
	LastScrapeTime       *time.Time                  `json:"last_scrape_time,omitempty"`
}
