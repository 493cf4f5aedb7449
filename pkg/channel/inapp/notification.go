package inapp

import "time"

// Notification is one inbox entry.
type Notification struct {
	ID        string            `json:"id"`
	AppID     string            `json:"app_id"`
	UserID    string            `json:"user_id"`
	Topic     string            `json:"topic,omitempty"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Count     int               `json:"count"`
	Data      map[string]string `json:"data,omitempty"`
	Read      bool              `json:"read"`
	ReadAt    *time.Time        `json:"read_at,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// ListOptions filters and paginates inbox listings.
type ListOptions struct {
	Limit      int // 0 means no limit
	Offset     int
	OnlyUnread bool
	Topic      string
	Since      *time.Time
}

func (o ListOptions) match(n Notification) bool {
	if o.OnlyUnread && n.Read {
		return false
	}
	if o.Topic != "" && n.Topic != o.Topic {
		return false
	}
	if o.Since != nil && n.CreatedAt.Before(*o.Since) {
		return false
	}
	return true
}
