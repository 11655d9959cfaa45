package notification

import "time"

// DescriptionMaxLength is the maximum number of characters of a Notification description.
const DescriptionMaxLength = 100

type Notification struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	TaskID      *string   `json:"task_id"`
	Link        string    `json:"link"`
	Description string    `json:"description"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

type QueryFilter struct {
	Read *bool `query:"read"`
}
