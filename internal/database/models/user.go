package models

import (
	"time"
)

// User represents a user in the system
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Nickname     string    `gorm:"size:100" json:"nickname"`
	InboxAlias   string    `gorm:"uniqueIndex;size:64;not null" json:"inbox_alias"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relations
	Tasks         []Task             `gorm:"foreignKey:UserID" json:"tasks,omitempty"`
	Categories    []Category         `gorm:"foreignKey:UserID" json:"categories,omitempty"`
	Subscriptions []PushSubscription `gorm:"foreignKey:UserID" json:"subscriptions,omitempty"`
}

// InboxAddress returns the full forwarding address for the user's inbox alias.
// Inbound mail matches the alias case-sensitively first; the user service
// performs a case-insensitive fallback lookup when the exact match misses.
func (u *User) InboxAddress(domain string) string {
	if u.InboxAlias == "" || domain == "" {
		return ""
	}
	return u.InboxAlias + "@" + domain
}
