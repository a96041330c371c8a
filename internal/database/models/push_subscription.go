package models

import (
	"time"
)

// PushSubscription stores a browser push endpoint registered by a user.
// Delivery is fire-and-forget; a subscription that keeps failing is left in
// place for the client to re-register or remove.
type PushSubscription struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Endpoint  string    `gorm:"size:500;not null" json:"endpoint"`
	Auth      string    `gorm:"size:255" json:"-"`
	P256dh    string    `gorm:"size:255" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
