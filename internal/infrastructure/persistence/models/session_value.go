// Package models holds the GORM models of the console's own tables.
package models

import "time"

// SessionValue is one key of one console session. SessionKey is the hashed
// session id; the raw cookie value is never stored.
type SessionValue struct {
	SessionKey string     `gorm:"primaryKey;size:64"`
	Key        string     `gorm:"primaryKey;size:32"`
	Value      string     `gorm:"type:text;not null"`
	UpdatedAt  time.Time  `gorm:"not null"`
	ExpiresAt  *time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (SessionValue) TableName() string {
	return "console_session_values"
}
