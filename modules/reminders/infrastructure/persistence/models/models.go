package models

import (
	"database/sql"
	"time"
)

type Reminder struct {
	ID          string
	ClientID    string
	Kind        string
	Channel     string
	Subject     string
	Body        string
	DueAt       time.Time
	Status      string
	Attempts    int
	LastError   sql.NullString
	AvailableAt time.Time
	LockedAt    *time.Time
	SentAt      *time.Time
	CreatedAt   time.Time
}
