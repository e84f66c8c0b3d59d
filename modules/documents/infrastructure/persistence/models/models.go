package models

import (
	"database/sql"
	"time"
)

type Document struct {
	ID          string
	ClientID    string
	Filename    string
	Category    sql.NullString
	ContentType string
	Size        int64
	Checksum    string
	Bucket      string
	Path        string
	UploadedAt  time.Time
}
