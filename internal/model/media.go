package model

import (
	"time"
)

const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)

type Media struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	GroupID      *string   `db:"group_id" json:"group_id"`
	Type         string    `db:"type" json:"type"`
	Filename     string    `db:"filename" json:"filename"`
	OriginalName string    `db:"original_name" json:"original_name"`
	MimeType     string    `db:"mime_type" json:"mime_type"`
	Size         int64     `db:"size" json:"size"`
	StoragePath  string    `db:"storage_path" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`

	// Computed fields (not in database)
	URL string `db:"-" json:"url"`
}

func (m *Media) InGroup(groupID string) bool {
	return m.GroupID != nil && *m.GroupID == groupID
}
