package types

import "time"

// Attachment is a file uploaded against a page. The bytes live in
// object storage under ObjectKey; only metadata is kept in the
// database.
type Attachment struct {
	ID          int       `json:"id" db:"id"`
	PageID      int       `json:"page_id" db:"page_id"`
	Filename    string    `json:"filename" db:"filename"`
	ObjectKey   string    `json:"-" db:"object_key"`
	ContentType string    `json:"content_type" db:"content_type"`
	Size        int64     `json:"size" db:"size"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
