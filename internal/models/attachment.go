package models

import "time"

// Attachment is a file uploaded against a container.
type Attachment struct {
	ID          string     `db:"id" json:"id"`
	ContainerID string     `db:"container_id" json:"container_id"`
	FileName    string     `db:"file_name" json:"file_name"`
	FilePath    string     `db:"file_path" json:"-"`
	MimeType    string     `db:"mime_type" json:"mime_type"`
	SizeBytes   int64      `db:"size_bytes" json:"size_bytes"`
	UploadedBy  string     `db:"uploaded_by" json:"uploaded_by"`
	UploadedAt  time.Time  `db:"uploaded_at" json:"uploaded_at"`
	DownloadURL string     `db:"-" json:"download_url,omitempty"`
	ExpiresAt   *time.Time `db:"-" json:"expires_at,omitempty"`
}
