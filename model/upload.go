package model

import (
	"time"
)

// UploadItem tracks one file's journey through the upload pipeline
type UploadItem struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Data        []byte    `json:"-"`
	Status      string    `json:"status"` // pending, uploading, success, error
	ReceiptID   string    `json:"receipt_id,omitempty"`
	ErrorMsg    string    `json:"error_msg,omitempty"`
	AddedAt     time.Time `json:"added_at"`
}

// UploadItem status constants
const (
	StatusPending   = "pending"
	StatusUploading = "uploading"
	StatusSuccess   = "success"
	StatusError     = "error"
)

// Eligible reports whether the item can be picked up by a submission pass.
// Only pending items and failed items awaiting retry qualify; success is
// terminal and un-retryable.
func (i *UploadItem) Eligible() bool {
	return i.Status == StatusPending || i.Status == StatusError
}

// CanRemove reports whether the item may be removed from the session.
// Items mid-upload or already uploaded stay until cleanup.
func (i *UploadItem) CanRemove() bool {
	return i.Status == StatusPending || i.Status == StatusError
}

// Terminal reports whether the item reached a final status.
func (i *UploadItem) Terminal() bool {
	return i.Status == StatusSuccess || i.Status == StatusError
}

// AcceptedContentTypes lists the media types the console accepts before a
// file ever reaches the queue. Anything else is rejected at the door.
var AcceptedContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
}
