// Package model defines the core domain models used throughout the application.
package model

import "time"

// Email is the unit of work processed by the pipeline.
type Email struct {
	Timestamp      time.Time
	CreatedAt      time.Time
	ID             string
	Sender         string // Address of the originator
	SenderName     string // Display name, may be empty
	Subject        string
	Body           string
	Labels         []string
	HasAttachments bool
	Processed      bool
}

// DisplaySender returns the display name when present, otherwise the address.
func (e *Email) DisplaySender() string {
	if e.SenderName != "" {
		return e.SenderName
	}
	return e.Sender
}
