package testutil

import (
	"fmt"
	"time"

	"github.com/Veraticus/mailflow/internal/model"
)

// EmailBuilder provides a fluent interface for constructing test emails.
type EmailBuilder struct {
	email model.Email
}

// NewEmailBuilder starts from a plain, valid email.
func NewEmailBuilder() *EmailBuilder {
	return &EmailBuilder{email: model.Email{
		ID:         "email-001",
		Sender:     "alice@example.com",
		SenderName: "Alice Smith",
		Subject:    "Project update",
		Body:       "Hi, here is the latest status of the project.",
		Timestamp:  time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		Labels:     []string{"inbox"},
	}}
}

// WithID sets the email ID.
func (b *EmailBuilder) WithID(id string) *EmailBuilder {
	b.email.ID = id
	return b
}

// WithSender sets the sender address and display name.
func (b *EmailBuilder) WithSender(address, name string) *EmailBuilder {
	b.email.Sender = address
	b.email.SenderName = name
	return b
}

// WithSubject sets the subject line.
func (b *EmailBuilder) WithSubject(subject string) *EmailBuilder {
	b.email.Subject = subject
	return b
}

// WithBody sets the body text.
func (b *EmailBuilder) WithBody(body string) *EmailBuilder {
	b.email.Body = body
	return b
}

// WithTimestamp sets the received time.
func (b *EmailBuilder) WithTimestamp(ts time.Time) *EmailBuilder {
	b.email.Timestamp = ts
	return b
}

// Processed marks the email as already processed.
func (b *EmailBuilder) Processed() *EmailBuilder {
	b.email.Processed = true
	return b
}

// Build returns the email.
func (b *EmailBuilder) Build() model.Email {
	email := b.email
	email.Labels = append([]string(nil), b.email.Labels...)
	return email
}

// Inbox returns count distinct emails one hour apart, oldest first.
func Inbox(count int) []model.Email {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	emails := make([]model.Email, count)
	for i := range emails {
		emails[i] = NewEmailBuilder().
			WithID(fmt.Sprintf("email-%03d", i+1)).
			WithSender(fmt.Sprintf("sender%d@example.com", i+1), fmt.Sprintf("Sender %d", i+1)).
			WithSubject(fmt.Sprintf("Subject %d", i+1)).
			WithBody(fmt.Sprintf("Body of message %d", i+1)).
			WithTimestamp(base.Add(time.Duration(i) * time.Hour)).
			Build()
	}
	return emails
}
