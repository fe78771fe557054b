package inbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset" // register non-UTF-8 charsets
	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"

	"github.com/Veraticus/mailflow/internal/model"
)

// ParseEML reads an RFC 5322 message. The ID is the Message-Id without angle
// brackets, or a UUID derived from the raw message when the header is absent.
// The body is the first text/plain part.
func ParseEML(r io.Reader) (*model.Email, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	defer func() { _ = mr.Close() }()

	email := &model.Email{Labels: []string{"inbox"}}

	header := mr.Header
	if from, err := header.AddressList("From"); err == nil && len(from) > 0 {
		email.Sender = from[0].Address
		email.SenderName = from[0].Name
	}
	if email.Sender == "" {
		return nil, errors.New("message has no From address")
	}

	email.Subject, _ = header.Subject()

	email.Timestamp, err = header.Date()
	if err != nil || email.Timestamp.IsZero() {
		email.Timestamp = time.Now()
	}
	email.Timestamp = email.Timestamp.UTC()

	if id, err := header.MessageID(); err == nil && id != "" {
		email.ID = id
	} else {
		email.ID = uuid.NewSHA1(uuid.NameSpaceOID, raw).String()
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if message.IsUnknownCharset(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read message part: %w", err)
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			if email.Body != "" || (contentType != "" && contentType != "text/plain") {
				continue
			}
			body, err := io.ReadAll(part.Body)
			if err != nil {
				return nil, fmt.Errorf("failed to read message body: %w", err)
			}
			email.Body = strings.TrimSpace(string(body))
		case *mail.AttachmentHeader:
			email.HasAttachments = true
		}
	}

	return email, nil
}

// ImportFile parses an .eml file and saves it, replacing any earlier import
// of the same message.
func (s *Service) ImportFile(ctx context.Context, path string) (*model.Email, error) {
	f, err := os.Open(path) //nolint:gosec // user supplied message path
	if err != nil {
		return nil, fmt.Errorf("failed to open message: %w", err)
	}
	defer func() { _ = f.Close() }()

	return s.ImportEML(ctx, f)
}

// ImportEML parses a message and saves it.
func (s *Service) ImportEML(ctx context.Context, r io.Reader) (*model.Email, error) {
	email, err := ParseEML(r)
	if err != nil {
		return nil, err
	}
	if err := s.storage.SaveEmail(ctx, email); err != nil {
		return nil, err
	}
	slog.Debug("Imported message", "id", email.ID, "subject", email.Subject)
	return email, nil
}
