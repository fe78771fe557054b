package inbox_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/mailflow/internal/inbox"
	"github.com/Veraticus/mailflow/internal/testutil"
)

const plainMessage = "From: Carol Jones <carol@example.com>\r\n" +
	"To: me@example.com\r\n" +
	"Subject: Lunch on Friday?\r\n" +
	"Date: Fri, 01 Mar 2024 12:15:00 +0100\r\n" +
	"Message-Id: <lunch-123@example.com>\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Are you free for lunch on Friday?\r\n"

const multipartMessage = "From: dave@example.com\r\n" +
	"Subject: Report attached\r\n" +
	"Date: Sat, 02 Mar 2024 10:00:00 +0000\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=BOUNDARY\r\n" +
	"\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: text/html\r\n" +
	"\r\n" +
	"<p>See attached.</p>\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"See attached.\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=report.pdf\r\n" +
	"\r\n" +
	"%PDF-1.4\r\n" +
	"--BOUNDARY--\r\n"

func TestParseEML(t *testing.T) {
	email, err := inbox.ParseEML(strings.NewReader(plainMessage))
	require.NoError(t, err)

	assert.Equal(t, "lunch-123@example.com", email.ID)
	assert.Equal(t, "carol@example.com", email.Sender)
	assert.Equal(t, "Carol Jones", email.SenderName)
	assert.Equal(t, "Lunch on Friday?", email.Subject)
	assert.Equal(t, "Are you free for lunch on Friday?", email.Body)
	assert.Equal(t, time.Date(2024, 3, 1, 11, 15, 0, 0, time.UTC), email.Timestamp)
	assert.False(t, email.HasAttachments)
}

func TestParseEMLMultipart(t *testing.T) {
	email, err := inbox.ParseEML(strings.NewReader(multipartMessage))
	require.NoError(t, err)

	assert.Equal(t, "See attached.", email.Body)
	assert.True(t, email.HasAttachments)
	assert.NotEmpty(t, email.ID)

	// Messages without a Message-Id get a stable derived ID.
	again, err := inbox.ParseEML(strings.NewReader(multipartMessage))
	require.NoError(t, err)
	assert.Equal(t, email.ID, again.ID)
}

func TestParseEMLNoSender(t *testing.T) {
	_, err := inbox.ParseEML(strings.NewReader("Subject: orphan\r\n\r\nbody\r\n"))
	assert.Error(t, err)
}

func TestService_ImportEML(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := inbox.NewService(db.Storage)
	ctx := context.Background()

	email, err := svc.ImportEML(ctx, strings.NewReader(plainMessage))
	require.NoError(t, err)

	stored := db.MustGetEmail(email.ID)
	assert.Equal(t, "Lunch on Friday?", stored.Subject)
	assert.False(t, stored.Processed)

	// Importing again refreshes the same record.
	_, err = svc.ImportEML(ctx, strings.NewReader(plainMessage))
	require.NoError(t, err)
	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalEmails)
}
