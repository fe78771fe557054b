package chat_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/mailflow/internal/chat"
	"github.com/Veraticus/mailflow/internal/common"
	"github.com/Veraticus/mailflow/internal/inbox"
	"github.com/Veraticus/mailflow/internal/model"
	"github.com/Veraticus/mailflow/internal/service"
	"github.com/Veraticus/mailflow/internal/testutil"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		emailID string
		want    chat.Route
	}{
		{name: "explicit email beats keywords", query: "anything urgent?", emailID: "e1", want: chat.RouteEmail},
		{name: "urgent", query: "Anything URGENT today?", want: chat.RouteUrgent},
		{name: "important", query: "show important mail", want: chat.RouteUrgent},
		{name: "urgent beats tasks", query: "what are my urgent tasks?", want: chat.RouteUrgent},
		{name: "task", query: "list my tasks", want: chat.RouteTasks},
		{name: "to-do", query: "what is on my to-do list", want: chat.RouteTasks},
		{name: "action", query: "pending actions?", want: chat.RouteTasks},
		{name: "tasks beat meetings", query: "action items from the meeting", want: chat.RouteTasks},
		{name: "meeting", query: "When is the next meeting?", want: chat.RouteMeeting},
		{name: "general", query: "how is my inbox looking", want: chat.RouteGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chat.Classify(tt.query, tt.emailID))
		})
	}
}

// seedInbox stores three categorized emails, one with a pending action item.
func seedInbox(ctx context.Context, store service.Storage) error {
	if _, err := store.UpsertCategory(ctx, "budget", model.CategoryImportant, ""); err != nil {
		return err
	}
	if _, err := store.UpsertCategory(ctx, "standup", model.CategoryToDo, ""); err != nil {
		return err
	}
	if _, err := store.UpsertCategory(ctx, "digest", model.CategoryNewsletter, ""); err != nil {
		return err
	}
	if err := store.AddActionItem(ctx, &model.ActionItem{
		EmailID: "standup", Task: "Book the room", Deadline: "Monday", Priority: model.PriorityHigh,
	}); err != nil {
		return err
	}
	return store.AddActionItem(ctx, &model.ActionItem{
		EmailID: "standup", Task: "Share agenda", Priority: model.PriorityLow,
	})
}

func newRouterDB(t *testing.T) *testutil.TestDB {
	t.Helper()
	base := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	return testutil.SetupTestDBWithOptions(t, testutil.TestDBOptions{
		Emails: []model.Email{
			testutil.NewEmailBuilder().WithID("budget").WithSender("cfo@example.com", "Dana CFO").
				WithSubject("Budget approval needed").WithBody(strings.Repeat("x", 800)).
				WithTimestamp(base).Build(),
			testutil.NewEmailBuilder().WithID("standup").WithSender("lead@example.com", "").
				WithSubject("Weekly meeting prep").WithBody("Please book the room for the meeting.").
				WithTimestamp(base.Add(time.Hour)).Build(),
			testutil.NewEmailBuilder().WithID("digest").WithSender("news@example.com", "News").
				WithSubject("Digest").WithBody("Nothing to see.").
				WithTimestamp(base.Add(2 * time.Hour)).Build(),
		},
		CustomSetup: seedInbox,
	})
}

func newRouter(db *testutil.TestDB) *chat.Router {
	return chat.NewRouter(db.Storage, inbox.NewService(db.Storage))
}

func TestRouter_EmailContext(t *testing.T) {
	db := newRouterDB(t)
	router := newRouter(db)

	got, err := router.BuildContext(context.Background(), "is this urgent?", "budget")
	require.NoError(t, err)

	assert.Contains(t, got, "Email Details:\n")
	assert.Contains(t, got, "From: Dana CFO (cfo@example.com)\n")
	assert.Contains(t, got, "Subject: Budget approval needed\n")
	assert.Contains(t, got, "Body: "+strings.Repeat("x", 500)+"...\n")
	assert.NotContains(t, got, strings.Repeat("x", 501))
	assert.Contains(t, got, "Category: Important\n")
	assert.Contains(t, got, "Action Items: 0\n")
}

func TestRouter_EmailContextUnknown(t *testing.T) {
	router := newRouter(newRouterDB(t))

	_, err := router.BuildContext(context.Background(), "hello", "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRouter_KeywordContexts(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		contains    []string
		notContains []string
	}{
		{
			name:        "urgent uses important summary",
			query:       "what are my urgent tasks?",
			contains:    []string{"[Important] From: Dana CFO | Subject: Budget approval needed | Date: 2024-03-04 09:00"},
			notContains: []string{"Pending Action Items", "Weekly meeting prep"},
		},
		{
			name:  "tasks add pending action items",
			query: "list my tasks",
			contains: []string{
				"[To-Do] From: lead@example.com | Subject: Weekly meeting prep",
				"\n\nPending Action Items:\n",
				"- Book the room (Due: Monday) [Priority: high]\n",
				"- Share agenda [Priority: low]\n",
			},
			notContains: []string{"Budget approval needed"},
		},
		{
			name:        "meeting searches",
			query:       "any meeting invites?",
			contains:    []string{"Meeting-related emails:\n", "- Weekly meeting prep (From: lead@example.com)\n"},
			notContains: []string{"Digest"},
		},
		{
			name:  "general has statistics and recent emails",
			query: "how is my inbox?",
			contains: []string{
				"Inbox Statistics:\n",
				"- Total emails: 3\n",
				"- Processed: 0\n",
				"- Categories: Important: 1, Newsletter: 1, To-Do: 1\n",
				"- Pending action items: 2\n",
				"\nRecent emails:\n[Newsletter] From: News | Subject: Digest",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(newRouterDB(t))

			got, err := router.BuildContext(context.Background(), tt.query, "")
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, unwanted := range tt.notContains {
				assert.NotContains(t, got, unwanted)
			}
		})
	}
}

func TestRouter_TaskContextSkipsCompleted(t *testing.T) {
	db := newRouterDB(t)
	ctx := context.Background()

	items, err := db.Storage.GetActionItemsByEmail(ctx, "standup")
	require.NoError(t, err)
	for _, item := range items {
		require.NoError(t, db.Storage.SetActionItemCompleted(ctx, item.ID, true))
	}

	got, err := newRouter(db).BuildContext(ctx, "my tasks", "")
	require.NoError(t, err)
	assert.NotContains(t, got, "Pending Action Items")
}

func TestRouter_ContextIsBounded(t *testing.T) {
	emails := make([]model.Email, 0, 60)
	for _, email := range testutil.Inbox(60) {
		email.Subject = strings.Repeat("Long subject ", 10)
		emails = append(emails, email)
	}
	db := testutil.SetupTestDB(t, emails...)
	router := newRouter(db)
	ctx := context.Background()

	general, err := router.BuildContext(ctx, "overview please", "")
	require.NoError(t, err)
	_, recent, found := strings.Cut(general, "Recent emails:\n")
	require.True(t, found)
	assert.LessOrEqual(t, len([]rune(strings.TrimSuffix(recent, "\n"))), chat.RecentSummaryCap)

	for _, email := range emails {
		_, err := db.Storage.UpsertCategory(ctx, email.ID, model.CategoryImportant, "")
		require.NoError(t, err)
	}
	urgent, err := router.BuildContext(ctx, "urgent?", "")
	require.NoError(t, err)
	assert.Len(t, []rune(urgent), chat.MaxContextLength)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{name: "short", in: "abc", n: 5, want: "abc"},
		{name: "exact", in: "abc", n: 3, want: "abc"},
		{name: "cut", in: "abcdef", n: 4, want: "abcd"},
		{name: "multibyte", in: "héllo wörld", n: 7, want: "héllo w"},
		{name: "zero", in: "abc", n: 0, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chat.Truncate(tt.in, tt.n))
		})
	}
}
