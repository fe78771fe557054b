package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/mailflow/internal/common"
	"github.com/Veraticus/mailflow/internal/model"
)

func TestSQLiteStorage_UpsertCategoryReplaces(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	email := createTestEmails(1)[0]
	seedEmails(t, store, []model.Email{email})

	first, err := store.UpsertCategory(ctx, email.ID, model.CategoryNewsletter, "low")
	require.NoError(t, err)
	second, err := store.UpsertCategory(ctx, email.ID, model.CategoryImportant, "")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "one category row per email")
	assert.Equal(t, model.CategoryImportant, second.Category)
	assert.Empty(t, second.Confidence)

	var rows int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM categories WHERE email_id = ?`, email.ID).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestSQLiteStorage_UpsertCategoryErrors(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	_, err := store.UpsertCategory(ctx, "missing", model.CategorySpam, "")
	require.ErrorIs(t, err, common.ErrNotFound)

	_, err = store.UpsertCategory(ctx, "missing", model.Category("Urgent"), "")
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = store.GetCategory(ctx, "missing")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteStorage_ActionItemsAppend(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	email := createTestEmails(1)[0]
	seedEmails(t, store, []model.Email{email})

	for range 2 {
		require.NoError(t, store.AddActionItem(ctx, &model.ActionItem{
			EmailID:  email.ID,
			Task:     "Send the report",
			Deadline: "Friday",
			Priority: model.PriorityHigh,
		}))
	}

	items, err := store.GetActionItemsByEmail(ctx, email.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Friday", items[0].Deadline)
	assert.NotEqual(t, items[0].ID, items[1].ID)

	require.NoError(t, store.SetActionItemCompleted(ctx, items[0].ID, true))

	pending := false
	open, err := store.GetActionItems(ctx, &pending)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, items[1].ID, open[0].ID)

	all, err := store.GetActionItems(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	err = store.SetActionItemCompleted(ctx, 9999, true)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteStorage_AddActionItemValidation(t *testing.T) {
	tests := []struct {
		item *model.ActionItem
		name string
	}{
		{name: "nil item", item: nil},
		{name: "empty task", item: &model.ActionItem{EmailID: "e", Priority: model.PriorityLow}},
		{name: "missing email", item: &model.ActionItem{Task: "t", Priority: model.PriorityLow}},
		{name: "bad priority", item: &model.ActionItem{EmailID: "e", Task: "t", Priority: "urgent"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := createTestStorage(t)
			err := store.AddActionItem(context.Background(), tt.item)
			require.ErrorIs(t, err, common.ErrValidation)
		})
	}
}

func TestSQLiteStorage_Drafts(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	email := createTestEmails(1)[0]
	seedEmails(t, store, []model.Email{email})

	reply := &model.Draft{EmailID: email.ID, Subject: "Re: Subject 1", Body: "Thanks", Tone: "professional"}
	require.NoError(t, store.SaveDraft(ctx, reply))
	assert.Equal(t, model.DraftKindReply, reply.Kind)
	assert.NotZero(t, reply.ID)

	composed := &model.Draft{Subject: "Lunch", Body: "Are you free?", Kind: model.DraftKindNew}
	require.NoError(t, store.SaveDraft(ctx, composed))

	byEmail, err := store.GetDraftsByEmail(ctx, email.ID)
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	assert.Equal(t, reply.ID, byEmail[0].ID)

	require.NoError(t, store.UpdateDraft(ctx, reply.ID, "", "Thanks, will do."))
	got, err := store.GetDraft(ctx, reply.ID)
	require.NoError(t, err)
	assert.Equal(t, "Re: Subject 1", got.Subject, "empty subject leaves it unchanged")
	assert.Equal(t, "Thanks, will do.", got.Body)
	assert.Equal(t, "professional", got.Tone)

	require.NoError(t, store.DeleteDraft(ctx, composed.ID))
	_, err = store.GetDraft(ctx, composed.ID)
	require.ErrorIs(t, err, common.ErrNotFound)
	require.ErrorIs(t, store.DeleteDraft(ctx, composed.ID), common.ErrNotFound)

	err = store.SaveDraft(ctx, &model.Draft{Subject: "Re: orphan", Kind: model.DraftKindReply})
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestSQLiteStorage_Prompts(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	original := &model.PromptTemplate{
		Name:     "categorize_v1",
		Kind:     model.PromptCategorization,
		Template: "From {sender}: {subject}",
		Active:   true,
	}
	require.NoError(t, store.SavePrompt(ctx, original))
	assert.Equal(t, "1.0", original.Version)

	replacement := &model.PromptTemplate{
		Name:     "categorize_v2",
		Kind:     model.PromptCategorization,
		Template: "Categorize {body}",
		Version:  "2.0",
		Active:   true,
	}
	require.NoError(t, store.SavePrompt(ctx, replacement))

	active, err := store.GetActivePrompt(ctx, model.PromptCategorization)
	require.NoError(t, err)
	assert.Equal(t, "categorize_v2", active.Name)

	prompts, err := store.GetPrompts(ctx)
	require.NoError(t, err)
	require.Len(t, prompts, 2)
	for _, p := range prompts {
		assert.Equal(t, p.Name == "categorize_v2", p.Active, p.Name)
	}

	// Saving by an existing name updates in place.
	original.Template = "Updated {subject}"
	require.NoError(t, store.SavePrompt(ctx, original))
	prompts, err = store.GetPrompts(ctx)
	require.NoError(t, err)
	assert.Len(t, prompts, 2)

	require.NoError(t, store.UpdatePromptTemplate(ctx, model.PromptCategorization, "New {body}"))
	active, err = store.GetActivePrompt(ctx, model.PromptCategorization)
	require.NoError(t, err)
	assert.Equal(t, "New {body}", active.Template)
	assert.Equal(t, "categorize_v1", active.Name)

	_, err = store.GetActivePrompt(ctx, model.PromptUrgency)
	require.ErrorIs(t, err, common.ErrNotFound)
	require.ErrorIs(t, store.UpdatePromptTemplate(ctx, model.PromptUrgency, "x"), common.ErrNotFound)
}

func TestSQLiteStorage_ChatHistory(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i, q := range []string{"first", "second", "third"} {
		require.NoError(t, store.AddChatMessage(ctx, &model.ChatMessage{
			UserMessage:   q,
			AgentResponse: "answer " + q,
			Context:       "ctx",
			Timestamp:     base.Add(time.Duration(i) * time.Minute),
		}))
	}

	history, err := store.GetChatHistory(ctx, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "third", history[0].UserMessage)
	assert.Equal(t, "second", history[1].UserMessage)
	assert.Equal(t, "ctx", history[0].Context)

	require.NoError(t, store.ClearChatHistory(ctx))
	history, err = store.GetChatHistory(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}
