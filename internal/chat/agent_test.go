package chat_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/mailflow/internal/chat"
	"github.com/Veraticus/mailflow/internal/common"
	"github.com/Veraticus/mailflow/internal/llm"
	"github.com/Veraticus/mailflow/internal/model"
	"github.com/Veraticus/mailflow/internal/testutil"
)

func TestAgent_Ask(t *testing.T) {
	db := newRouterDB(t)
	client := testutil.NewFakeClient("You have one important email about the budget.")
	agent := chat.NewAgent(client, db.Storage, nil)
	ctx := context.Background()

	response, err := agent.Ask(ctx, "Anything important?", "")
	require.NoError(t, err)
	assert.Equal(t, "You have one important email about the budget.", response)

	calls := client.Calls()
	require.Len(t, calls, 1)
	assert.InDelta(t, llm.ChatTemperature, calls[0].Temperature, 1e-9)
	assert.Equal(t, llm.ChatMaxTokens, calls[0].MaxTokens)
	assert.Contains(t, calls[0].Prompt, "User Query: Anything important?")
	assert.Contains(t, calls[0].Prompt, "Context:\n[Important] From: Dana CFO")

	history, err := agent.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Anything important?", history[0].UserMessage)
	assert.Equal(t, response, history[0].AgentResponse)
	assert.True(t, strings.HasPrefix(history[0].Context, "[Important] From: Dana CFO"))

	require.NoError(t, agent.ClearHistory(ctx))
	history, err = agent.History(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestAgent_AskStoresBoundedContext(t *testing.T) {
	db := newRouterDB(t)
	client := testutil.NewFakeClient("It needs approval.")
	agent := chat.NewAgent(client, db.Storage, nil)
	ctx := context.Background()

	_, err := agent.Ask(ctx, "Summarize this", "budget")
	require.NoError(t, err)

	history, err := agent.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Len(t, []rune(history[0].Context), chat.HistoryContextLength)
	assert.True(t, strings.HasPrefix(history[0].Context, "Email Details:\n"))
}

func TestAgent_AskErrors(t *testing.T) {
	db := newRouterDB(t)
	ctx := context.Background()

	_, err := chat.NewAgent(testutil.NewFakeClient(), db.Storage, nil).Ask(ctx, "  ", "")
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = chat.NewAgent(testutil.NewFakeClient(), db.Storage, nil).Ask(ctx, "hello", "missing")
	require.ErrorIs(t, err, common.ErrNotFound)

	providerErr := &common.ProviderError{Provider: "openai", StatusCode: 503, Err: errors.New("overloaded")}
	client := testutil.NewFakeClient().EnqueueError(providerErr)
	agent := chat.NewAgent(client, db.Storage, nil)
	_, err = agent.Ask(ctx, "hello", "")
	var target *common.ProviderError
	require.ErrorAs(t, err, &target)

	history, err := agent.History(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, history, "failed exchanges are not recorded")
}

func TestAgent_ComposeDraft(t *testing.T) {
	db := testutil.SetupTestDB(t)
	client := testutil.NewFakeClient("Hi team,\n\nThe offsite is moved to Friday.")
	agent := chat.NewAgent(client, db.Storage, nil)
	ctx := context.Background()

	draft, err := agent.ComposeDraft(ctx, "Offsite update", "tell the team the offsite moved to Friday", "")
	require.NoError(t, err)
	assert.NotZero(t, draft.ID)
	assert.Equal(t, model.DraftKindNew, draft.Kind)
	assert.Equal(t, chat.DefaultTone, draft.Tone)
	assert.Empty(t, draft.EmailID)

	calls := client.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, llm.ComposeMaxTokens, calls[0].MaxTokens)
	assert.Contains(t, calls[0].Prompt, "Subject: Offsite update\n")
	assert.Contains(t, calls[0].Prompt, "Context/Purpose: tell the team the offsite moved to Friday\n")
	assert.Contains(t, calls[0].Prompt, "Tone: professional\n")

	stored, err := db.Storage.GetDraft(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hi team,\n\nThe offsite is moved to Friday.", stored.Body)
}

func TestAgent_InboxSummary(t *testing.T) {
	db := newRouterDB(t)
	agent := chat.NewAgent(testutil.NewFakeClient(), db.Storage, nil)

	summary, err := agent.InboxSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Stats.TotalEmails)
	assert.Equal(t, 1, summary.ImportantCount)
	assert.Equal(t, 1, summary.TodoCount)
	assert.Equal(t, 2, summary.PendingActions)
	require.Len(t, summary.RecentImportant, 1)
	assert.Equal(t, "budget", summary.RecentImportant[0].ID)
}
