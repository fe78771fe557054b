package prompts_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/mailflow/internal/common"
	"github.com/Veraticus/mailflow/internal/model"
	"github.com/Veraticus/mailflow/internal/prompts"
	"github.com/Veraticus/mailflow/internal/storage"
)

func newStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestService_EnsureDefaults(t *testing.T) {
	ctx := context.Background()
	svc := prompts.NewService(newStore(t))

	seeded, err := svc.EnsureDefaults(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, len(prompts.Kinds), seeded)

	for _, kind := range prompts.Kinds {
		template, err := svc.Template(ctx, kind)
		require.NoError(t, err, "kind %s", kind)
		assert.Contains(t, template, model.SlotSender)
		assert.Contains(t, template, model.SlotSubject)
		assert.Contains(t, template, model.SlotBody)
	}

	// A populated store is left alone.
	seeded, err = svc.EnsureDefaults(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, seeded)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, len(prompts.Kinds))
}

func TestService_EnsureDefaultsOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`prompts:
  - kind: categorization
    name: Terse
    template: "Category for {subject}?"
`), 0o600))

	ctx := context.Background()
	svc := prompts.NewService(newStore(t))

	seeded, err := svc.EnsureDefaults(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 1, seeded)

	template, err := svc.Template(ctx, model.PromptCategorization)
	require.NoError(t, err)
	assert.Equal(t, "Category for {subject}?", template)

	_, err = svc.Template(ctx, model.PromptAutoReply)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestService_EnsureDefaultsMissingFile(t *testing.T) {
	svc := prompts.NewService(newStore(t))

	_, err := svc.EnsureDefaults(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc := prompts.NewService(newStore(t))

	err := svc.Update(ctx, model.PromptUrgency, "How urgent is {subject}?")
	require.ErrorIs(t, err, common.ErrNotFound)

	_, err = svc.EnsureDefaults(ctx, "")
	require.NoError(t, err)
	require.NoError(t, svc.Update(ctx, model.PromptUrgency, "How urgent is {subject}?"))

	template, err := svc.Template(ctx, model.PromptUrgency)
	require.NoError(t, err)
	assert.Equal(t, "How urgent is {subject}?", template)
}

func TestParseTemplates(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		wantErr     bool
		wantVersion string
		wantActive  bool
	}{
		{
			name:        "defaults applied",
			data:        "prompts:\n  - kind: auto_reply\n    name: Reply\n    template: Reply to {sender}\n",
			wantVersion: "1.0",
			wantActive:  true,
		},
		{
			name:        "explicit values kept",
			data:        "prompts:\n  - kind: auto_reply\n    name: Reply\n    version: \"2.1\"\n    active: false\n    template: Reply to {sender}\n",
			wantVersion: "2.1",
			wantActive:  false,
		},
		{
			name:    "missing template",
			data:    "prompts:\n  - kind: auto_reply\n    name: Reply\n",
			wantErr: true,
		},
		{
			name:    "no prompts",
			data:    "prompts: []\n",
			wantErr: true,
		},
		{
			name:    "invalid yaml",
			data:    "prompts: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			templates, err := prompts.ParseTemplates([]byte(tt.data))
			if tt.wantErr {
				require.ErrorIs(t, err, common.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			require.Len(t, templates, 1)
			assert.Equal(t, tt.wantVersion, templates[0].Version)
			assert.Equal(t, tt.wantActive, templates[0].Active)
			assert.Equal(t, model.PromptAutoReply, templates[0].Kind)
		})
	}
}

func TestRender(t *testing.T) {
	email := &model.Email{
		Sender:  "bob@example.com",
		Subject: "Lunch {body}",
		Body:    "See you at $1 {sender}",
	}

	got := prompts.Render("From {sender} / {subject} / {body} / {subject}", email)
	assert.Equal(t, "From bob@example.com / Lunch {body} / See you at $1 {sender} / Lunch {body}", got)
}
