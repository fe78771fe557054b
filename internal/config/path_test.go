package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("MAILFLOW_TEST_DIR", "/var/lib/mailflow")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "tilde", in: "~", want: home},
		{name: "tilde prefix", in: "~/mail/db.sqlite", want: filepath.Join(home, "mail/db.sqlite")},
		{name: "env var", in: "$MAILFLOW_TEST_DIR/mailflow.db", want: "/var/lib/mailflow/mailflow.db"},
		{name: "plain", in: "/tmp/mailflow.db", want: "/tmp/mailflow.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}
