package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, sub := range []string{"serve", "migrate", "--memory-store"} {
		assert.Contains(t, output, sub, "Help missing %q", sub)
	}
}

func TestServe_RefusesInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		args    []string
		wantErr string
	}{
		{
			name: "short secret",
			env: map[string]string{
				"DATABASE_URL":          "postgres://app@localhost/app",
				"JWT_ACCESS_SECRET":     "tooshort",
				"JWT_ACCESS_EXPIRES_IN": "15m",
			},
			wantErr: "JWT_ACCESS_SECRET must be at least 30 characters",
		},
		{
			name: "bad expiry through serve",
			env: map[string]string{
				"DATABASE_URL":          "postgres://app@localhost/app",
				"JWT_ACCESS_SECRET":     "0123456789abcdef0123456789abcdef",
				"JWT_ACCESS_EXPIRES_IN": "soon",
			},
			args:    []string{"serve", "--memory-store"},
			wantErr: "JWT_ACCESS_EXPIRES_IN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, val := range tt.env {
				t.Setenv(key, val)
			}

			cmd := NewRootCmd()
			stderr := new(bytes.Buffer)
			cmd.SetOut(new(bytes.Buffer))
			cmd.SetErr(stderr)
			args := tt.args
			if args == nil {
				args = []string{}
			}
			cmd.SetArgs(args)

			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Contains(t, stderr.String(), tt.wantErr)
		})
	}
}

func TestMigrate_RequiresDatabase(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "DATABASE_URL_FILE", "PGHOST", "PGUSER"} {
		t.Setenv(key, "")
	}

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"migrate"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database configuration missing")
}
