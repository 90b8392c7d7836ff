package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"finanze/internal/config"
)

func TestApplyFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&port, "port", "", "")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "")
	cmd.Flags().StringVar(&credentialsMode, "credentials-storage-mode", "", "")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "")

	c := &config.Config{Port: "7592", DataDir: "./data", CredentialsStorageMode: "DB", LogLevel: "info"}
	assert.NoError(t, cmd.Flags().Parse([]string{"--port", "9000", "--credentials-storage-mode", "ENV"}))
	applyFlags(cmd, c)

	assert.Equal(t, "9000", c.Port)
	assert.Equal(t, "ENV", c.CredentialsStorageMode)
	assert.Equal(t, "./data", c.DataDir, "unset flags keep the environment value")
	assert.Equal(t, "info", c.LogLevel)
}

func TestSaveToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	tok := &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer"}
	require.NoError(t, saveToken(path, tok))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var got oauth2.Token
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "r", got.RefreshToken)
}
