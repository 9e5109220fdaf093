package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/Dan9191/smartbank/internal/repository/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "smartbank.db")
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", path)
	t.Setenv("AMQP_URL", "")
	t.Setenv("NOTIFY_ENABLED", "false")
	return path
}

func TestRun_Success(t *testing.T) {
	path := useSQLite(t)
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)

	args := []string{"-email", "juan@test.com", "-first", "Juan", "-last", "Pérez", "-password", "pw123456"}
	require.NoError(t, run(args, new(bytes.Buffer), stdout, stderr))
	assert.Contains(t, stdout.String(), "User juan@test.com created successfully")

	backend, err := docstore.OpenSQLite(path)
	require.NoError(t, err)
	store := docstore.New(backend)
	defer store.Close()
	user, err := store.FindUserByEmail(context.Background(), "juan@test.com")
	require.NoError(t, err)
	assert.Equal(t, "Juan", user.FirstName)
	assert.NotEqual(t, "pw123456", user.PasswordHash)
}

func TestRun_DuplicateUser(t *testing.T) {
	useSQLite(t)
	args := []string{"-email", "juan@test.com", "-first", "Juan", "-last", "Pérez", "-password", "pw123456"}

	require.NoError(t, run(args, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer)))
	err := run(args, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestRun_MissingFlags(t *testing.T) {
	stdout := new(bytes.Buffer)
	err := run([]string{"-password", "pw123456"}, new(bytes.Buffer), stdout, new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required flags")
	assert.Contains(t, stdout.String(), "Usage:")
}

func TestRun_InteractivePassword(t *testing.T) {
	useSQLite(t)
	stdout := new(bytes.Buffer)
	stdin := bytes.NewBufferString("interactive_secret\n")

	args := []string{"-email", "ana@test.com", "-first", "Ana", "-last", "Ruiz"}
	require.NoError(t, run(args, stdin, stdout, new(bytes.Buffer)))
	assert.Contains(t, stdout.String(), "Password: ")
	assert.Contains(t, stdout.String(), "created successfully")
}

func TestRun_WeakPassword(t *testing.T) {
	useSQLite(t)
	args := []string{"-email", "ana@test.com", "-first", "Ana", "-last", "Ruiz", "-password", "123"}
	err := run(args, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password")
}
