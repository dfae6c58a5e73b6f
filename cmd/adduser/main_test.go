package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartledger/internal/password"
	"smartledger/internal/storage"
)

func TestRun_Success(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "users.db")
	stdout := new(bytes.Buffer)

	args := []string{"-user", "testuser", "-name", "Test User", "-password", "s3cretpass", "-db", dbPath, "-iterations", "1000"}
	require.NoError(t, run(args, new(bytes.Buffer), stdout, new(bytes.Buffer)))
	assert.Contains(t, stdout.String(), "User testuser created successfully")

	repo, err := storage.NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	defer repo.Close()
	u, err := repo.UserByUsername(context.Background(), "testuser")
	require.NoError(t, err)
	assert.Equal(t, "Test User", u.Name)
	assert.True(t, password.Verify("s3cretpass", u.PasswordHash))
}

func TestRun_DuplicateUser(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "users.db")
	args := []string{"-user", "testuser", "-password", "s3cretpass", "-db", dbPath, "-iterations", "1000"}

	require.NoError(t, run(args, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer)))
	err := run(args, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestRun_MissingUserFlag(t *testing.T) {
	stdout := new(bytes.Buffer)
	err := run([]string{"-password", "s3cretpass"}, new(bytes.Buffer), stdout, new(bytes.Buffer))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required flags: user")
	assert.Contains(t, stdout.String(), "Usage:")
}

func TestRun_InteractivePassword(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "users.db")
	stdout := new(bytes.Buffer)
	stdin := bytes.NewBufferString("interactive_secret\n")

	args := []string{"-user", "interactive_user", "-db", dbPath, "-iterations", "1000"}
	require.NoError(t, run(args, stdin, stdout, new(bytes.Buffer)))
	assert.Contains(t, stdout.String(), "Password: ")
	assert.Contains(t, stdout.String(), "User interactive_user created successfully")
}

func TestRun_RejectsInvalidInput(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "users.db")

	err := run([]string{"-user", "x", "-password", "s3cretpass", "-db", dbPath}, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	assert.ErrorContains(t, err, "username must be 3-32 ASCII characters")

	err = run([]string{"-user", "shorty", "-db", dbPath}, bytes.NewBufferString("short\n"), new(bytes.Buffer), new(bytes.Buffer))
	assert.ErrorContains(t, err, "password must be 8-128 characters")

	err = run([]string{"-user", "nopass", "-db", dbPath}, new(bytes.Buffer), new(bytes.Buffer), new(bytes.Buffer))
	assert.ErrorContains(t, err, "read password")
}
