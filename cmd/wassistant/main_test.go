package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wassistant/internal/threadstore"
)

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"chat", "reply", "thread", "provision", "serve-admin"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("log-level"))
}

func TestThreadCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "threads_db")
	store := threadstore.NewFileStore(path)
	require.NoError(t, store.Put(t.Context(), "15550001111", "thread_abc"))

	t.Setenv("WASSISTANT_STORE_BACKEND", "file")
	t.Setenv("WASSISTANT_STORE_PATH", path)

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"thread", "15550001111"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "thread_abc\n", out.String())

	root = newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"thread", "15559999999"})
	assert.ErrorContains(t, root.Execute(), "no thread stored")
}

func TestReplyRequiresUser(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"reply", "hello"})
	assert.Error(t, root.Execute())
}
