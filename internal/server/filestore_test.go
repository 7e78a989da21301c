package server

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	payload := bytes.Repeat([]byte{0xAB, 0xCD}, 4096)
	require.NoError(t, store.Put("1700000000_report.pdf", payload))

	got, err := store.Get("1700000000_report.pdf")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestFileStoreGetMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Get("1700000000_nope.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreOverwriteLastWriteWins(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put("1700000000_notes.txt", []byte("first")))
	require.NoError(t, store.Put("1700000000_notes.txt", []byte("second")))

	got, err := store.Get("1700000000_notes.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func TestFileStoreEmptyPayload(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put("1700000000_empty", nil))
	got, err := store.Get("1700000000_empty")
	require.NoError(t, err)
	assert.Empty(t, got)
}
