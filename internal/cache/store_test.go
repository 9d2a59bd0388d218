package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/advisorystack/csaf-walker/internal/validate"
	"github.com/advisorystack/csaf-walker/internal/verify"
)

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	url := "https://example.com/2024/adv-1.json"

	store, err := OpenFileStore(dir)
	require.NoError(t, err)

	_, ok := store.Get(url)
	assert.False(t, ok, "fresh store is empty")

	entry := &Entry{
		ETag:         `"v1"`,
		LastModified: "Mon, 02 Jan 2006 15:04:05 GMT",
		UpdatedAt:    time.Now().UTC().Truncate(time.Second),
		Trust: &verify.TrustResult{
			Digest:    verify.DigestMatch,
			Signature: verify.SignatureVerified,
			Policy:    verify.PolicyOptional,
		},
		Findings: []validate.Finding{
			{RuleID: "tlp-label", Severity: validate.SeverityWarning, Message: "document carries no TLP label"},
		},
		ConfigFingerprint: "abc123",
	}
	store.Put(url, entry)

	got, ok := store.Get(url)
	require.True(t, ok)
	assert.Equal(t, entry, got)

	require.NoError(t, store.Commit())
	require.NoError(t, store.Close())

	// A reopened store sees the committed state.
	store, err = OpenFileStore(dir)
	require.NoError(t, err)
	defer func() {
		_ = store.Close()
	}()

	got, ok = store.Get(url)
	require.True(t, ok)
	assert.Equal(t, entry.ETag, got.ETag)
	assert.Equal(t, entry.LastModified, got.LastModified)
	assert.Equal(t, entry.ConfigFingerprint, got.ConfigFingerprint)
	require.NotNil(t, got.Trust)
	assert.Equal(t, verify.DigestMatch, got.Trust.Digest)
	require.Len(t, got.Findings, 1)
	assert.Equal(t, "tlp-label", got.Findings[0].RuleID)
}

func TestFileStoreUncommittedWritesAreLost(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	store, err := OpenFileStore(dir)
	require.NoError(t, err)
	store.Put("https://example.com/a.json", &Entry{ETag: `"v1"`})
	require.NoError(t, store.Close())

	store, err = OpenFileStore(dir)
	require.NoError(t, err)
	defer func() {
		_ = store.Close()
	}()

	_, ok := store.Get("https://example.com/a.json")
	assert.False(t, ok)
}

func TestFileStoreCommitIsAtomic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	store, err := OpenFileStore(dir)
	require.NoError(t, err)
	store.Put("https://example.com/a.json", &Entry{ETag: `"v1"`})
	require.NoError(t, store.Commit())
	require.NoError(t, store.Close())

	// No temporary file is left behind.
	_, err = os.Stat(filepath.Join(dir, StoreFileName+".tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileStoreRejectsCorruptData(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, StoreFileName), []byte("not json"), 0600))

	_, err := OpenFileStore(dir)
	assert.ErrorContains(t, err, "failed to parse cache store")
}

func TestFileStoreCreatesCacheDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "cache")

	store, err := OpenFileStore(dir)
	require.NoError(t, err)
	defer func() {
		_ = store.Close()
	}()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNopStore(t *testing.T) {
	t.Parallel()

	store := NewNopStore()
	store.Put("https://example.com/a.json", &Entry{ETag: `"v1"`})

	_, ok := store.Get("https://example.com/a.json")
	assert.False(t, ok)
	assert.NoError(t, store.Commit())
	assert.NoError(t, store.Close())
}
