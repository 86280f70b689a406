package objstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStore_FetchText(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "log-bucket", "logs")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "feed.json"), []byte(`{"UserName":"alice"}`+"\n"), 0o644))

	s := NewFSStore(root)

	content, err := s.FetchText(context.Background(), "log-bucket", "logs/feed.json")
	require.NoError(t, err)
	assert.Equal(t, `{"UserName":"alice"}`+"\n", content)
}

func TestFSStore_FetchText_Missing(t *testing.T) {
	s := NewFSStore(t.TempDir())
	_, err := s.FetchText(context.Background(), "b", "logs/nope.json")
	require.Error(t, err)
}

func TestFSStore_FetchText_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewFSStore(t.TempDir())
	_, err := s.FetchText(ctx, "b", "logs/feed.json")
	require.Error(t, err)
}

func TestFSStore_URI(t *testing.T) {
	s := NewFSStore("/data")
	assert.Equal(t, "file://log-bucket/logs/feed.json", s.URI("log-bucket", "logs/feed.json"))
}
