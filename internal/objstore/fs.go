package objstore

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// FSStore serves objects from a local directory tree: each bucket is a
// subdirectory of the root, each object a file path beneath it. Used for
// local development and the watch command.
type FSStore struct {
	root string
}

// NewFSStore creates a filesystem-backed object store rooted at root.
// An empty root means bucket paths are resolved relative to the working
// directory.
func NewFSStore(root string) *FSStore {
	return &FSStore{root: root}
}

// FetchText reads the full object content.
func (s *FSStore) FetchText(ctx context.Context, bucket, object string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", eris.Wrap(err, "fs: fetch canceled")
	}

	path := filepath.Join(s.root, bucket, filepath.FromSlash(object))
	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "fs: read %s", path)
	}
	return string(data), nil
}

// URI returns the canonical file identity used as the ledger key.
func (s *FSStore) URI(bucket, object string) string {
	return "file://" + bucket + "/" + object
}
