package nonce

import (
	"context"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Store is a persistent container of
// commitment-nonce records, written as a whole list on every mutation.
// Reads return an empty list when uninitialized.
type Store interface {
	Load(ctx context.Context) ([]Record, error)
	Save(ctx context.Context, records []Record) error
}

// FileStore is the default Store: the whole nonce list as one JSON file.
// Prefers the simplest persistence that does the job: plain
// encoding/json, and the wire shape is just "an array of
// {...}", not a particular format.
type FileStore struct {
	Path string
}

// NewFileStore returns a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load implements Store.
func (f *FileStore) Load(ctx context.Context) ([]Record, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return []Record{}, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "nonce: read store file")
	}

	if len(data) == 0 {
		return []Record{}, nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrap(err, "nonce: decode store file")
	}

	return records, nil
}

// Save implements Store: the whole list is rewritten atomically via a
// temp-file rename, so a crash mid-write never corrupts the previous
// snapshot.
func (f *FileStore) Save(ctx context.Context, records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.Wrap(err, "nonce: encode store file")
	}

	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "nonce: write temp store file")
	}

	if err := os.Rename(tmp, f.Path); err != nil {
		return errors.Wrap(err, "nonce: replace store file")
	}

	return nil
}
