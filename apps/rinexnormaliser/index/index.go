// The index package records which input files the normaliser has
// processed, so that each file is handled once.  The index is a bbolt
// database holding one JSON entry per file name.
package index

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var filesBucket = []byte("files")

// Entry describes the processing of one input file.
type Entry struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`

	// Processed is the time that the file was processed.
	Processed time.Time `json:"processed"`

	// Checksum is the CRC-24Q of the normalised output.
	Checksum uint32 `json:"checksum"`
	Records  int    `json:"records"`
	Skipped  int    `json:"skipped"`
	Problems int    `json:"problems"`

	// Error is set if the file could not be normalised.
	Error string `json:"error,omitempty"`
}

// OK is true if the file was normalised.
func (e Entry) OK() bool {
	return len(e.Error) == 0
}

// Index is a persistent index of processed files.  It's safe for
// concurrent use.
type Index struct {
	db *bbolt.DB
}

// Open opens the index in the given file, creating it if necessary.
func Open(path string) (*Index, error) {
	db, err := bbolt.Open(path, 0o666, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open index %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(filesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index bucket: %w", err)
	}

	return &Index{db: db}, nil
}

// Close closes the index.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Put adds or replaces the entry for e.Name.
func (ix *Index) Put(e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return ix.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(filesBucket).Put([]byte(e.Name), data)
	})
}

// Get returns the entry for the named file.  ok is false if there is none.
func (ix *Index) Get(name string) (e Entry, ok bool, err error) {
	err = ix.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(filesBucket).Get([]byte(name))
		if data == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(data, &e)
	})
	return e, ok, err
}

// Seen is true if the index has an entry for the named file with the given
// size and modification time.  A file that has changed since it was
// processed is not seen.
func (ix *Index) Seen(name string, size int64, modTime time.Time) (bool, error) {
	e, ok, err := ix.Get(name)
	if err != nil || !ok {
		return false, err
	}
	return e.Size == size && e.ModTime.Equal(modTime), nil
}

// Entries returns all of the entries, in order of file name.
func (ix *Index) Entries() ([]Entry, error) {
	entries := make([]Entry, 0)
	err := ix.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(filesBucket).ForEach(func(_, data []byte) error {
			var e Entry
			if err := json.Unmarshal(data, &e); err != nil {
				return err
			}
			entries = append(entries, e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Delete removes the entry for the named file, so that it will be
// processed again.
func (ix *Index) Delete(name string) error {
	return ix.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(filesBucket).Delete([]byte(name))
	})
}
