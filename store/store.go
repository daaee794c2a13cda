// Package store keeps parse snapshots in a bbolt database so that an
// incremental parse can pick up where a previous process left off.
package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dhamidi/sitter/grammar"
	"github.com/dhamidi/sitter/syntax"
	"github.com/klauspost/compress/zstd"
	"github.com/tliron/commonlog"
	bolt "go.etcd.io/bbolt"
)

var log = commonlog.GetLogger("sitter.store")

const bucketSnapshots = "snapshots"

// ErrNotFound is returned by Get when there is no snapshot under a key.
var ErrNotFound = errors.New("no such snapshot")

// Snapshot is a source text together with the tree parsed from it.
type Snapshot struct {
	Language string
	Source   []byte
	Tree     *syntax.Tree
}

type record struct {
	Language string          `json:"language"`
	Source   []byte          `json:"source"`
	Tree     json.RawMessage `json:"tree"`
}

type Store struct {
	db  *bolt.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketSnapshots))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize store %s: %w", path, err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, err
	}
	return &Store{db: db, enc: enc, dec: dec}, nil
}

// Close releases the compressors and closes the database.
func (s *Store) Close() error {
	s.dec.Close()
	encErr := s.enc.Close()
	if err := s.db.Close(); err != nil {
		return err
	}
	return encErr
}

// Put stores snap under key, replacing any previous snapshot.
func (s *Store) Put(key string, snap Snapshot) error {
	tree, err := syntax.MarshalTree(snap.Tree)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}
	data, err := json.Marshal(record{Language: snap.Language, Source: snap.Source, Tree: tree})
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}
	blob := s.enc.EncodeAll(data, nil)
	log.Debugf("put %s: %d bytes, %d compressed", key, len(data), len(blob))
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSnapshots)).Put([]byte(key), blob)
	})
}

// Get loads the snapshot under key. Its tree is restored against lang, which
// must be the language the snapshot was parsed with.
func (s *Store) Get(key string, lang *grammar.Descriptor) (Snapshot, error) {
	var blob []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketSnapshots)).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		blob = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	data, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("decompress snapshot %s: %w", key, err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	if rec.Language != lang.Name() {
		return Snapshot{}, fmt.Errorf("snapshot %s was parsed with %q, not %q", key, rec.Language, lang.Name())
	}
	tree, err := syntax.UnmarshalTree(rec.Tree, lang)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %s: %w", key, err)
	}
	return Snapshot{Language: rec.Language, Source: rec.Source, Tree: tree}, nil
}

func (s *Store) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSnapshots)).Delete([]byte(key))
	})
}

// Keys lists the stored keys in byte order.
func (s *Store) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSnapshots)).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}
