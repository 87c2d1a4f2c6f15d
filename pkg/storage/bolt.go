package storage

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

var stateBucket = []byte("state")

// BoltStore is the bbolt-backed Store implementation.
type BoltStore struct {
	db *bbolt.DB
	mu sync.Mutex
}

// Open creates (if necessary) and opens the state database at path.
func Open(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, wrapErr("", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(stateBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, wrapErr("", err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(key string, def interface{}) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec *Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(stateBucket)
		raw := b.Get([]byte(key))
		if raw == nil {
			return nil
		}
		var r Record
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		rec = &r
		return nil
	})
	if err != nil {
		return nil, wrapErr(key, err)
	}
	if rec == nil {
		return def, nil
	}
	value, err := decodeValue(rec.Value, rec.Type)
	if err != nil {
		return nil, wrapErr(key, err)
	}
	return value, nil
}

func (s *BoltStore) Set(key string, value interface{}) error {
	encoded, typeName, err := encodeValue(value)
	if err != nil {
		return wrapErr(key, err)
	}
	rec := Record{Type: typeName, Value: encoded, UpdatedAt: time.Now().UTC()}
	data, err := json.Marshal(rec)
	if err != nil {
		return wrapErr(key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(stateBucket)
		return b.Put([]byte(key), data)
	})
	return wrapErr(key, err)
}

func (s *BoltStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(stateBucket)
		return b.Delete([]byte(key))
	})
	return wrapErr(key, err)
}

func (s *BoltStore) Exists(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(stateBucket)
		found = b.Get([]byte(key)) != nil
		return nil
	})
	if err != nil {
		return false, wrapErr(key, err)
	}
	return found, nil
}

func (s *BoltStore) GetAll() (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]interface{})
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(stateBucket)
		return b.ForEach(func(k, raw []byte) error {
			var r Record
			if err := json.Unmarshal(raw, &r); err != nil {
				return err
			}
			value, err := decodeValue(r.Value, r.Type)
			if err != nil {
				return err
			}
			out[string(k)] = value
			return nil
		})
	})
	if err != nil {
		return nil, wrapErr("", err)
	}
	return out, nil
}

func (s *BoltStore) GetKeys(prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(stateBucket)
		c := b.Cursor()
		if prefix == "" {
			for k, _ := c.First(); k != nil; k, _ = c.Next() {
				keys = append(keys, string(k))
			}
			return nil
		}
		bp := []byte(prefix)
		for k, _ := c.Seek(bp); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr("", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *BoltStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(stateBucket); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket(stateBucket)
		return err
	})
	return wrapErr("", err)
}

func (s *BoltStore) Close() error {
	return wrapErr("", s.db.Close())
}
