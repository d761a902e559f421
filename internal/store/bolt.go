package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/lojasmm/wamenu/internal/menu"
)

var (
	configBucket   = []byte("config")
	statsBucket    = []byte("stats")
	settingsBucket = []byte("settings")

	statsKey       = []byte("stats")
	credentialsKey = []byte("credentials")
)

const defaultResponseTime = "~150ms"

// ErrUnknownSection is returned for section names outside menu.Sections.
var ErrUnknownSection = menu.ErrUnknownSection

// Credentials are the Cloud API credentials saved from the admin portal.
type Credentials struct {
	PhoneNumberID string    `json:"phone_number_id"`
	AccessToken   string    `json:"access_token"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Store persists the bot configuration tree and usage stats.
type Store interface {
	Tree() (*menu.Tree, error)
	Section(name string) (json.RawMessage, error)
	ReplaceSection(name string, raw json.RawMessage) error
	ReplaceTree(t *menu.Tree) error
	Reset() error

	Stats() (menu.Stats, error)
	SaveStats(s menu.Stats) error
	IncrementMessages(n int) error
	AddUsers(ids ...string) error

	Credentials() (*Credentials, error)
	SaveCredentials(phoneNumberID, accessToken string) error

	Close() error
}

type BoltStore struct {
	db  *bolt.DB
	now func() time.Time
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{configBucket, statsBucket, settingsBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltStore{db: db, now: time.Now}, nil
}

// Tree returns the full configuration, seeding the built-in defaults when
// nothing has been stored yet.
func (s *BoltStore) Tree() (*menu.Tree, error) {
	var tree *menu.Tree
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		tree, err = readTree(tx.Bucket(configBucket))
		return err
	})
	if err != nil {
		return nil, err
	}
	if tree != nil {
		return tree, nil
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(configBucket)
		// Another writer may have seeded between the two transactions.
		existing, err := readTree(b)
		if err != nil {
			return err
		}
		if existing != nil {
			tree = existing
			return nil
		}
		tree = menu.Default()
		return writeTree(b, tree)
	})
	if err != nil {
		return nil, fmt.Errorf("seeding default config: %w", err)
	}
	return tree, nil
}

// Section returns one config section as JSON.
func (s *BoltStore) Section(name string) (json.RawMessage, error) {
	tree, err := s.Tree()
	if err != nil {
		return nil, err
	}
	v, err := tree.Section(name)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// ReplaceSection decodes and validates raw before replacing the section.
// The read, the check and the write share one transaction so concurrent
// writes to different sections do not overwrite each other.
func (s *BoltStore) ReplaceSection(name string, raw json.RawMessage) error {
	if !menu.IsSection(name) {
		return fmt.Errorf("%w: %s", ErrUnknownSection, name)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(configBucket)
		tree, err := readTree(b)
		if err != nil {
			return err
		}
		if tree == nil {
			tree = menu.Default()
		}
		if err := tree.SetSection(name, raw); err != nil {
			return &ValidationError{Err: err}
		}
		return putTree(b, tree)
	})
}

// ReplaceTree normalizes, validates and stores the whole tree.
func (s *BoltStore) ReplaceTree(t *menu.Tree) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putTree(tx.Bucket(configBucket), t)
	})
}

// Reset drops the stored config and stats; defaults are seeded on next read.
func (s *BoltStore) Reset() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{configBucket, statsBucket} {
			if err := tx.DeleteBucket(b); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
				return err
			}
			if _, err := tx.CreateBucket(b); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) Stats() (menu.Stats, error) {
	var st menu.Stats
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		st, err = readStats(tx.Bucket(statsBucket), s.now)
		return err
	})
	return st, err
}

func (s *BoltStore) SaveStats(st menu.Stats) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return s.writeStats(tx.Bucket(statsBucket), st)
	})
}

// IncrementMessages adds n to the total message counter.
func (s *BoltStore) IncrementMessages(n int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(statsBucket)
		st, err := readStats(b, s.now)
		if err != nil {
			return err
		}
		st.TotalMessages += n
		return s.writeStats(b, st)
	})
}

// AddUsers records sender ids not seen before and recomputes the unique
// user count.
func (s *BoltStore) AddUsers(ids ...string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(statsBucket)
		st, err := readStats(b, s.now)
		if err != nil {
			return err
		}
		changed := false
		for _, id := range ids {
			if id == "" || slices.Contains(st.Users, id) {
				continue
			}
			st.Users = append(st.Users, id)
			changed = true
		}
		if !changed {
			return nil
		}
		st.UniqueUsers = len(st.Users)
		return s.writeStats(b, st)
	})
}

func (s *BoltStore) Credentials() (*Credentials, error) {
	var c Credentials
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(settingsBucket).Get(credentialsKey)
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &c)
	})
	if err != nil {
		return nil, err
	}
	if c.PhoneNumberID == "" {
		return nil, nil
	}
	return &c, nil
}

func (s *BoltStore) SaveCredentials(phoneNumberID, accessToken string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(Credentials{
			PhoneNumberID: phoneNumberID,
			AccessToken:   accessToken,
			UpdatedAt:     s.now(),
		})
		if err != nil {
			return err
		}
		return tx.Bucket(settingsBucket).Put(credentialsKey, data)
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// readTree returns nil when the bucket holds no sections.
func readTree(b *bolt.Bucket) (*menu.Tree, error) {
	if k, _ := b.Cursor().First(); k == nil {
		return nil, nil
	}
	tree := &menu.Tree{}
	for _, name := range menu.Sections {
		v := b.Get([]byte(name))
		if v == nil {
			continue
		}
		if err := tree.SetSection(name, v); err != nil {
			return nil, err
		}
	}
	tree.Normalize()
	return tree, nil
}

// putTree normalizes and validates t before writing it.
func putTree(b *bolt.Bucket, t *menu.Tree) error {
	t.Normalize()
	if err := t.Validate(); err != nil {
		return &ValidationError{Err: err}
	}
	return writeTree(b, t)
}

func writeTree(b *bolt.Bucket, t *menu.Tree) error {
	for _, name := range menu.Sections {
		v, err := t.Section(name)
		if err != nil {
			return err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", name, err)
		}
		if err := b.Put([]byte(name), data); err != nil {
			return err
		}
	}
	return nil
}

func readStats(b *bolt.Bucket, now func() time.Time) (menu.Stats, error) {
	st := menu.Stats{ResponseTime: defaultResponseTime, LastUpdated: now()}
	v := b.Get(statsKey)
	if v == nil {
		return st, nil
	}
	if err := json.Unmarshal(v, &st); err != nil {
		return menu.Stats{}, fmt.Errorf("decoding stats: %w", err)
	}
	return st, nil
}

func (s *BoltStore) writeStats(b *bolt.Bucket, st menu.Stats) error {
	st.LastUpdated = s.now()
	if st.ResponseTime == "" {
		st.ResponseTime = defaultResponseTime
	}
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return b.Put(statsKey, data)
}
