// Package docstore implements repository.Repository as JSON documents over a
// key-value Backend. Key "users" holds the roster; "userData_<id>" holds one
// user's banks, categories, subscriptions, transactions and sessions.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strconv"
	"sync"
	"time"

	"github.com/Dan9191/smartbank/internal/models"
	"github.com/Dan9191/smartbank/internal/repository"
)

var _ repository.Repository = (*Store)(nil)

const rosterKey = "users"

func userDataKey(userID int64) string {
	return "userData_" + strconv.FormatInt(userID, 10)
}

type userDoc struct {
	models.User
	PasswordHash   string     `json:"passwordHash"`
	FailedAttempts int        `json:"failedAttempts"`
	LockedUntil    *time.Time `json:"lockedUntil,omitempty"`
}

func newUserDoc(u models.User) userDoc {
	return userDoc{User: u, PasswordHash: u.PasswordHash, FailedAttempts: u.FailedAttempts, LockedUntil: u.LockedUntil}
}

func (d userDoc) user() models.User {
	u := d.User
	u.PasswordHash = d.PasswordHash
	u.FailedAttempts = d.FailedAttempts
	u.LockedUntil = d.LockedUntil
	return u
}

type bankDoc struct {
	models.Bank
	AccountNumberEnc string `json:"accountNumberEnc,omitempty"`
}

func newBankDoc(b models.Bank) bankDoc {
	return bankDoc{Bank: b, AccountNumberEnc: b.AccountNumberEnc}
}

func (d bankDoc) bank() models.Bank {
	b := d.Bank
	b.AccountNumberEnc = d.AccountNumberEnc
	return b
}

type userData struct {
	Transactions  []models.Transaction  `json:"transactions"`
	Categories    []models.Category     `json:"categories"`
	Subscriptions []models.Subscription `json:"subscriptions"`
	Banks         []bankDoc             `json:"banks"`
	Sessions      []models.Session      `json:"sessions"`
}

// Store is a document-backed repository. All access is serialized by one
// mutex; writes are staged per transaction and flushed in one Backend.Put.
type Store struct {
	backend Backend
	now     func() time.Time

	mu     sync.Mutex
	lastID int64
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps and ids.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewMemory returns a Store over a fresh in-memory backend.
func NewMemory(opts ...Option) *Store {
	return New(NewMemoryBackend(), opts...)
}

func (s *Store) Close() error {
	return s.backend.Close()
}

// nextID returns a millisecond timestamp, bumped past the last id issued.
func (s *Store) nextID() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

type txKey struct{}

type txn struct {
	store       *Store
	ctx         context.Context
	roster      []userDoc
	rosterRead  bool
	rosterDirty bool
	data        map[int64]*userData
	dirty       map[int64]bool
}

// RunInTx runs fn holding the store lock. Changes become visible to the
// backend only when fn returns nil.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if t, ok := ctx.Value(txKey{}).(*txn); ok && t.store == s {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &txn{store: s, ctx: ctx, data: make(map[int64]*userData), dirty: make(map[int64]bool)}
	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		return err
	}
	return t.commit()
}

// do runs fn against the transaction bound to ctx, opening one if needed.
func (s *Store) do(ctx context.Context, fn func(t *txn) error) error {
	return s.RunInTx(ctx, func(ctx context.Context) error {
		return fn(ctx.Value(txKey{}).(*txn))
	})
}

// seq snapshots the result of collect and yields it outside the lock.
func seq[T any](s *Store, ctx context.Context, collect func(t *txn) ([]T, error)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var items []T
		err := s.do(ctx, func(t *txn) error {
			var err error
			items, err = collect(t)
			return err
		})
		if err != nil {
			var zero T
			yield(zero, err)
			return
		}
		for _, v := range items {
			if !yield(v, nil) {
				return
			}
		}
	}
}

func (t *txn) load(key string, v any) (bool, error) {
	raw, err := t.store.backend.Get(t.ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (t *txn) users() ([]userDoc, error) {
	if !t.rosterRead {
		if _, err := t.load(rosterKey, &t.roster); err != nil {
			return nil, err
		}
		t.rosterRead = true
	}
	return t.roster, nil
}

func (t *txn) setUsers(users []userDoc) {
	t.roster = users
	t.rosterRead = true
	t.rosterDirty = true
}

// userData returns the mutable document of userID. Unknown users fail with
// models.ErrNotFound.
func (t *txn) userData(userID int64) (*userData, error) {
	if d, ok := t.data[userID]; ok {
		return d, nil
	}
	users, err := t.users()
	if err != nil {
		return nil, err
	}
	if indexOf(users, func(u userDoc) bool { return u.ID == userID }) < 0 {
		return nil, fmt.Errorf("user %d: %w", userID, models.ErrNotFound)
	}
	d := &userData{}
	if _, err := t.load(userDataKey(userID), d); err != nil {
		return nil, err
	}
	t.data[userID] = d
	return d, nil
}

func (t *txn) touch(userID int64) {
	t.dirty[userID] = true
}

func (t *txn) commit() error {
	entries := make(map[string][]byte)
	if t.rosterDirty {
		raw, err := json.Marshal(t.roster)
		if err != nil {
			return fmt.Errorf("failed to encode users: %w", err)
		}
		entries[rosterKey] = raw
	}
	for id := range t.dirty {
		raw, err := json.Marshal(t.data[id])
		if err != nil {
			return fmt.Errorf("failed to encode user data: %w", err)
		}
		entries[userDataKey(id)] = raw
	}
	if len(entries) == 0 {
		return nil
	}
	if err := t.store.backend.Put(t.ctx, entries); err != nil {
		return fmt.Errorf("failed to save documents: %w", err)
	}
	return nil
}

func indexOf[T any](items []T, match func(T) bool) int {
	for i, v := range items {
		if match(v) {
			return i
		}
	}
	return -1
}

func notFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, models.ErrNotFound)
}

func duplicateName(kind, name string) error {
	return fmt.Errorf("%s %q: %w", kind, name, models.ErrDuplicateName)
}
