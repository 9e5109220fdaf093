package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/smartbank/internal/models"
)

// findSession locates a session in its owner's document.
func (t *txn) findSession(userID int64, id string) (*userData, int, error) {
	d, err := t.userData(userID)
	if err != nil {
		return nil, -1, err
	}
	return d, indexOf(d.Sessions, func(s models.Session) bool { return s.ID == id }), nil
}

func (s *Store) CreateSession(ctx context.Context, session *models.Session) error {
	return s.do(ctx, func(t *txn) error {
		d, err := t.userData(session.UserID)
		if err != nil {
			return err
		}
		d.Sessions = append(d.Sessions, *session)
		t.touch(session.UserID)
		return nil
	})
}

func (s *Store) FindSession(ctx context.Context, userID int64, id string) (*models.Session, error) {
	var out models.Session
	err := s.do(ctx, func(t *txn) error {
		d, i, err := t.findSession(userID, id)
		if err != nil {
			return err
		}
		if i < 0 {
			return fmt.Errorf("session: %w", models.ErrNotFound)
		}
		out = d.Sessions[i]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) TouchSession(ctx context.Context, userID int64, id string, at time.Time) error {
	return s.do(ctx, func(t *txn) error {
		d, i, err := t.findSession(userID, id)
		if err != nil {
			return err
		}
		if i < 0 {
			return fmt.Errorf("session: %w", models.ErrNotFound)
		}
		d.Sessions[i].LastActivity = at
		t.touch(userID)
		return nil
	})
}

func (s *Store) DeleteSession(ctx context.Context, userID int64, id string) error {
	return s.do(ctx, func(t *txn) error {
		d, i, err := t.findSession(userID, id)
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		if err != nil || i < 0 {
			return err
		}
		d.Sessions = append(d.Sessions[:i], d.Sessions[i+1:]...)
		t.touch(userID)
		return nil
	})
}

func (s *Store) DeleteIdleSessions(ctx context.Context, idleBefore, now time.Time) (int64, error) {
	var removed int64
	err := s.do(ctx, func(t *txn) error {
		users, err := t.users()
		if err != nil {
			return err
		}
		for _, u := range users {
			d, err := t.userData(u.ID)
			if err != nil {
				return err
			}
			kept := d.Sessions[:0]
			for _, sess := range d.Sessions {
				if sess.LastActivity.Before(idleBefore) || !sess.ExpiresAt.After(now) {
					removed++
					continue
				}
				kept = append(kept, sess)
			}
			if len(kept) != len(d.Sessions) {
				d.Sessions = kept
				t.touch(u.ID)
			}
		}
		return nil
	})
	return removed, err
}
