package docstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dan9191/smartbank/internal/models"
)

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.do(ctx, func(t *txn) error {
		users, err := t.users()
		if err != nil {
			return err
		}
		if indexOf(users, func(u userDoc) bool { return strings.EqualFold(u.Email, user.Email) }) >= 0 {
			return fmt.Errorf("email %q: %w", user.Email, models.ErrDuplicateEmail)
		}
		now := s.now()
		user.ID = s.nextID()
		user.CreatedAt = now
		user.UpdatedAt = now
		t.setUsers(append(users, newUserDoc(*user)))
		t.data[user.ID] = &userData{}
		t.touch(user.ID)
		return nil
	})
}

func (s *Store) findUser(ctx context.Context, match func(u userDoc) bool) (*models.User, error) {
	var out models.User
	err := s.do(ctx, func(t *txn) error {
		users, err := t.users()
		if err != nil {
			return err
		}
		i := indexOf(users, match)
		if i < 0 {
			return fmt.Errorf("user: %w", models.ErrNotFound)
		}
		out = users[i].user()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.findUser(ctx, func(u userDoc) bool { return u.ID == id })
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.TrimSpace(email)
	return s.findUser(ctx, func(u userDoc) bool { return strings.EqualFold(u.Email, email) })
}

// LockUserByEmail is FindUserByEmail; the store lock held by RunInTx already
// serializes the caller's read-modify-write.
func (s *Store) LockUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.FindUserByEmail(ctx, email)
}

func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	return s.do(ctx, func(t *txn) error {
		users, err := t.users()
		if err != nil {
			return err
		}
		i := indexOf(users, func(u userDoc) bool { return u.ID == user.ID })
		if i < 0 {
			return notFound("user", user.ID)
		}
		user.Email = users[i].Email
		user.CreatedAt = users[i].CreatedAt
		user.UpdatedAt = s.now()
		users[i] = newUserDoc(*user)
		t.setUsers(users)
		return nil
	})
}
