package auth

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the SQL backed user store
type Users interface {
	UserStore

	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	UpdateProfileTx(ctx context.Context, tx bun.IDB, id uuid.UUID, edit ProfileEdit) (*User, error)
}

type users struct {
	repo repository.Repository[*User]
	db   *bun.DB
}

var _ Users = (*users)(nil)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		repo: repo,
		db:   db,
	}
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	prepareUserDefaults(user)

	created, err := a.repo.CreateTx(ctx, tx, user)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, NewEmailExistsError(err, user.Email)
		}
		return nil, err
	}

	return created, nil
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.GetByIDTx(ctx, a.db, id)
}

func (a *users) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	record, err := a.repo.GetByIDTx(ctx, tx, id.String())
	if err != nil {
		if isNotFound(err) {
			return nil, NewUserNotFoundError(map[string]any{"id": id.String()})
		}
		return nil, err
	}
	return record, nil
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	email = NormalizeEmail(email)

	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if isNotFound(err) {
			return nil, NewUserNotFoundError(map[string]any{"email": email})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) UpdateProfile(ctx context.Context, id uuid.UUID, edit ProfileEdit) (*User, error) {
	var updated *User
	err := a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		updated, err = a.UpdateProfileTx(ctx, tx, id, edit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateProfileTx only touches the editable columns so a partial model
// never overwrites email, hash or tier.
func (a *users) UpdateProfileTx(ctx context.Context, tx bun.IDB, id uuid.UUID, edit ProfileEdit) (*User, error) {
	res, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("first_name = ?", edit.FirstName).
		Set("last_name = ?", edit.LastName).
		Set("phone = ?", edit.Phone).
		Set("city_state = ?", edit.CityState).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id.String()).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, NewUserNotFoundError(map[string]any{"id": id.String()})
	}

	return a.GetByIDTx(ctx, tx, id)
}

func isNotFound(err error) bool {
	return repository.IsRecordNotFound(err) || stderrors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
