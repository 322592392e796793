package repo

import (
	"context"
	"errors"

	"github.com/codecraft-io/codecraft/internal/modules/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetBySubject(ctx context.Context, subject string) (*model.User, error)
	UpsertBySubject(ctx context.Context, u *model.User) (*model.User, error)
}

type userRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) UserRepo {
	return &userRepo{db: db}
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) GetBySubject(ctx context.Context, subject string) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Where("subject = ?", subject).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpsertBySubject creates the user on first sign-in and refreshes profile
// fields on subsequent syncs. The subject is the identity provider's stable
// user id.
func (r *userRepo) UpsertBySubject(ctx context.Context, u *model.User) (*model.User, error) {
	var existing model.User
	err := r.db.WithContext(ctx).Where("subject = ?", u.Subject).First(&existing).Error

	if err == nil {
		updates := map[string]interface{}{
			"email":      u.Email,
			"first_name": u.FirstName,
			"last_name":  u.LastName,
			"avatar_url": u.AvatarURL,
		}
		if err := r.db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		// Handle race condition: another request might have created the user
		var raced model.User
		if getErr := r.db.WithContext(ctx).
			Where("subject = ?", u.Subject).
			First(&raced).Error; getErr == nil {
			return &raced, nil
		}
		return nil, err
	}

	return u, nil
}
