package service

import (
	"context"
	"errors"

	"github.com/codecraft-io/codecraft/internal/modules/model"
	"github.com/codecraft-io/codecraft/internal/modules/repo"
	"github.com/google/uuid"
)

type UserService interface {
	Sync(ctx context.Context, in SyncUserInput) (*model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetBySubject(ctx context.Context, subject string) (*model.User, error)
}

type userService struct {
	r repo.UserRepo
}

func NewUserService(r repo.UserRepo) UserService {
	return &userService{r: r}
}

type SyncUserInput struct {
	Subject   string `json:"subject"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	AvatarURL string `json:"avatar_url"`
}

// Sync upserts the signed-in user from identity provider claims. Called on
// every sign-in so profile changes propagate.
func (s *userService) Sync(ctx context.Context, in SyncUserInput) (*model.User, error) {
	if in.Subject == "" {
		return nil, errors.New("user subject is empty")
	}
	return s.r.UpsertBySubject(ctx, &model.User{
		Subject:   in.Subject,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		AvatarURL: in.AvatarURL,
	})
}

func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.r.GetByID(ctx, id)
}

func (s *userService) GetBySubject(ctx context.Context, subject string) (*model.User, error) {
	if subject == "" {
		return nil, errors.New("user subject is empty")
	}
	return s.r.GetBySubject(ctx, subject)
}
