// user.go — сервис пользователей. Учётные записи живут в Keycloak,
// локальная таблица users хранит проекцию: запись создаётся или
// обновляется при первом аутентифицированном запросе (upsert по email).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/arturkryukov/fileshare/internal/domain/model"
	"github.com/arturkryukov/fileshare/internal/repository"
)

// UserService — сервис локальных пользователей.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// NewUserService создаёт сервис пользователей.
func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		logger: logger.With(slog.String("component", "user_service")),
	}
}

// Resolve возвращает локального пользователя для claims токена,
// создавая или обновляя запись по email.
func (s *UserService) Resolve(ctx context.Context, email, firstName, lastName string) (*model.User, error) {
	user := &model.User{
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
	}

	if err := s.users.UpsertByEmail(ctx, user); err != nil {
		return nil, fmt.Errorf("регистрация пользователя %s: %w", email, err)
	}

	return user, nil
}

// Get возвращает пользователя по UUID.
func (s *UserService) Get(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: пользователь %s", ErrNotFound, userID)
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	return user, nil
}
