package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/areebaatariq/DiabeVision/internal/domain/entity"
	repo "github.com/areebaatariq/DiabeVision/internal/domain/repository"
	"github.com/areebaatariq/DiabeVision/pkg/helpers"
	"github.com/areebaatariq/DiabeVision/pkg/mailer"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
)

// UserService handles registration, login, and token issuance.
type UserService struct {
	Repo        repo.UserRepository
	JWT         *helpers.JWTManager
	Pub         *helpers.RabbitPublisher
	Logger      *logrus.Logger
	MailEnabled bool
}

func NewUserService(r repo.UserRepository, jwt *helpers.JWTManager, pub *helpers.RabbitPublisher, logger *logrus.Logger, mailEnabled bool) *UserService {
	return &UserService{Repo: r, JWT: jwt, Pub: pub, Logger: logger, MailEnabled: mailEnabled}
}

// Register creates a clinician account and issues a bearer token. Emails are
// stored lowercased and must be unique.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*entity.User, string, time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if _, err := s.Repo.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, ErrEmailTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, "", time.Time{}, err
	}

	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	u := &entity.User{
		Email:    email,
		Password: hash,
		Name:     name,
		Role:     entity.RoleClinician,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, "", time.Time{}, ErrEmailTaken
		}
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.JWT.GenerateToken(u.ID, u.Email)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	s.sendWelcome(ctx, u)
	return u, token, exp, nil
}

// Login validates credentials and issues a bearer token.
func (s *UserService) Login(ctx context.Context, email, password string) (*entity.User, string, time.Time, error) {
	u, err := s.Repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil || u == nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if !helpers.CheckPassword(u.Password, password) {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	token, exp, err := s.JWT.GenerateToken(u.ID, u.Email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return u, token, exp, nil
}

// GetProfile returns the account for a verified caller identity.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// sendWelcome enqueues the welcome email, best-effort.
func (s *UserService) sendWelcome(ctx context.Context, u *entity.User) {
	if s.Pub == nil || !s.MailEnabled {
		return
	}
	if err := s.Pub.PublishJSON(ctx, mailer.WelcomeJob(u.Email, u.Name)); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("welcome email enqueue failed")
	}
}
