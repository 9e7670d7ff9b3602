package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"store_service/internal/domain"
)

type AuthResult struct {
	Token  string              `json:"token"`
	UserID int64               `json:"user_id"`
	Role   domain.Role         `json:"role"`
	User   *domain.UserProfile `json:"user"`
}

type UserUseCase interface {
	Register(ctx context.Context, name, email, password string) (*domain.UserProfile, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Logout(ctx context.Context, token string) error
	GetProfile(ctx context.Context, id int64) (*domain.UserProfile, error)
	ListUsers(ctx context.Context, limit, offset int) ([]domain.UserProfile, error)
	// Authenticate resolves a bearer token into the request principal.
	Authenticate(ctx context.Context, token string) (*domain.Principal, error)
}

type userUseCase struct {
	userRepo    domain.UserRepository
	sessionRepo domain.SessionRepository
	sessionTTL  time.Duration
	log         *logrus.Logger
}

func NewUserUseCase(userRepo domain.UserRepository, sessionRepo domain.SessionRepository, sessionTTL time.Duration, logger *logrus.Logger) UserUseCase {
	return &userUseCase{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		sessionTTL:  sessionTTL,
		log:         logger,
	}
}

var emailRegexp = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func isValidEmail(email string) bool {
	return emailRegexp.MatchString(email)
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long: %w", domain.ErrValidation)
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return fmt.Errorf("password must contain both letters and digits: %w", domain.ErrValidation)
	}
	return nil
}

func (uc *userUseCase) Register(ctx context.Context, name, email, password string) (*domain.UserProfile, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	uc.log.Infof("Use Case: Attempting registration for email: %s", email)

	if name == "" {
		return nil, fmt.Errorf("user name cannot be empty: %w", domain.ErrValidation)
	}
	if !isValidEmail(email) {
		uc.log.Warnf("Use Case: Registration failed - invalid email format: %s", email)
		return nil, fmt.Errorf("invalid email format: %w", domain.ErrValidation)
	}
	if err := validatePassword(password); err != nil {
		uc.log.Warnf("Use Case: Registration failed - password validation error: %v", err)
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		uc.log.Errorf("Use Case: Failed to hash password for %s: %v", email, err)
		return nil, fmt.Errorf("internal error processing password: %w", err)
	}

	createdUser, err := uc.userRepo.CreateUser(ctx, &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         domain.RoleClient,
	})
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to create user %s: %v", email, err)
		return nil, err
	}

	uc.log.Infof("Use Case: User registered successfully. ID: %d, Email: %s", createdUser.ID, createdUser.Email)
	return &domain.UserProfile{
		ID:    createdUser.ID,
		Name:  createdUser.Name,
		Email: createdUser.Email,
		Role:  createdUser.Role,
	}, nil
}

func (uc *userUseCase) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	uc.log.Infof("Use Case: Attempting authentication for email: %s", email)

	if !isValidEmail(email) || password == "" {
		return nil, fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)
	}

	user, err := uc.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			uc.log.Warnf("Use Case: Auth failed - user not found: %s", email)
			return nil, fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)
		}
		uc.log.Errorf("Use Case: Error retrieving user %s during auth: %v", email, err)
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			uc.log.Warnf("Use Case: Auth failed - incorrect password for user %s (ID: %d)", email, user.ID)
			return nil, fmt.Errorf("invalid email or password: %w", domain.ErrUnauthorized)
		}
		uc.log.Errorf("Use Case: Error comparing password hash for user %s: %v", email, err)
		return nil, fmt.Errorf("internal error during authentication: %w", err)
	}

	session := &domain.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(uc.sessionTTL),
	}
	if err := uc.sessionRepo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	uc.log.Infof("Use Case: Authentication successful for user %s (ID: %d)", email, user.ID)
	return &AuthResult{
		Token:  session.Token,
		UserID: user.ID,
		Role:   user.Role,
		User: &domain.UserProfile{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Role:  user.Role,
		},
	}, nil
}

func (uc *userUseCase) Logout(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("missing token: %w", domain.ErrUnauthorized)
	}
	return uc.sessionRepo.DeleteSession(ctx, token)
}

func (uc *userUseCase) GetProfile(ctx context.Context, id int64) (*domain.UserProfile, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid user ID: %w", domain.ErrValidation)
	}
	user, err := uc.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.UserProfile{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}, nil
}

func (uc *userUseCase) ListUsers(ctx context.Context, limit, offset int) ([]domain.UserProfile, error) {
	users, err := uc.userRepo.ListUsers(ctx, limit, offset)
	if err != nil {
		uc.log.Errorf("Use Case: Failed to list users: %v", err)
		return nil, err
	}
	profiles := make([]domain.UserProfile, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, domain.UserProfile{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Role:  user.Role,
		})
	}
	return profiles, nil
}

func (uc *userUseCase) Authenticate(ctx context.Context, token string) (*domain.Principal, error) {
	if token == "" {
		return nil, fmt.Errorf("missing token: %w", domain.ErrUnauthorized)
	}
	session, err := uc.sessionRepo.GetSessionByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if session.Expired(time.Now()) {
		uc.log.Debugf("Use Case: Session expired for user %d", session.UserID)
		_ = uc.sessionRepo.DeleteSession(ctx, token)
		return nil, fmt.Errorf("session expired: %w", domain.ErrUnauthorized)
	}
	user, err := uc.userRepo.GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("session user: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	return &domain.Principal{UserID: user.ID, Role: user.Role}, nil
}
