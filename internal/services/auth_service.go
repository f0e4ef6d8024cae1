package services

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"resto_backend/internal/models"
	"resto_backend/internal/repositories"
	"resto_backend/pkg/utils"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

const minPasswordLength = 8

// AuthService handles registration, login and principal lookup.
type AuthService interface {
	Register(payload models.RegistrationPayload) (*models.User, error)
	Login(creds models.Credentials) (string, *models.User, error)
	GetUserByID(userID string) (*models.User, error)
}

type authService struct {
	authRepo repositories.AuthRepository
	tx       repositories.TxManager
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(ar repositories.AuthRepository, tx repositories.TxManager) AuthService {
	return &authService{authRepo: ar, tx: tx}
}

func (s *authService) Register(payload models.RegistrationPayload) (*models.User, error) {
	if !utils.IsValidEmail(payload.Email) {
		return nil, fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	if utils.IsEmpty(payload.Name) {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !utils.IsValidPasswordLength(payload.Password, minPasswordLength) {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:           utils.NewID(),
		Email:        payload.Email,
		Name:         payload.Name,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
	}
	err = s.tx.WithinTx(func(executor repositories.SQLExecutor) error {
		_, repoErr := s.authRepo.CreateUser(executor, &user)
		return repoErr
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

func (s *authService) Login(creds models.Credentials) (string, *models.User, error) {
	user, err := s.authRepo.GetUserByEmail(creds.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to fetch user for login: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := utils.GenerateAccessToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	return token, user, nil
}

func (s *authService) GetUserByID(userID string) (*models.User, error) {
	user, err := s.authRepo.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	return user, nil
}
