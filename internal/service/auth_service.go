package service

import (
	"errors"
	"log/slog"

	"github.com/yourorg/storefront/internal/domain"
	"github.com/yourorg/storefront/internal/security/auth"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles registration, login and password changes
type AuthService struct {
	userRepo     domain.UserRepository
	tokenManager *auth.TokenManager
	logger       *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo domain.UserRepository,
	tokenManager *auth.TokenManager,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthService{
		userRepo:     userRepo,
		tokenManager: tokenManager,
		logger:       logger,
	}
}

// LoginResult is the token payload returned on successful login
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"` // seconds
}

// Register creates a new user account. The username conflict is checked
// before the email conflict, so a request clashing on both reports the
// username. The returned user carries the password hash; handlers project
// it out before responding.
func (s *AuthService) Register(username, email, password, fullName string) (*domain.User, error) {
	if username == "" || email == "" || password == "" {
		return nil, errors.New("username, email, and password are required")
	}

	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	if _, err := s.userRepo.GetByUsername(username); err == nil {
		return nil, domain.ErrUsernameTaken
	}
	if _, err := s.userRepo.GetByEmail(email); err == nil {
		return nil, domain.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, errors.New("failed to register user")
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		FullName:     fullName,
		Disabled:     false,
	}

	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) || errors.Is(err, domain.ErrEmailTaken) {
			return nil, err
		}
		s.logger.Error("failed to create user", slog.String("error", err.Error()))
		return nil, errors.New("failed to register user")
	}

	s.logger.Info("user registered", slog.String("username", user.Username))
	return user, nil
}

// Login authenticates a user and issues a bearer token. Unknown usernames
// and wrong passwords both come back as ErrInvalidCredentials so responses
// cannot be used to enumerate accounts.
func (s *AuthService) Login(username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		s.logger.Info("login attempt with unknown username", slog.String("username", username))
		return nil, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.String("username", username))
		return nil, domain.ErrInvalidCredentials
	}

	if user.Disabled {
		return nil, domain.ErrAccountDisabled
	}

	token, err := s.tokenManager.Issue(user.Username)
	if err != nil {
		s.logger.Error("failed to issue token",
			slog.String("username", user.Username),
			slog.String("error", err.Error()),
		)
		return nil, errors.New("failed to issue token")
	}

	s.logger.Info("user logged in", slog.String("username", user.Username))

	return &LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.tokenManager.TTL().Seconds()),
	}, nil
}

// ChangePassword changes a user's password after verifying the current one
func (s *AuthService) ChangePassword(userID int64, oldPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return errors.New("new password must be at least 8 characters")
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return domain.ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return errors.New("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash new password", slog.String("error", err.Error()))
		return errors.New("failed to change password")
	}

	user.PasswordHash = string(hash)
	if err := s.userRepo.Update(user); err != nil {
		s.logger.Error("failed to update user password", slog.String("error", err.Error()))
		return errors.New("failed to change password")
	}

	s.logger.Info("user changed password", slog.Int64("user_id", userID))
	return nil
}
