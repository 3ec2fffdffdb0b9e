package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ridezon-backend/internal/models"
	"ridezon-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 7 * 24 * time.Hour

// UserService handles signup, login and token verification
type UserService struct {
	users     repository.UserStore
	jwtSecret string
}

// NewUserService creates a new user service
func NewUserService(users repository.UserStore, jwtSecret string) *UserService {
	return &UserService{
		users:     users,
		jwtSecret: jwtSecret,
	}
}

// SignupInput carries the fields required to register
type SignupInput struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Gender   string `json:"gender"`
}

// Signup registers a new user and returns it with a signed token
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*models.User, string, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	switch {
	case len(strings.TrimSpace(in.FullName)) < 2:
		return nil, "", fmt.Errorf("full name must be at least 2 characters: %w", ErrValidation)
	case !strings.Contains(in.Email, "@"):
		return nil, "", fmt.Errorf("invalid email address: %w", ErrValidation)
	case len(in.Password) < 6:
		return nil, "", fmt.Errorf("password must be at least 6 characters: %w", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        in.Email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(in.FullName),
		Phone:        strings.TrimSpace(in.Phone),
		Gender:       in.Gender,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.GenerateJWT(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login verifies credentials and returns the user with a signed token
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrUnauthorized
		}
		return nil, "", err
	}
	if user.PasswordHash == "" {
		return nil, "", fmt.Errorf("account has no password set: %w", ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrUnauthorized
	}

	token, err := s.GenerateJWT(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// GenerateJWT generates a JWT token for a user
func (s *UserService) GenerateJWT(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"id":    user.ID,
		"email": user.Email,
		"exp":   time.Now().Add(tokenTTL).Unix(),
		"iat":   time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateJWT validates a JWT token and returns the user ID
func (s *UserService) ValidateJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}
	userID, ok := claims["id"].(string)
	if !ok {
		return "", fmt.Errorf("id not found in token")
	}
	return userID, nil
}

// Profile retrieves the user's own profile
func (s *UserService) Profile(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// CompleteSignup fills in the profile completion fields and returns a
// fresh token
func (s *UserService) CompleteSignup(ctx context.Context, userID, phone, gender string) (*models.User, string, error) {
	if strings.TrimSpace(phone) == "" {
		return nil, "", fmt.Errorf("phone number is required: %w", ErrValidation)
	}
	if err := s.users.UpdateProfile(ctx, userID, strings.TrimSpace(phone), gender); err != nil {
		return nil, "", err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	token, err := s.GenerateJWT(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// RegisterDeviceToken stores the APNs device token for push delivery
func (s *UserService) RegisterDeviceToken(ctx context.Context, userID, token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("device token is required: %w", ErrValidation)
	}
	return s.users.UpdateDeviceToken(ctx, userID, token)
}
