package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lost-found-backend/internal/models"
	"lost-found-backend/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// SignupInput is the schema of a signup request
type SignupInput struct {
	FirstName string `json:"firstName" form:"firstName"`
	LastName  string `json:"lastName" form:"lastName"`
	Email     string `json:"email" form:"email" validate:"required,email"`
	Password  string `json:"password" form:"password" validate:"required,min=8"`
	Contact   string `json:"contact" form:"contact"`
}

// LoginInput is the schema of a login request
type LoginInput struct {
	Email    string `json:"email" form:"email" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// ProfileInput is the schema of a profile update
type ProfileInput struct {
	FirstName string `json:"firstName" form:"firstName"`
	LastName  string `json:"lastName" form:"lastName"`
	Contact   string `json:"contact" form:"contact"`
}

// UserService handles signup, login, tokens and profiles
type UserService struct {
	userRepo       UserStore
	storage        ObjectStorage
	validate       *validator.Validate
	jwtSecret      string
	jwtExpiry      time.Duration
	maxAvatarBytes int64
	bcryptCost     int
}

// NewUserService creates a new user service
func NewUserService(userRepo UserStore, storage ObjectStorage, jwtSecret string, jwtExpiry time.Duration, maxAvatarBytes int64) *UserService {
	if jwtExpiry <= 0 {
		jwtExpiry = 7 * 24 * time.Hour
	}
	return &UserService{
		userRepo:       userRepo,
		storage:        storage,
		validate:       newValidator(),
		jwtSecret:      jwtSecret,
		jwtExpiry:      jwtExpiry,
		maxAvatarBytes: maxAvatarBytes,
		bcryptCost:     bcrypt.DefaultCost,
	}
}

// GenerateJWT generates a JWT token for a user
func (s *UserService) GenerateJWT(userID string, role models.Role) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    string(role),
		"exp":     time.Now().Add(s.jwtExpiry).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT validates a JWT token and returns the caller it identifies
func (s *UserService) ValidateJWT(tokenString string) (Caller, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		return Caller{}, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return Caller{}, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Caller{}, fmt.Errorf("invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return Caller{}, fmt.Errorf("user_id not found in token")
	}

	role, _ := claims["role"].(string)
	if role == "" {
		role = string(models.RoleStudent)
	}

	return Caller{ID: userID, Role: models.Role(role)}, nil
}

// Authenticate validates a session token and resolves it against the stored
// user, so deleted accounts are rejected and role changes apply immediately.
func (s *UserService) Authenticate(ctx context.Context, tokenString string) (Caller, error) {
	claimed, err := s.ValidateJWT(tokenString)
	if err != nil {
		return Caller{}, fmt.Errorf("%w: %v", ErrAuthRequired, err)
	}

	user, err := s.userRepo.GetByID(ctx, claimed.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Caller{}, fmt.Errorf("%w: user %s no longer exists", ErrAuthRequired, claimed.ID)
		}
		return Caller{}, &PersistenceError{Op: "get user", Err: err}
	}

	return Caller{ID: user.ID, Role: user.Role}, nil
}

// Signup registers a student account and returns it with a session token
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*models.User, string, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Contact = strings.TrimSpace(in.Contact)
	if err := validateStruct(s.validate, in); err != nil {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         models.RoleStudent,
		Contact:      in.Contact,
		CreatedAt:    time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", fmt.Errorf("email already registered: %w", ErrConflict)
		}
		return nil, "", &PersistenceError{Op: "create user", Err: err}
	}

	token, err := s.GenerateJWT(user.ID, user.Role)
	if err != nil {
		return nil, "", err
	}

	log.Info().Str("user_id", user.ID).Msg("User signed up")
	return user, token, nil
}

// Login checks credentials and returns a session token
func (s *UserService) Login(ctx context.Context, in LoginInput) (*models.User, string, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateStruct(s.validate, in); err != nil {
		return nil, "", err
	}

	user, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", &PersistenceError{Op: "get user", Err: err}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.GenerateJWT(user.ID, user.Role)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// GetUser retrieves a user by ID
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	if id == "" {
		return nil, ErrAuthRequired
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Op: "get user", Err: err}
	}
	return user, nil
}

// UpdateProfile updates the caller's name and contact
func (s *UserService) UpdateProfile(ctx context.Context, callerID string, in ProfileInput) (*models.User, error) {
	if callerID == "" {
		return nil, ErrAuthRequired
	}
	err := s.userRepo.UpdateProfile(ctx, callerID,
		strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName), strings.TrimSpace(in.Contact))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Op: "update profile", Err: err}
	}
	return s.GetUser(ctx, callerID)
}

// UploadAvatar stores an image as the caller's avatar and returns its URL
func (s *UserService) UploadAvatar(ctx context.Context, callerID string, file Upload) (string, error) {
	if callerID == "" {
		return "", ErrAuthRequired
	}

	contentType, ok := imageType(file)
	if !ok {
		return "", &ValidationError{Field: "avatar", Message: "must be an image"}
	}

	data, err := readUpload(file, s.maxAvatarBytes)
	if err != nil {
		if errors.Is(err, errTooLarge) {
			return "", &ValidationError{Field: "avatar", Message: "is too large"}
		}
		return "", &ValidationError{Field: "avatar", Message: "could not be read"}
	}

	key := objectKey("avatars", callerID, time.Now(), 0, file.Filename)
	url, err := s.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		return "", &StorageError{Op: "upload avatar", Err: err}
	}

	if err := s.userRepo.UpdateAvatar(ctx, callerID, url); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", &PersistenceError{Op: "update avatar", Err: err}
	}

	log.Info().Str("user_id", callerID).Str("key", key).Msg("Avatar updated")
	return url, nil
}

// ListUsers returns every user (admin only)
func (s *UserService) ListUsers(ctx context.Context, caller Caller) ([]*models.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "list users", Err: err}
	}
	return users, nil
}

// DeleteUser hard-deletes a user and everything they own (admin only)
func (s *UserService) DeleteUser(ctx context.Context, caller Caller, id string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	if caller.ID == id {
		return &ValidationError{Field: "id", Message: "admins cannot delete themselves"}
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return &PersistenceError{Op: "delete user", Err: err}
	}
	log.Info().Str("admin_id", caller.ID).Str("user_id", id).Msg("User deleted")
	return nil
}
