package services

import (
	"errors"
	"regexp"
	"strings"

	"github.com/taskmatrix/core/internal/database/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound indicates the user was not found
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists indicates the username is already taken
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrInvalidCredentials indicates invalid login credentials
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPasswordTooShort indicates the password is too short
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	// ErrInvalidInboxAlias indicates the inbox alias has an unusable shape
	ErrInvalidInboxAlias = errors.New("inbox alias must be 1-64 characters of letters, digits, dot, dash or underscore")
	// ErrInboxAliasTaken indicates the inbox alias is already in use
	ErrInboxAliasTaken = errors.New("inbox alias already in use")
)

var inboxAliasPattern = regexp.MustCompile(`^[A-Za-z0-9._\-]{1,64}$`)

// UserService handles user-related business logic
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a new UserService instance
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// CreateUser creates a new user with encrypted password. The inbox alias
// defaults to the lowercased username when empty.
func (s *UserService) CreateUser(username, password, nickname string) (*models.User, error) {
	if len(password) < 6 {
		return nil, ErrPasswordTooShort
	}

	var existingUser models.User
	if err := s.db.Where("username = ?", username).First(&existingUser).Error; err == nil {
		return nil, ErrUserAlreadyExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	alias := strings.ToLower(username)
	if !inboxAliasPattern.MatchString(alias) {
		return nil, ErrInvalidInboxAlias
	}

	newUser := &models.User{
		Username:     username,
		PasswordHash: string(hashedPassword),
		Nickname:     nickname,
		InboxAlias:   alias,
	}

	if err := s.db.Create(newUser).Error; err != nil {
		return nil, err
	}

	return newUser, nil
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(id uint) (*models.User, error) {
	var foundUser models.User
	if err := s.db.First(&foundUser, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &foundUser, nil
}

// GetUserByUsername retrieves a user by username
func (s *UserService) GetUserByUsername(username string) (*models.User, error) {
	var foundUser models.User
	if err := s.db.Where("username = ?", username).First(&foundUser).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &foundUser, nil
}

// ResolveByInboxAlias resolves the user owning an inbox alias. The exact
// (case-sensitive) match is tried first; on a miss, a case-insensitive
// lookup covers senders whose mail client rewrites the recipient casing.
func (s *UserService) ResolveByInboxAlias(alias string) (*models.User, error) {
	if alias == "" {
		return nil, ErrUserNotFound
	}

	var foundUser models.User
	err := s.db.Where("inbox_alias = ?", alias).First(&foundUser).Error
	if err == nil {
		return &foundUser, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = s.db.Where("LOWER(inbox_alias) = ?", strings.ToLower(alias)).First(&foundUser).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &foundUser, nil
}

// SetInboxAlias updates a user's inbox alias after validating shape and
// uniqueness (case-insensitive, since fallback lookup would otherwise make
// two aliases collide).
func (s *UserService) SetInboxAlias(id uint, alias string) (*models.User, error) {
	alias = strings.TrimSpace(alias)
	if !inboxAliasPattern.MatchString(alias) {
		return nil, ErrInvalidInboxAlias
	}

	foundUser, err := s.GetUserByID(id)
	if err != nil {
		return nil, err
	}

	var other models.User
	err = s.db.Where("LOWER(inbox_alias) = ? AND id <> ?", strings.ToLower(alias), id).First(&other).Error
	if err == nil {
		return nil, ErrInboxAliasTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	foundUser.InboxAlias = alias
	if err := s.db.Save(foundUser).Error; err != nil {
		return nil, err
	}
	return foundUser, nil
}

// UpdateUser updates user profile information
func (s *UserService) UpdateUser(id uint, nickname string) (*models.User, error) {
	foundUser, err := s.GetUserByID(id)
	if err != nil {
		return nil, err
	}

	foundUser.Nickname = nickname
	if err := s.db.Save(foundUser).Error; err != nil {
		return nil, err
	}
	return foundUser, nil
}

// DeleteUser deletes a user and their data
func (s *UserService) DeleteUser(id uint) error {
	foundUser, err := s.GetUserByID(id)
	if err != nil {
		return err
	}

	s.db.Where("user_id = ?", id).Delete(&models.Task{})
	s.db.Where("user_id = ?", id).Delete(&models.Category{})
	s.db.Where("user_id = ?", id).Delete(&models.PushSubscription{})

	return s.db.Delete(foundUser).Error
}

// ListUsers returns all users
func (s *UserService) ListUsers() ([]models.User, error) {
	var users []models.User
	if err := s.db.Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// VerifyPassword verifies a user's credentials and returns the user
func (s *UserService) VerifyPassword(username, password string) (*models.User, error) {
	foundUser, err := s.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(foundUser.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return foundUser, nil
}

// ChangePassword changes a user's password after verifying the old one
func (s *UserService) ChangePassword(id uint, oldPassword, newPassword string) error {
	if len(newPassword) < 6 {
		return ErrPasswordTooShort
	}

	foundUser, err := s.GetUserByID(id)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(foundUser.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	foundUser.PasswordHash = string(hashedPassword)
	return s.db.Save(foundUser).Error
}

// ResetPassword sets a new password without verifying the old one (CLI use)
func (s *UserService) ResetPassword(username, newPassword string) error {
	if len(newPassword) < 6 {
		return ErrPasswordTooShort
	}

	foundUser, err := s.GetUserByUsername(username)
	if err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	foundUser.PasswordHash = string(hashedPassword)
	return s.db.Save(foundUser).Error
}
