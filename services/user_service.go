package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/flameberry/PrimePatrol/models"
	"github.com/flameberry/PrimePatrol/utils"
)

const minPasswordLength = 6

var validate = validator.New()

// CreateUserInput carries the fields of a new user.
type CreateUserInput struct {
	Name       string
	Email      string
	Password   string
	FirebaseID *string
	IsActive   *bool
	FCMToken   string
	Latitude   *float64
	Longitude  *float64
}

// UpdateUserInput is a partial update; nil fields are left unchanged.
type UpdateUserInput struct {
	Name       *string
	Email      *string
	FirebaseID *string
	IsActive   *bool
	Latitude   *float64
	Longitude  *float64
}

// IssuedToken is a signed access token accepted by the gateway.
type IssuedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UserService manages citizen accounts and the post ids each user authored.
type UserService struct {
	db        *gorm.DB
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewUserService(db *gorm.DB, jwtSecret string, tokenTTL time.Duration) *UserService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &UserService{db: db, jwtSecret: []byte(jwtSecret), tokenTTL: tokenTTL}
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	name := utils.SanitizeText(in.Name)
	if name == "" {
		return nil, invalidf("name is required")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLength {
		return nil, invalidf("password must be at least %d characters", minPasswordLength)
	}
	firebaseID := trimmedOrNil(in.FirebaseID)

	if err := s.ensureUnique(ctx, "", email, firebaseID); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		FirebaseID:   firebaseID,
		FCMToken:     strings.TrimSpace(in.FCMToken),
		PostIDs:      datatypes.JSONSlice[string]{},
		IsActive:     active,
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflictf("a user with this email or firebaseId already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

func (s *UserService) FindAll(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *UserService) FindOne(ctx context.Context, id string) (*models.User, error) {
	if !utils.IsValidID(id) {
		return nil, invalidf("invalid user ID format")
	}
	return s.findBy(ctx, s.db, "id = ?", id)
}

func (s *UserService) FindByFirebaseID(ctx context.Context, firebaseID string) (*models.User, error) {
	if strings.TrimSpace(firebaseID) == "" {
		return nil, invalidf("firebaseId is required")
	}
	return s.findBy(ctx, s.db, "firebase_id = ?", firebaseID)
}

func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) (*models.User, error) {
	if !utils.IsValidID(id) {
		return nil, invalidf("invalid user ID format")
	}
	updates := map[string]interface{}{}
	var email string
	if in.Name != nil {
		name := utils.SanitizeText(*in.Name)
		if name == "" {
			return nil, invalidf("name cannot be empty")
		}
		updates["name"] = name
	}
	if in.Email != nil {
		var err error
		if email, err = normalizeEmail(*in.Email); err != nil {
			return nil, err
		}
		updates["email"] = email
	}
	firebaseID := trimmedOrNil(in.FirebaseID)
	if firebaseID != nil {
		updates["firebase_id"] = *firebaseID
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}
	if in.Latitude != nil {
		updates["latitude"] = *in.Latitude
	}
	if in.Longitude != nil {
		updates["longitude"] = *in.Longitude
	}

	if _, err := s.FindOne(ctx, id); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, id, email, firebaseID); err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, conflictf("a user with this email or firebaseId already exists")
			}
			return nil, fmt.Errorf("update user: %w", err)
		}
	}
	return s.FindOne(ctx, id)
}

// UpdateFCMToken stores the push notification token of the user with the given firebase id.
func (s *UserService) UpdateFCMToken(ctx context.Context, firebaseID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return invalidf("fcmToken is required")
	}
	user, err := s.FindByFirebaseID(ctx, firebaseID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("fcm_token", token).Error; err != nil {
		return fmt.Errorf("update fcm token: %w", err)
	}
	return nil
}

// AddPost records postID on the user. Adding twice is a no-op.
func (s *UserService) AddPost(ctx context.Context, id, postID string) (*models.User, error) {
	if !utils.IsValidID(postID) {
		return nil, invalidf("invalid post ID format")
	}
	return s.mutatePosts(ctx, id, func(posts datatypes.JSONSlice[string]) datatypes.JSONSlice[string] {
		return utils.Union(posts, postID)
	})
}

// RemovePost drops postID from the user. Removing an absent id is a no-op.
func (s *UserService) RemovePost(ctx context.Context, id, postID string) (*models.User, error) {
	if !utils.IsValidID(postID) {
		return nil, invalidf("invalid post ID format")
	}
	return s.mutatePosts(ctx, id, func(posts datatypes.JSONSlice[string]) datatypes.JSONSlice[string] {
		remaining, _ := utils.Without(posts, postID)
		return remaining
	})
}

func (s *UserService) Remove(ctx context.Context, id string) error {
	if !utils.IsValidID(id) {
		return invalidf("invalid user ID format")
	}
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	if res.Error != nil {
		return fmt.Errorf("delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFoundf("user with ID %s not found", id)
	}
	return nil
}

// IssueToken checks credentials and signs an access token for the gateway.
func (s *UserService) IssueToken(ctx context.Context, email, password string) (*IssuedToken, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, invalidf("email and password are required")
	}
	user, err := s.findBy(ctx, s.db, "email = ?", email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, NewError(ErrUnauthorized, "invalid credentials")
		}
		return nil, err
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, NewError(ErrUnauthorized, "invalid credentials")
	}
	if !user.IsActive {
		return nil, NewError(ErrUnauthorized, "user is inactive")
	}

	token, expiresAt, err := utils.GenerateToken(s.jwtSecret, user.ID, user.Email, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &IssuedToken{Token: token, ExpiresAt: expiresAt}, nil
}

func (s *UserService) mutatePosts(ctx context.Context, id string, change func(datatypes.JSONSlice[string]) datatypes.JSONSlice[string]) (*models.User, error) {
	if !utils.IsValidID(id) {
		return nil, invalidf("invalid user ID format")
	}
	var user *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if user, err = s.findBy(ctx, tx, "id = ?", id); err != nil {
			return err
		}
		user.PostIDs = change(user.PostIDs)
		return tx.Model(user).Update("post_ids", user.PostIDs).Error
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) findBy(ctx context.Context, db *gorm.DB, query string, arg string) (*models.User, error) {
	var user models.User
	if err := db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundf("user not found")
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

// ensureUnique reports a conflict when another user already holds email or firebaseID.
func (s *UserService) ensureUnique(ctx context.Context, selfID, email string, firebaseID *string) error {
	check := func(column, value string) error {
		q := s.db.WithContext(ctx).Model(&models.User{}).Where(column+" = ?", value)
		if selfID != "" {
			q = q.Where("id <> ?", selfID)
		}
		var n int64
		if err := q.Count(&n).Error; err != nil {
			return fmt.Errorf("check %s: %w", column, err)
		}
		if n > 0 {
			return conflictf("a user with this %s already exists", strings.ReplaceAll(column, "_id", "Id"))
		}
		return nil
	}
	if email != "" {
		if err := check("email", email); err != nil {
			return err
		}
	}
	if firebaseID != nil {
		if err := check("firebase_id", *firebaseID); err != nil {
			return err
		}
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if err := validate.Var(email, "required,email"); err != nil {
		return "", invalidf("a valid email is required")
	}
	return email, nil
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
