// Package account handles signup, login and the user profile, including the
// cascade that runs when a profile is deleted.
package account

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/trznica/internal/apperr"
	"github.com/erazemk/trznica/internal/auth"
	"github.com/erazemk/trznica/internal/images"
	"github.com/erazemk/trznica/internal/model"
	"github.com/erazemk/trznica/internal/store"
)

// Paging defaults for user listings.
const (
	DefaultPage  = 1
	DefaultLimit = 5
)

// Caller-facing messages.
const (
	MsgMissingCredentials = "Please provide an email and password."
	MsgInvalidCredentials = "Invalid credentials."
	MsgSignupEmailTaken   = "Email address is already in use."
	MsgUpdateEmailTaken   = "Email already in use."
	MsgInvalidUserID      = "You must supply a valid user id."
	MsgUserNotFound       = "No user found with that id."
	MsgUnauthorized       = "Unauthorized."
	MsgInvalidToken       = "Authentication invalid."
	MsgInvalidImage       = "Images must be JPEG or PNG files."
	MsgProfileDeleted     = "Profile got deleted."
)

// ImageStore keeps avatar pictures.
type ImageStore interface {
	Store(ctx context.Context, u images.Upload) (string, error)
	Release(path string) error
}

// Service implements the account operations.
type Service struct {
	db     *sql.DB
	tokens *auth.Issuer
	images ImageStore
	log    *zap.Logger
	cost   int
}

// New returns an account service.
func New(db *sql.DB, tokens *auth.Issuer, images ImageStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, tokens: tokens, images: images, log: log, cost: bcrypt.DefaultCost}
}

// Signup creates a user and returns a token for them. avatar may be nil.
func (s *Service) Signup(ctx context.Context, in model.SignupInput, avatar *images.Upload) (string, *model.User, error) {
	if err := model.ValidateSignup(in); err != nil {
		return "", nil, err
	}

	existing, err := store.GetUserByEmail(ctx, s.db, in.Email)
	if err != nil {
		return "", nil, apperr.Internal("checking email", err)
	}
	if existing != nil {
		return "", nil, apperr.Validation(MsgSignupEmailTaken)
	}

	u := &model.User{Name: in.Name, Email: in.Email}
	if err := s.hashAndSetPassword(u, in.Password); err != nil {
		return "", nil, err
	}

	if avatar != nil {
		if u.ImageURL, err = s.storeAvatar(ctx, *avatar); err != nil {
			return "", nil, err
		}
	}

	created, err := store.CreateUser(ctx, s.db, u.Name, u.Email, u.PasswordHash, u.ImageURL)
	if err != nil {
		s.release(u.ImageURL)
		if errors.Is(err, store.ErrEmailTaken) {
			return "", nil, apperr.Validation(MsgSignupEmailTaken)
		}
		return "", nil, apperr.Internal("creating user", err)
	}

	token, err := s.tokens.Issue(created.ID)
	if err != nil {
		return "", nil, apperr.Internal("issuing token", err)
	}

	s.log.Info("user signed up", zap.String("user_id", created.ID))
	return token, created, nil
}

// Login checks the credentials and returns a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", apperr.Validation(MsgMissingCredentials)
	}

	u, err := store.GetUserByEmail(ctx, s.db, email)
	if err != nil {
		return "", apperr.Internal("looking up user", err)
	}
	if u == nil {
		return "", apperr.Validation(MsgInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", apperr.Validation(MsgInvalidCredentials)
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return "", apperr.Internal("issuing token", err)
	}
	return token, nil
}

// Authenticate resolves a bearer token to its user. Revoked tokens and
// tokens of deleted users are rejected.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.User, *auth.Claims, error) {
	if token == "" {
		return nil, nil, apperr.Unauthenticated(MsgUnauthorized)
	}

	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, nil, apperr.Unauthenticated(MsgInvalidToken)
	}

	revoked, err := store.IsTokenRevoked(ctx, s.db, claims.ID)
	if err != nil {
		return nil, nil, apperr.Internal("checking revocation", err)
	}
	if revoked {
		return nil, nil, apperr.Unauthenticated(MsgInvalidToken)
	}

	u, err := store.GetUser(ctx, s.db, claims.UserID)
	if err != nil {
		return nil, nil, apperr.Internal("loading user", err)
	}
	if u == nil {
		return nil, nil, apperr.Unauthenticated(MsgInvalidToken)
	}
	return u, claims, nil
}

// Logout revokes the token described by claims.
func (s *Service) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ID == "" {
		return apperr.Unauthenticated(MsgUnauthorized)
	}
	exp := time.Now().Add(s.tokens.TTL)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	if err := store.RevokeToken(ctx, s.db, claims.ID, exp); err != nil {
		return apperr.Internal("revoking token", err)
	}
	return nil
}

// UpdateProfile applies u to user. A new avatar replaces the old one.
func (s *Service) UpdateProfile(ctx context.Context, user *model.User, u model.ProfileUpdate, avatar *images.Upload) (*model.User, error) {
	if user == nil {
		return nil, apperr.Unauthenticated(MsgUnauthorized)
	}
	if err := model.ValidateProfileUpdate(u, avatar != nil); err != nil {
		return nil, err
	}

	if u.Email != "" && u.Email != user.Email {
		existing, err := store.GetUserByEmail(ctx, s.db, u.Email)
		if err != nil {
			return nil, apperr.Internal("checking email", err)
		}
		if existing != nil {
			return nil, apperr.Validation(MsgUpdateEmailTaken)
		}
	}

	next := *user
	if u.Name != "" {
		next.Name = u.Name
	}
	if u.Email != "" {
		next.Email = u.Email
	}
	if u.Password != "" {
		if err := s.hashAndSetPassword(&next, u.Password); err != nil {
			return nil, err
		}
	}

	var old string
	if avatar != nil {
		p, err := s.storeAvatar(ctx, *avatar)
		if err != nil {
			return nil, err
		}
		old, next.ImageURL = user.ImageURL, p
	}

	if err := store.UpdateUser(ctx, s.db, &next); err != nil {
		if avatar != nil {
			s.release(next.ImageURL)
		}
		if errors.Is(err, store.ErrEmailTaken) {
			return nil, apperr.Validation(MsgUpdateEmailTaken)
		}
		return nil, apperr.Internal("updating user", err)
	}
	s.release(old)

	*user = next
	return user, nil
}

// DeleteProfile removes user via DeleteUserCascade.
func (s *Service) DeleteProfile(ctx context.Context, user *model.User) error {
	if user == nil {
		return apperr.Unauthenticated(MsgUnauthorized)
	}
	return s.DeleteUserCascade(ctx, user.ID)
}

// DeleteUserCascade deletes a user and their unsold items, then releases
// every image those rows referenced. Sold items and transactions remain.
func (s *Service) DeleteUserCascade(ctx context.Context, userID string) error {
	released, err := store.DeleteUserCascade(ctx, s.db, userID)
	if err != nil {
		return apperr.Internal("deleting user", err)
	}
	for _, p := range released {
		s.release(p)
	}
	s.log.Info("user deleted", zap.String("user_id", userID), zap.Int("released_images", len(released)))
	return nil
}

// GetUser returns a user by id.
func (s *Service) GetUser(ctx context.Context, id string) (*model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.NotFound(MsgInvalidUserID)
	}
	u, err := store.GetUser(ctx, s.db, id)
	if err != nil {
		return nil, apperr.Internal("getting user", err)
	}
	if u == nil {
		return nil, apperr.NotFound(MsgUserNotFound)
	}
	return u, nil
}

// ListUsers searches users by name. Bad paging values fall back to defaults.
func (s *Service) ListUsers(ctx context.Context, q, page, limit string) (*model.UserPage, error) {
	p := positiveOr(page, DefaultPage)
	l := positiveOr(limit, DefaultLimit)

	users, err := store.ListUsers(ctx, s.db, q, (p-1)*l, l)
	if err != nil {
		return nil, apperr.Internal("listing users", err)
	}
	if users == nil {
		users = []model.User{}
	}
	return &model.UserPage{Users: users, Page: p, Limit: l}, nil
}

// hashAndSetPassword stores the bcrypt hash of plaintext on u. The
// plaintext is never kept.
func (s *Service) hashAndSetPassword(u *model.User, plaintext string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), s.cost)
	if err != nil {
		return apperr.Internal("hashing password", err)
	}
	u.PasswordHash = string(hash)
	return nil
}

func (s *Service) storeAvatar(ctx context.Context, u images.Upload) (string, error) {
	p, err := s.images.Store(ctx, u)
	if errors.Is(err, images.ErrInvalidImage) {
		return "", apperr.Validation(MsgInvalidImage)
	}
	if err != nil {
		return "", apperr.Internal("storing avatar", err)
	}
	return p, nil
}

func (s *Service) release(p string) {
	if p == "" || s.images == nil {
		return
	}
	if err := s.images.Release(p); err != nil {
		s.log.Warn("releasing image", zap.String("path", p), zap.Error(err))
	}
}

func positiveOr(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}
