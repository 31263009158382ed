package account

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/trznica/internal/apperr"
	"github.com/erazemk/trznica/internal/auth"
	"github.com/erazemk/trznica/internal/db"
	"github.com/erazemk/trznica/internal/images"
	"github.com/erazemk/trznica/internal/model"
	"github.com/erazemk/trznica/internal/store"
)

type memImages struct {
	mu       sync.Mutex
	n        int
	released []string
}

func (m *memImages) Store(_ context.Context, u images.Upload) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.Filename == "bad" {
		return "", images.ErrInvalidImage
	}
	m.n++
	return fmt.Sprintf("/images/avatar-%d.jpg", m.n), nil
}

func (m *memImages) Release(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = append(m.released, p)
	return nil
}

func setup(t *testing.T) (*Service, *sql.DB, *memImages) {
	t.Helper()
	database := db.NewTestDB(t)
	imgs := &memImages{}
	svc := New(database, auth.NewIssuer("test-secret", 0), imgs, zap.NewNop())
	svc.cost = bcrypt.MinCost
	return svc, database, imgs
}

func signup(name, email string) model.SignupInput {
	return model.SignupInput{Name: name, Email: email, Password: "Secret1", ConfirmPassword: "Secret1"}
}

func kindIs(t *testing.T, err error, kind apperr.Kind, msg string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperr.KindOf(err), "error: %v", err)
	if msg != "" {
		assert.Equal(t, msg, apperr.Message(err))
	}
}

func TestSignupAndLogin(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	token, user, err := svc.Signup(ctx, signup("Ana", "ana@example.com"), &images.Upload{Filename: "me.png"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "/images/avatar-1.jpg", user.ImageURL)
	assert.NotEqual(t, "Secret1", user.PasswordHash)

	authed, claims, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)
	assert.Equal(t, user.ID, claims.UserID)

	login, err := svc.Login(ctx, "ana@example.com", "Secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, login)

	_, err = svc.Login(ctx, "ana@example.com", "Wrong1")
	kindIs(t, err, apperr.KindValidation, MsgInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "Secret1")
	kindIs(t, err, apperr.KindValidation, MsgInvalidCredentials)
	_, err = svc.Login(ctx, "", "")
	kindIs(t, err, apperr.KindValidation, MsgMissingCredentials)
}

func TestSignupRejects(t *testing.T) {
	svc, _, imgs := setup(t)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, signup("Ana", "ana@example.com"), nil)
	require.NoError(t, err)

	_, _, err = svc.Signup(ctx, signup("Ana", "ana@example.com"), nil)
	kindIs(t, err, apperr.KindValidation, MsgSignupEmailTaken)

	weak := signup("Bor", "bor@example.com")
	weak.Password, weak.ConfirmPassword = "weak", "weak"
	_, _, err = svc.Signup(ctx, weak, nil)
	kindIs(t, err, apperr.KindValidation, "")

	_, _, err = svc.Signup(ctx, signup("Bor", "bor@example.com"), &images.Upload{Filename: "bad"})
	kindIs(t, err, apperr.KindValidation, MsgInvalidImage)
	assert.Empty(t, imgs.released)
}

func TestAuthenticate(t *testing.T) {
	svc, database, _ := setup(t)
	ctx := context.Background()

	_, _, err := svc.Authenticate(ctx, "")
	kindIs(t, err, apperr.KindUnauthenticated, MsgUnauthorized)

	_, _, err = svc.Authenticate(ctx, "garbage")
	kindIs(t, err, apperr.KindUnauthenticated, MsgInvalidToken)

	// Token for a user that does not exist.
	orphan, err := svc.tokens.Issue("6f1c1f4e-0000-4000-8000-000000000000")
	require.NoError(t, err)
	_, _, err = svc.Authenticate(ctx, orphan)
	kindIs(t, err, apperr.KindUnauthenticated, MsgInvalidToken)

	token, _, err := svc.Signup(ctx, signup("Ana", "ana@example.com"), nil)
	require.NoError(t, err)
	_, claims, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, claims))
	_, _, err = svc.Authenticate(ctx, token)
	kindIs(t, err, apperr.KindUnauthenticated, MsgInvalidToken)

	revoked, err := store.IsTokenRevoked(ctx, database, claims.ID)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestUpdateProfile(t *testing.T) {
	svc, _, imgs := setup(t)
	ctx := context.Background()

	_, user, err := svc.Signup(ctx, signup("Ana", "ana@example.com"), &images.Upload{Filename: "a.png"})
	require.NoError(t, err)
	_, _, err = svc.Signup(ctx, signup("Bor", "bor@example.com"), nil)
	require.NoError(t, err)

	_, err = svc.UpdateProfile(ctx, user, model.ProfileUpdate{}, nil)
	kindIs(t, err, apperr.KindValidation, "Nothing to update your profile.")

	_, err = svc.UpdateProfile(ctx, user, model.ProfileUpdate{Email: "bor@example.com"}, nil)
	kindIs(t, err, apperr.KindValidation, MsgUpdateEmailTaken)

	_, err = svc.UpdateProfile(ctx, user, model.ProfileUpdate{Password: "Newpass1", ConfirmPassword: "Other1"}, nil)
	kindIs(t, err, apperr.KindValidation, "Passwords should match.")

	updated, err := svc.UpdateProfile(ctx, user, model.ProfileUpdate{
		Name: "Ana Novak", Password: "Newpass1", ConfirmPassword: "Newpass1",
	}, &images.Upload{Filename: "b.png"})
	require.NoError(t, err)
	assert.Equal(t, "Ana Novak", updated.Name)
	assert.Equal(t, "/images/avatar-2.jpg", updated.ImageURL)
	assert.Equal(t, []string{"/images/avatar-1.jpg"}, imgs.released)

	_, err = svc.Login(ctx, "ana@example.com", "Newpass1")
	assert.NoError(t, err)
	_, err = svc.Login(ctx, "ana@example.com", "Secret1")
	kindIs(t, err, apperr.KindValidation, MsgInvalidCredentials)
}

func TestDeleteProfileCascade(t *testing.T) {
	svc, database, imgs := setup(t)
	ctx := context.Background()

	_, seller, err := svc.Signup(ctx, signup("Ana", "ana@example.com"), &images.Upload{Filename: "a.png"})
	require.NoError(t, err)
	_, buyer, err := svc.Signup(ctx, signup("Bor", "bor@example.com"), nil)
	require.NoError(t, err)

	unsold, err := store.CreateItem(ctx, database, seller.ID, model.ItemInput{
		Name: "Unsold", Group: model.GroupMen, Category: model.CategoryShoes, Price: 10,
	}, []string{"/images/item.jpg"})
	require.NoError(t, err)
	sold, err := store.CreateItem(ctx, database, seller.ID, model.ItemInput{
		Name: "Sold", Group: model.GroupMen, Category: model.CategoryShoes, Price: 10,
	}, nil)
	require.NoError(t, err)
	sale, err := store.CreateSale(ctx, database, sold.ID, buyer.ID)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProfile(ctx, seller))

	assert.ElementsMatch(t, []string{"/images/avatar-1.jpg", "/images/item.jpg"}, imgs.released)

	_, err = svc.GetUser(ctx, seller.ID)
	kindIs(t, err, apperr.KindNotFound, MsgUserNotFound)

	gone, err := store.GetItem(ctx, database, unsold.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := store.GetItem(ctx, database, sold.ID)
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.True(t, kept.Sold)

	tx, err := store.GetTransaction(ctx, database, sale.ID)
	require.NoError(t, err)
	assert.NotNil(t, tx)
}

func TestGetUser(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	_, user, err := svc.Signup(ctx, signup("Ana", "ana@example.com"), nil)
	require.NoError(t, err)

	got, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", got.Email)

	_, err = svc.GetUser(ctx, "42")
	kindIs(t, err, apperr.KindNotFound, MsgInvalidUserID)
}

func TestListUsers(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_, _, err := svc.Signup(ctx, signup(fmt.Sprintf("User %d", i), fmt.Sprintf("u%d@example.com", i)), nil)
		require.NoError(t, err)
	}

	page, err := svc.ListUsers(ctx, "", "x", "-3")
	require.NoError(t, err)
	assert.Equal(t, DefaultPage, page.Page)
	assert.Equal(t, DefaultLimit, page.Limit)
	assert.Len(t, page.Users, 5)

	page, err = svc.ListUsers(ctx, "", "2", "5")
	require.NoError(t, err)
	assert.Len(t, page.Users, 2)

	page, err = svc.ListUsers(ctx, "user 3", "", "")
	require.NoError(t, err)
	assert.Len(t, page.Users, 1)

	page, err = svc.ListUsers(ctx, "", "9", "5")
	require.NoError(t, err)
	assert.NotNil(t, page.Users)
	assert.Empty(t, page.Users)
}
