package service

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"supportdesk/internal/models"
)

type mockUserRepo struct {
	byEmail   map[string]*models.User
	created   []*models.User
	passwords map[string]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		byEmail:   make(map[string]*models.User),
		passwords: make(map[string]string),
	}
}

func (m *mockUserRepo) CreateUser(user *models.User) error {
	user.ID = "user-1"
	m.byEmail[user.Email] = user
	m.created = append(m.created, user)
	return nil
}

func (m *mockUserRepo) GetUserByID(id string) (*models.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) GetUserByEmail(email string) (*models.User, error) {
	return m.byEmail[email], nil
}

func (m *mockUserRepo) GetAllUsers() ([]*models.User, error) { return nil, nil }
func (m *mockUserRepo) UpdateUser(*models.User) error        { return nil }
func (m *mockUserRepo) UpdatePassword(id, passwordHash string) error {
	m.passwords[id] = passwordHash
	return nil
}
func (m *mockUserRepo) DeleteUser(string) error { return nil }

func TestRegisterAndLogin(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewAuthService(repo, zap.NewNop())

	user, err := svc.Register("alice", "  Alice@Example.com ", "s3cret", "")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email, "email is normalized")
	require.Equal(t, "user", user.Role, "empty role defaults to user")
	require.NotEqual(t, "s3cret", user.PasswordHash, "password is never stored in the clear")

	token, logged, err := svc.Login("alice@example.com", "s3cret")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, user.ID, logged.ID)

	claims := &models.Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return GetJWTSecret(), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, "alice@example.com", claims.Email)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewAuthService(repo, zap.NewNop())

	_, err := svc.Register("alice", "alice@example.com", "s3cret", "user")
	require.NoError(t, err)

	_, err = svc.Register("alice2", "alice@example.com", "other", "user")
	require.ErrorIs(t, err, ErrUserAlreadyExists)
	require.Len(t, repo.created, 1)
}

func TestLoginFailures(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewAuthService(repo, zap.NewNop())

	_, _, err := svc.Login("nobody@example.com", "whatever")
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.Register("alice", "alice@example.com", "s3cret", "user")
	require.NoError(t, err)

	_, _, err = svc.Login("alice@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPasswordResetRoundTrip(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewAuthService(repo, zap.NewNop())

	user, err := svc.Register("alice", "alice@example.com", "s3cret", "user")
	require.NoError(t, err)

	_, err = svc.ForgetPassword("missing@example.com")
	require.ErrorIs(t, err, ErrUserNotFound)

	resetToken, err := svc.ForgetPassword("alice@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, resetToken)

	require.NoError(t, svc.ResetPassword(resetToken, "newpass"))

	hash, ok := repo.passwords[user.ID]
	require.True(t, ok)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("newpass")))
}

func TestResetPasswordRejectsGarbageToken(t *testing.T) {
	svc := NewAuthService(newMockUserRepo(), zap.NewNop())

	err := svc.ResetPassword("not-a-token", "newpass")
	require.ErrorIs(t, err, ErrInvalidToken)
}
