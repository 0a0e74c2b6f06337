package user

import (
	"context"
	"testing"

	"github.com/gts-trade-solutions/leadiq-sub000/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUserRepo struct{ mock.Mock }

func (m *MockUserRepo) Create(ctx context.Context, name, email, passwordHash, role string) (*User, error) {
	args := m.Called(ctx, name, email, passwordHash, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUserRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUserRepo) FindByID(ctx context.Context, id int) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func TestRegisterNormalizesEmail(t *testing.T) {
	repo := new(MockUserRepo)
	svc := NewService(repo, "test-secret")

	repo.On("EmailExists", mock.Anything, "new@corp.com").Return(false, nil)
	repo.On("Create", mock.Anything, "New User", "new@corp.com", mock.Anything, "member").
		Return(&User{ID: 1, Name: "New User", Email: "new@corp.com", Role: "member"}, nil)

	user, access, refresh, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "New User",
		Email:    "  New@Corp.com ",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, "new@corp.com", user.Email)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)
	repo.AssertExpectations(t)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := new(MockUserRepo)
	svc := NewService(repo, "test-secret")

	repo.On("EmailExists", mock.Anything, "taken@corp.com").Return(true, nil)

	_, _, _, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Someone",
		Email:    "taken@corp.com",
		Password: "password123",
	})
	assert.ErrorIs(t, err, ErrEmailExists)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := new(MockUserRepo)
	svc := NewService(repo, "test-secret")

	hash, err := auth.HashPassword("right-password")
	require.NoError(t, err)

	repo.On("FindByEmail", mock.Anything, "user@corp.com").
		Return(&User{ID: 1, Email: "user@corp.com", PasswordHash: hash, Role: "member"}, nil)

	_, _, _, err = svc.Login(context.Background(), LoginRequest{
		Email:    "user@corp.com",
		Password: "wrong-password",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	repo := new(MockUserRepo)
	svc := NewService(repo, "test-secret")

	repo.On("FindByEmail", mock.Anything, "ghost@corp.com").Return(nil, ErrUserNotFound)

	_, _, _, err := svc.Login(context.Background(), LoginRequest{
		Email:    "ghost@corp.com",
		Password: "whatever",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginSuccess(t *testing.T) {
	repo := new(MockUserRepo)
	svc := NewService(repo, "test-secret")

	hash, err := auth.HashPassword("right-password")
	require.NoError(t, err)

	repo.On("FindByEmail", mock.Anything, "user@corp.com").
		Return(&User{ID: 1, Email: "user@corp.com", PasswordHash: hash, Role: "member"}, nil)

	user, access, _, err := svc.Login(context.Background(), LoginRequest{
		Email:    "User@Corp.com",
		Password: "right-password",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, user.ID)

	claims, err := auth.ValidateToken(access, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, 1, claims.UserID)
}
