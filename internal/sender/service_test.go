package sender

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/gts-trade-solutions/leadiq-sub000/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type MockRepo struct{ mock.Mock }
type MockProvider struct{ mock.Mock }

func (m *MockRepo) GetByUser(ctx context.Context, userID int) (*SenderIdentity, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SenderIdentity), args.Error(1)
}

func (m *MockRepo) Upsert(ctx context.Context, userID int, email, identityID string, status Status, changeCount int) (*SenderIdentity, error) {
	args := m.Called(ctx, userID, email, identityID, status, changeCount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SenderIdentity), args.Error(1)
}

func (m *MockRepo) UpdateStatus(ctx context.Context, userID int, status Status) error {
	return m.Called(ctx, userID, status).Error(0)
}

func (m *MockProvider) StartVerification(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) GetStatus(ctx context.Context, identityID, email string) (Status, error) {
	args := m.Called(ctx, identityID, email)
	return args.Get(0).(Status), args.Error(1)
}

func newTestService(limit int) (Service, *MockRepo, *MockProvider) {
	repo := new(MockRepo)
	provider := new(MockProvider)
	return NewService(repo, provider, limit), repo, provider
}

func TestStartVerifyFirstEmailCountsAsFirstChange(t *testing.T) {
	svc, repo, provider := newTestService(2)

	repo.On("GetByUser", mock.Anything, 1).Return(nil, ErrNoIdentity)
	provider.On("StartVerification", mock.Anything, "a@corp.com").Return("vid-1", nil)
	repo.On("Upsert", mock.Anything, 1, "a@corp.com", "vid-1", StatusPending, 1).
		Return(&SenderIdentity{UserID: 1, Email: "a@corp.com", Status: StatusPending, ChangeCount: 1}, nil)

	identity, err := svc.StartVerify(context.Background(), 1, "A@Corp.com")
	assert.NoError(t, err)
	assert.Equal(t, 1, identity.ChangeCount)
	repo.AssertExpectations(t)
}

func TestStartVerifySecondEmailConsumesBudget(t *testing.T) {
	svc, repo, provider := newTestService(2)

	repo.On("GetByUser", mock.Anything, 1).
		Return(&SenderIdentity{UserID: 1, Email: "a@corp.com", Status: StatusVerified, ChangeCount: 1}, nil)
	provider.On("StartVerification", mock.Anything, "b@corp.com").Return("vid-2", nil)
	repo.On("Upsert", mock.Anything, 1, "b@corp.com", "vid-2", StatusPending, 2).
		Return(&SenderIdentity{UserID: 1, Email: "b@corp.com", Status: StatusPending, ChangeCount: 2}, nil)

	identity, err := svc.StartVerify(context.Background(), 1, "b@corp.com")
	assert.NoError(t, err)
	assert.Equal(t, 2, identity.ChangeCount)
}

func TestStartVerifyThirdEmailRejected(t *testing.T) {
	svc, repo, provider := newTestService(2)

	repo.On("GetByUser", mock.Anything, 1).
		Return(&SenderIdentity{UserID: 1, Email: "b@corp.com", Status: StatusVerified, ChangeCount: 2}, nil)

	_, err := svc.StartVerify(context.Background(), 1, "c@corp.com")

	var limitErr *ChangeLimitExceededError
	assert.True(t, errors.As(err, &limitErr))
	assert.Equal(t, 2, limitErr.Limit)
	assert.Equal(t, 2, limitErr.Used)
	provider.AssertNotCalled(t, "StartVerification", mock.Anything, mock.Anything)
}

func TestStartVerifySameEmailNeverConsumesBudget(t *testing.T) {
	svc, repo, provider := newTestService(2)

	// budget exhausted, but re-verifying the stored address still works
	repo.On("GetByUser", mock.Anything, 1).
		Return(&SenderIdentity{UserID: 1, Email: "b@corp.com", Status: StatusFailed, ChangeCount: 2}, nil)
	provider.On("StartVerification", mock.Anything, "b@corp.com").Return("vid-3", nil)
	repo.On("Upsert", mock.Anything, 1, "b@corp.com", "vid-3", StatusPending, 2).
		Return(&SenderIdentity{UserID: 1, Email: "b@corp.com", Status: StatusPending, ChangeCount: 2}, nil)

	identity, err := svc.StartVerify(context.Background(), 1, "  B@corp.com ")
	assert.NoError(t, err)
	assert.Equal(t, 2, identity.ChangeCount)
}

func TestStartVerifyProviderDown(t *testing.T) {
	svc, repo, provider := newTestService(2)

	repo.On("GetByUser", mock.Anything, 1).Return(nil, ErrNoIdentity)
	provider.On("StartVerification", mock.Anything, "a@corp.com").
		Return("", ErrProviderUnavailable)

	_, err := svc.StartVerify(context.Background(), 1, "a@corp.com")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckStatusWritesBack(t *testing.T) {
	svc, repo, provider := newTestService(2)

	repo.On("GetByUser", mock.Anything, 1).
		Return(&SenderIdentity{UserID: 1, Email: "a@corp.com", IdentityID: "vid-1", Status: StatusPending, ChangeCount: 1}, nil)
	provider.On("GetStatus", mock.Anything, "vid-1", "a@corp.com").Return(StatusVerified, nil)
	repo.On("UpdateStatus", mock.Anything, 1, StatusVerified).Return(nil)

	identity, err := svc.CheckStatus(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, StatusVerified, identity.Status)
	repo.AssertExpectations(t)
}

func TestCheckStatusProviderFailureRecordsError(t *testing.T) {
	svc, repo, provider := newTestService(2)

	repo.On("GetByUser", mock.Anything, 1).
		Return(&SenderIdentity{UserID: 1, Email: "a@corp.com", IdentityID: "vid-1", Status: StatusPending, ChangeCount: 1}, nil)
	provider.On("GetStatus", mock.Anything, "vid-1", "a@corp.com").
		Return(StatusError, ErrProviderUnavailable)
	repo.On("UpdateStatus", mock.Anything, 1, StatusError).Return(nil)

	identity, err := svc.CheckStatus(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, StatusError, identity.Status)
	repo.AssertExpectations(t)
}

func TestCheckStatusNoIdentity(t *testing.T) {
	svc, repo, _ := newTestService(2)

	repo.On("GetByUser", mock.Anything, 1).Return(nil, ErrNoIdentity)

	_, err := svc.CheckStatus(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoIdentity)
}
