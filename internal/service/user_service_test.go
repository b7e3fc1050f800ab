package service

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/hazmat-api/internal/models"
	appErrors "github.com/noah-isme/hazmat-api/pkg/errors"
)

type mockUserRepo struct {
	users     map[string]*models.User
	createErr error
	auditLogs []*models.AuditLog
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.users == nil {
		m.users = make(map[string]*models.User)
	}
	copy := *user
	m.users[user.Email] = &copy
	return nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func TestUserServiceProvisionWithPassword(t *testing.T) {
	repo := &mockUserRepo{}
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	user, err := svc.Provision(context.Background(), CreateUserRequest{
		Email:      "  Hal@Example.com ",
		FullName:   "Hal HOD",
		Department: "Chemistry",
		Role:       models.RoleHOD,
		Password:   "s3cret-pass",
	})
	require.NoError(t, err)
	assert.Equal(t, "hal@example.com", user.Email)
	assert.True(t, user.Active)

	stored := repo.users["hal@example.com"]
	require.NotNil(t, stored)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret-pass")))

	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserCreate, repo.auditLogs[0].Action)
	assert.NotContains(t, string(repo.auditLogs[0].NewValues), "s3cret-pass")
}

func TestUserServiceProvisionCodeOnlyAccount(t *testing.T) {
	repo := &mockUserRepo{}
	svc := NewUserService(repo, nil, nil)

	user, err := svc.Provision(context.Background(), CreateUserRequest{Email: "sam@example.com", FullName: "Sam", Role: models.RoleUser})
	require.NoError(t, err)
	assert.Empty(t, user.PasswordHash)
}

func TestUserServiceProvisionValidation(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, nil, nil)
	cases := map[string]CreateUserRequest{
		"bad role":       {Email: "x@example.com", FullName: "X", Role: models.UserRole("auditor")},
		"bad email":      {Email: "not-an-email", FullName: "X", Role: models.RoleUser},
		"short password": {Email: "x@example.com", FullName: "X", Role: models.RoleUser, Password: "short"},
		"missing name":   {Email: "x@example.com", Role: models.RoleAdmin},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Provision(context.Background(), req)
			assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
		})
	}
}

func TestUserServiceProvisionStoreFailure(t *testing.T) {
	repo := &mockUserRepo{createErr: errors.New("unique violation")}
	svc := NewUserService(repo, nil, nil)

	_, err := svc.Provision(context.Background(), CreateUserRequest{Email: "x@example.com", FullName: "X", Role: models.RoleUser})
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
	assert.Empty(t, repo.auditLogs)
}
