package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/hazmat-api/internal/compatibility"
)

func mockOpener(t *testing.T) (Opener, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	env := &Env{DB: sqlx.NewDb(db, "sqlmock"), Logger: zap.NewNop()}
	return func(ctx context.Context) (*Env, error) { return env, nil }, mock
}

func TestEvaluateCmd(t *testing.T) {
	cmd := EvaluateCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"3", "5.1", "2"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "SEGREGATE_5M")
	assert.Contains(t, out.String(), "danger")
	assert.Contains(t, out.String(), "5 m")
}

func TestEvaluateCmdIsolation(t *testing.T) {
	cmd := EvaluateCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"1", "8", "100"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "unbounded")
	assert.Contains(t, out.String(), "true")
}

func TestEvaluateCmdRejectsBadInput(t *testing.T) {
	for _, args := range [][]string{{"3", "5.1", "far"}, {"3", "12", "1"}, {"3", "8", "-1"}} {
		cmd := EvaluateCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(args)
		assert.Error(t, cmd.Execute(), args)
	}
}

func TestSeedCmd(t *testing.T) {
	open, mock := mockOpener(t)
	catalog := compatibility.Catalog()

	mock.ExpectBegin()
	for range catalog {
		mock.ExpectExec("INSERT INTO hazard_classes").WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()
	mock.ExpectClose()

	cmd := SeedCmd(open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(nil)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "hazard classes ensured")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedCmdOpenFailure(t *testing.T) {
	cmd := SeedCmd(func(ctx context.Context) (*Env, error) { return nil, errors.New("connect database: refused") })
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(nil)
	assert.EqualError(t, cmd.Execute(), "connect database: refused")
}

func TestUserCreateCmdValidatesRole(t *testing.T) {
	open, mock := mockOpener(t)
	mock.ExpectClose()

	cmd := UserCmd(open)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"create", "--email", "ada@lab.test", "--name", "Ada", "--role", "owner"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid create user payload")
}
