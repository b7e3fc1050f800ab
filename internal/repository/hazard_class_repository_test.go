package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hazmat-api/internal/compatibility"
)

func TestHazardClassRepositoryEnsureCatalog(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewHazardClassRepository(db)

	catalog := compatibility.Catalog()
	mock.ExpectBegin()
	for _, info := range catalog {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO hazard_classes")).
			WithArgs(sqlmock.AnyArg(), string(info.Code), info.Name, info.Description, info.LogoPath, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	written, err := repo.EnsureCatalog(context.Background(), catalog)
	require.NoError(t, err)
	assert.Equal(t, len(catalog), written)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHazardClassRepositoryFindByIDs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewHazardClassRepository(db)

	rows := sqlmock.NewRows([]string{"id", "code", "name", "description", "logo_path", "created_at"}).
		AddRow("hc-21", "2.1", "Flammable Gas", "", "", time.Now()).
		AddRow("hc-3", "3", "Flammable Liquid", "", "", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, code, name, description, logo_path, created_at FROM hazard_classes WHERE id IN (?, ?)")).
		WithArgs("hc-21", "hc-3").
		WillReturnRows(rows)

	classes, err := repo.FindByIDs(context.Background(), []string{"hc-21", "hc-3"})
	require.NoError(t, err)
	require.Len(t, classes, 2)
	assert.Equal(t, compatibility.ClassFlammableGas, classes[0].Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
