package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hazmat-api/internal/compatibility"
	"github.com/noah-isme/hazmat-api/internal/models"
)

var containerRowColumns = []string{"id", "department", "location", "submitted_by", "submitter_id", "container_code", "container_type", "status",
	"submitted_at", "updated_at", "admin_reviewed_by", "admin_reviewed_at", "admin_comment",
	"rework_requested_by", "rework_requested_at", "rework_comment", "hod_decided_by", "hod_decided_at", "hod_comment"}

func containerRows(id string, status models.ContainerStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(containerRowColumns).
		AddRow(id, "Chemistry", "Lab 2", "Sam", "user-1", "CT-001", "cabinet", string(status),
			now, now, nil, nil, nil, nil, nil, nil, nil, nil, nil)
}

func sampleDetail() *models.ContainerDetail {
	return &models.ContainerDetail{
		Container: models.Container{
			Department:    "Chemistry",
			Location:      "Lab 2",
			SubmittedBy:   "Sam",
			SubmitterID:   "user-1",
			ContainerCode: "CT-001",
			ContainerType: "cabinet",
			Status:        models.ContainerStatusPendingReview,
		},
		Hazards: []models.ContainerHazard{{HazardClassID: "hc-21"}, {HazardClassID: "hc-52"}},
		Pairs: []models.HazardPair{{
			HazardClassAID:      "hc-21",
			HazardClassBID:      "hc-52",
			Distance:            2,
			IsIsolated:          true,
			MinRequiredDistance: compatibility.Unbounded(),
			Status:              compatibility.StatusDanger,
		}},
	}
}

func TestContainerRepositoryCreateWritesChildrenAtomically(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContainerRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO containers")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO container_hazards")).
		WithArgs(sqlmock.AnyArg(), "hc-21").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO container_hazards")).
		WithArgs(sqlmock.AnyArg(), "hc-52").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO hazard_pairs")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "hc-21", "hc-52", 2.0, true, nil, "danger", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	detail := sampleDetail()
	require.NoError(t, repo.Create(context.Background(), detail))
	assert.NotEmpty(t, detail.ID)
	assert.NotEmpty(t, detail.Pairs[0].ID)
	assert.Equal(t, detail.ID, detail.Pairs[0].ContainerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContainerRepositoryCreateRejectsInconsistentPair(t *testing.T) {
	cases := map[string]compatibility.MinDistance{
		"unset distance":       {},
		"bounded but isolated": compatibility.Meters(5),
	}
	for name, distance := range cases {
		t.Run(name, func(t *testing.T) {
			db, mock, cleanup := newMock(t)
			defer cleanup()
			repo := NewContainerRepository(db)

			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta("INSERT INTO containers")).WillReturnResult(sqlmock.NewResult(1, 1))
			mock.ExpectExec(regexp.QuoteMeta("INSERT INTO container_hazards")).WillReturnResult(sqlmock.NewResult(1, 1))
			mock.ExpectExec(regexp.QuoteMeta("INSERT INTO container_hazards")).WillReturnResult(sqlmock.NewResult(1, 1))
			mock.ExpectRollback()

			detail := sampleDetail()
			detail.Pairs[0].MinRequiredDistance = distance
			err := repo.Create(context.Background(), detail)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "hc-21/hc-52")
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestContainerRepositoryCreateRollsBackOnPairFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContainerRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO containers")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO container_hazards")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO container_hazards")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO hazard_pairs")).WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), sampleDetail())
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContainerRepositoryTransitionConditionalOnStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContainerRepository(db)

	transition := models.ContainerTransition{
		ContainerID: "c-1",
		From:        models.ContainerStatusPendingReview,
		To:          models.ContainerStatusPending,
		ActorName:   "Ada",
		Comment:     "labels verified on site",
		At:          time.Now(),
	}
	mock.ExpectExec(regexp.QuoteMeta("UPDATE containers SET status = $1, updated_at = $2, admin_reviewed_by = $3, admin_reviewed_at = $2, admin_comment = $4")).
		WithArgs("pending", sqlmock.AnyArg(), "Ada", "labels verified on site", "c-1", "pending_review").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Transition(context.Background(), transition))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE containers SET status = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Transition(context.Background(), transition)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContainerRepositoryTransitionHODColumns(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContainerRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("hod_decided_by = $3, hod_decided_at = $2, hod_comment = $4")).
		WithArgs("approved", sqlmock.AnyArg(), "Hana", "approved for storage", "c-1", "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Transition(context.Background(), models.ContainerTransition{
		ContainerID: "c-1",
		From:        models.ContainerStatusPending,
		To:          models.ContainerStatusApproved,
		ActorName:   "Hana",
		Comment:     "approved for storage",
		At:          time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContainerRepositoryResubmitReplacesChildren(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContainerRepository(db)

	detail := sampleDetail()
	detail.ID = "c-1"

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE containers SET department = $1")).
		WithArgs("Chemistry", "Lab 2", "Sam", "CT-001", "cabinet", "pending_review", sqlmock.AnyArg(), "c-1", "rework_requested").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM hazard_pairs WHERE container_id = $1")).WithArgs("c-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM container_hazards WHERE container_id = $1")).WithArgs("c-1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO container_hazards")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO container_hazards")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO hazard_pairs")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Resubmit(context.Background(), detail, models.ContainerStatusReworkRequested)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContainerRepositoryResubmitLostRace(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContainerRepository(db)

	detail := sampleDetail()
	detail.ID = "c-1"

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE containers SET department = $1")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Resubmit(context.Background(), detail, models.ContainerStatusReworkRequested)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContainerRepositoryGetDetail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContainerRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, department, location")).
		WithArgs("c-1").
		WillReturnRows(containerRows("c-1", models.ContainerStatusPendingReview))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT ch.container_id, ch.hazard_class_id, hc.code, hc.name")).
		WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows([]string{"container_id", "hazard_class_id", "code", "name"}).
			AddRow("c-1", "hc-21", "2.1", "Flammable Gas").
			AddRow("c-1", "hc-52", "5.2", "Organic Peroxide"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT hp.id, hp.container_id")).
		WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "container_id", "hazard_class_a_id", "hazard_class_b_id", "class_a_code", "class_b_code",
			"distance", "is_isolated", "min_required_distance", "status", "created_at"}).
			AddRow("p-1", "c-1", "hc-21", "hc-52", "2.1", "5.2", 2.0, true, nil, "danger", time.Now()))

	detail, err := repo.GetDetail(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, models.ContainerStatusPendingReview, detail.Status)
	require.Len(t, detail.Hazards, 2)
	require.Len(t, detail.Pairs, 1)
	assert.True(t, detail.Pairs[0].MinRequiredDistance.IsUnbounded())
	assert.Equal(t, compatibility.StatusDanger, detail.Pairs[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContainerRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContainerRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, department, location")).
		WithArgs("pending", "user-1").
		WillReturnRows(containerRows("c-1", models.ContainerStatusPending))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM containers WHERE status IN ($1) AND submitter_id = $2")).
		WithArgs("pending", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.ContainerFilter{
		Status:      []models.ContainerStatus{models.ContainerStatusPending},
		SubmitterID: "user-1",
	})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContainerRepositoryDeleteCascade(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContainerRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM containers WHERE id = $1 FOR UPDATE")).
		WithArgs("c-1").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("c-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM deletion_requests")).
		WithArgs("c-1", "pending", "admin_reviewed").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, container_id, file_name")).
		WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "container_id", "file_name", "file_path", "mime_type", "size_bytes", "uploaded_by", "uploaded_at"}).
			AddRow("a-1", "c-1", "label.png", "c-1/label.png", "image/png", 1024, "user-1", time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM container_attachments")).WithArgs("c-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM hazard_pairs")).WithArgs("c-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM container_hazards")).WithArgs("c-1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM containers WHERE id = $1")).WithArgs("c-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	attachments, err := repo.DeleteCascade(context.Background(), "c-1")
	require.NoError(t, err)
	require.Len(t, attachments, 1)
	assert.Equal(t, "c-1/label.png", attachments[0].FilePath)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContainerRepositoryDeleteBlockedByOpenRequest(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContainerRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM containers WHERE id = $1 FOR UPDATE")).
		WithArgs("c-1").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("c-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM deletion_requests")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	_, err := repo.DeleteCascade(context.Background(), "c-1")
	assert.ErrorIs(t, err, ErrOpenDeletionRequest)
	assert.NoError(t, mock.ExpectationsWereMet())
}
