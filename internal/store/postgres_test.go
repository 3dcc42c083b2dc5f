package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftline/outreach-cli/internal/model"
)

func newMockPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresFromPool(mock), mock
}

func TestPostgres_SetApproval(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectExec("UPDATE leads SET approval_status").
		WithArgs("approved", []string{"a", "b"}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	n, err := st.SetApproval(context.Background(), []string{"a", "b"}, model.ApprovalApproved)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateLead_UniqueViolation(t *testing.T) {
	st, mock := newMockPostgres(t)

	insertArgs := make([]any, 22)
	for i := range insertArgs {
		insertArgs[i] = pgxmock.AnyArg()
	}
	mock.ExpectExec("INSERT INTO leads").
		WithArgs(insertArgs...).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := st.CreateLead(context.Background(), &model.Lead{
		SourceType: model.SourceWebsite,
		NaturalKey: "example.com",
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ResolveSend_ClaimGone(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectExec("UPDATE leads SET send_status = 'sent'").
		WithArgs("lead-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := st.ResolveSend(context.Background(), "lead-1", model.SendSent)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CountByStage_SchemaUnavailable(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectQuery("FROM leads").
		WillReturnError(&pgconn.PgError{Code: "42P01"})

	_, err := st.CountByStage(context.Background())
	assert.ErrorIs(t, err, ErrSchemaUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CountByStage(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectQuery("FROM leads").
		WillReturnRows(pgxmock.NewRows(
			[]string{"discovered", "approved", "scraped", "verified", "reviewed", "drafted", "sent"},
		).AddRow(10, 5, 4, 3, 2, 1, 1))

	counts, err := st.CountByStage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, counts[model.StageDiscovered])
	assert.Equal(t, 5, counts[model.StageApproved])
	assert.Equal(t, 1, counts[model.StageSent])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_StartJob_AlreadyRunning(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectExec("UPDATE jobs SET status = 'running'").
		WithArgs("job-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := st.StartJob(context.Background(), "job-1")
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetSettings(t *testing.T) {
	st, mock := newMockPostgres(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT automation_enabled").
		WillReturnRows(pgxmock.NewRows([]string{"automation_enabled", "updated_at"}).AddRow(false, now))

	s, err := st.GetSettings(context.Background())
	require.NoError(t, err)
	assert.False(t, s.AutomationEnabled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteLeads(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectExec("DELETE FROM leads").
		WithArgs([]string{"a", "b"}).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	n, err := st.DeleteLeads(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ClaimLeads_UnknownJobType(t *testing.T) {
	st, _ := newMockPostgres(t)

	_, err := st.ClaimLeads(context.Background(), model.JobDiscover, nil, 10)
	assert.Error(t, err)
}
