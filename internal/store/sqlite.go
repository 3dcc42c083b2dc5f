package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/craftline/outreach-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id                  TEXT PRIMARY KEY,
	source_type         TEXT NOT NULL,
	source_platform     TEXT NOT NULL DEFAULT '',
	natural_key         TEXT NOT NULL,
	name                TEXT NOT NULL DEFAULT '',
	url                 TEXT NOT NULL DEFAULT '',
	contact_name        TEXT NOT NULL DEFAULT '',
	email               TEXT NOT NULL DEFAULT '',
	approval_status     TEXT NOT NULL DEFAULT 'pending',
	scrape_status       TEXT NOT NULL DEFAULT 'pending',
	verification_status TEXT NOT NULL DEFAULT 'pending',
	review_status       TEXT NOT NULL DEFAULT 'pending',
	draft_status        TEXT NOT NULL DEFAULT 'pending',
	send_status         TEXT NOT NULL DEFAULT 'pending',
	draft_subject       TEXT NOT NULL DEFAULT '',
	draft_body          TEXT NOT NULL DEFAULT '',
	thread_id           TEXT NOT NULL DEFAULT '',
	sequence_index      INTEGER NOT NULL DEFAULT 0,
	discovery_query_id  TEXT NOT NULL DEFAULT '',
	created_at          DATETIME NOT NULL,
	updated_at          DATETIME NOT NULL,
	last_contacted_at   DATETIME
);

-- One lead per natural key; follow-up touches carry a thread_id and are
-- exempt from the uniqueness rule.
CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_natural_key
	ON leads(source_type, natural_key) WHERE thread_id = '';
-- Touches within a thread must occupy distinct sequence slots.
CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_thread_seq
	ON leads(thread_id, sequence_index) WHERE thread_id != '';
CREATE INDEX IF NOT EXISTS idx_leads_thread ON leads(thread_id);
CREATE INDEX IF NOT EXISTS idx_leads_approval ON leads(approval_status);
CREATE INDEX IF NOT EXISTS idx_leads_send ON leads(send_status);

CREATE TABLE IF NOT EXISTS discovery_queries (
	id           TEXT PRIMARY KEY,
	source_type  TEXT NOT NULL,
	platform     TEXT NOT NULL DEFAULT '',
	filters      TEXT NOT NULL,
	counters     TEXT NOT NULL DEFAULT '{}',
	created_at   DATETIME NOT NULL,
	completed_at DATETIME
);

CREATE TABLE IF NOT EXISTS jobs (
	id            TEXT PRIMARY KEY,
	type          TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	params        TEXT NOT NULL,
	result        TEXT,
	error_message TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL,
	started_at    DATETIME,
	finished_at   DATETIME
);

CREATE INDEX IF NOT EXISTS idx_jobs_type_status ON jobs(type, status);

CREATE TABLE IF NOT EXISTS messages (
	id                  TEXT PRIMARY KEY,
	lead_id             TEXT NOT NULL,
	thread_id           TEXT NOT NULL,
	sequence_index      INTEGER NOT NULL,
	subject             TEXT NOT NULL,
	body                TEXT NOT NULL,
	provider_message_id TEXT NOT NULL DEFAULT '',
	sent_at             DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id);

CREATE TABLE IF NOT EXISTS settings (
	id                 INTEGER PRIMARY KEY CHECK (id = 1),
	automation_enabled INTEGER NOT NULL DEFAULT 1,
	updated_at         DATETIME NOT NULL
);

INSERT OR IGNORE INTO settings (id, automation_enabled, updated_at)
	VALUES (1, 1, datetime('now'));
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const leadColumns = `id, source_type, source_platform, natural_key, name, url,
	contact_name, email,
	approval_status, scrape_status, verification_status, review_status,
	draft_status, send_status, draft_subject, draft_body,
	thread_id, sequence_index, discovery_query_id,
	created_at, updated_at, last_contacted_at`

func (s *SQLiteStore) CreateLead(ctx context.Context, lead *model.Lead) error {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	lead.CreatedAt = now
	lead.UpdatedAt = now
	applyLeadDefaults(lead)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (`+leadColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.ID, string(lead.SourceType), lead.SourcePlatform, lead.NaturalKey,
		lead.Name, lead.URL, lead.ContactName, lead.Email,
		string(lead.ApprovalStatus), string(lead.ScrapeStatus), string(lead.VerificationStatus),
		string(lead.ReviewStatus), string(lead.DraftStatus), string(lead.SendStatus),
		lead.DraftSubject, lead.DraftBody,
		lead.ThreadID, lead.SequenceIndex, lead.DiscoveryQueryID,
		lead.CreatedAt, lead.UpdatedAt, lead.LastContactedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return eris.Wrapf(ErrConflict, "sqlite: lead exists for key %s", lead.NaturalKey)
		}
		return s.mapErr(err, "sqlite: insert lead")
	}
	return nil
}

func (s *SQLiteStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = ?`, id)
	lead, err := scanLead(row)
	if err != nil {
		return nil, s.mapErr(err, "sqlite: get lead")
	}
	return lead, nil
}

func (s *SQLiteStore) GetThreadRoot(ctx context.Context, sourceType model.SourceType, naturalKey string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads
		 WHERE source_type = ? AND natural_key = ? AND thread_id = ''`,
		string(sourceType), naturalKey)
	lead, err := scanLead(row)
	if err != nil {
		return nil, s.mapErr(err, "sqlite: get thread root")
	}
	return lead, nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	var args []any

	if filter.SourceType != "" {
		query += ` AND source_type = ?`
		args = append(args, string(filter.SourceType))
	}
	if filter.ApprovalStatus != "" {
		query += ` AND approval_status = ?`
		args = append(args, string(filter.ApprovalStatus))
	}
	if filter.SendStatus != "" {
		query += ` AND send_status = ?`
		args = append(args, string(filter.SendStatus))
	}
	if filter.ThreadID != "" {
		query += ` AND (thread_id = ? OR id = ?)`
		args = append(args, filter.ThreadID, filter.ThreadID)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.mapErr(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) DeleteLeads(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(`DELETE FROM leads WHERE id IN (%s)`, placeholders(len(ids)))
	res, err := s.db.ExecContext(ctx, query, toAnySlice(ids)...)
	if err != nil {
		return 0, s.mapErr(err, "sqlite: delete leads")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: delete leads rows affected")
}

func (s *SQLiteStore) MaxSequenceIndex(ctx context.Context, threadID string) (int, error) {
	var max int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence_index), -1) FROM leads WHERE id = ? OR thread_id = ?`,
		threadID, threadID,
	).Scan(&max)
	if err != nil {
		return 0, s.mapErr(err, "sqlite: max sequence index")
	}
	return max, nil
}

func (s *SQLiteStore) SetApproval(ctx context.Context, ids []string, status model.ApprovalStatus) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []any{string(status), time.Now().UTC()}
	args = append(args, toAnySlice(ids)...)
	query := fmt.Sprintf(
		`UPDATE leads SET approval_status = ?, updated_at = ?
		 WHERE approval_status = 'pending' AND id IN (%s)`,
		placeholders(len(ids)),
	)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, s.mapErr(err, "sqlite: set approval")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: set approval rows affected")
}

func (s *SQLiteStore) ConfirmReview(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []any{time.Now().UTC()}
	args = append(args, toAnySlice(ids)...)
	query := fmt.Sprintf(
		`UPDATE leads SET review_status = 'confirmed', updated_at = ?
		 WHERE verification_status = 'verified' AND review_status = 'pending' AND id IN (%s)`,
		placeholders(len(ids)),
	)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, s.mapErr(err, "sqlite: confirm review")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: confirm review rows affected")
}

// ClaimLeads picks eligible leads for the given job type and transitions each
// to the stage's claimed marker with a per-row conditional update, so two
// concurrent runs of the same job type never claim the same lead.
func (s *SQLiteStore) ClaimLeads(ctx context.Context, jobType model.JobType, ids []string, limit int) ([]model.Lead, error) {
	rule, err := ruleFor(jobType)
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		if limit <= 0 {
			limit = 500
		}
		rows, err := s.db.QueryContext(ctx,
			`SELECT id FROM leads WHERE `+rule.eligibility+` ORDER BY created_at LIMIT ?`, limit)
		if err != nil {
			return nil, s.mapErr(err, "sqlite: select eligible leads")
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return nil, eris.Wrap(err, "sqlite: scan eligible id")
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			return nil, eris.Wrap(err, "sqlite: iterate eligible ids")
		}
	}

	now := time.Now().UTC()
	var claimed []string
	for _, id := range ids {
		res, err := s.db.ExecContext(ctx,
			`UPDATE leads SET `+rule.column+` = 'claimed', updated_at = ?
			 WHERE id = ? AND `+rule.eligibility,
			now, id,
		)
		if err != nil {
			return nil, s.mapErr(err, "sqlite: claim lead")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: claim rows affected")
		}
		// Zero rows means the lead changed state since selection; skip it.
		if n == 1 {
			claimed = append(claimed, id)
		}
	}

	if len(claimed) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT `+leadColumns+` FROM leads WHERE id IN (%s) ORDER BY created_at`,
		placeholders(len(claimed)))
	rows, err := s.db.QueryContext(ctx, query, toAnySlice(claimed)...)
	if err != nil {
		return nil, s.mapErr(err, "sqlite: load claimed leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan claimed lead")
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: iterate claimed leads")
}

func (s *SQLiteStore) ReleaseClaim(ctx context.Context, jobType model.JobType, id string) error {
	rule, err := ruleFor(jobType)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE leads SET `+rule.column+` = 'pending', updated_at = ? WHERE id = ? AND `+rule.column+` = 'claimed'`,
		time.Now().UTC(), id,
	)
	return s.mapErr(err, "sqlite: release claim")
}

func (s *SQLiteStore) ResolveScrape(ctx context.Context, id string, status model.ScrapeStatus, email, contactName string) error {
	var res sql.Result
	var err error
	now := time.Now().UTC()
	if status == model.ScrapeScraped {
		res, err = s.db.ExecContext(ctx,
			`UPDATE leads SET scrape_status = ?, email = ?, contact_name = ?, updated_at = ?
			 WHERE id = ? AND scrape_status = 'claimed'`,
			string(status), email, contactName, now, id,
		)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE leads SET scrape_status = ?, updated_at = ?
			 WHERE id = ? AND scrape_status = 'claimed'`,
			string(status), now, id,
		)
	}
	if err != nil {
		return s.mapErr(err, "sqlite: resolve scrape")
	}
	return claimGone(res, id)
}

func (s *SQLiteStore) ResolveVerification(ctx context.Context, id string, status model.VerificationStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET verification_status = ?, updated_at = ?
		 WHERE id = ? AND verification_status = 'claimed'`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return s.mapErr(err, "sqlite: resolve verification")
	}
	return claimGone(res, id)
}

func (s *SQLiteStore) ResolveDraft(ctx context.Context, id string, status model.DraftStatus, subject, body string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET draft_status = ?, draft_subject = ?, draft_body = ?, updated_at = ?
		 WHERE id = ? AND draft_status = 'claimed'`,
		string(status), subject, body, time.Now().UTC(), id,
	)
	if err != nil {
		return s.mapErr(err, "sqlite: resolve draft")
	}
	return claimGone(res, id)
}

// ResolveSend commits the send outcome. The sent transition re-validates the
// upstream invariant on the claimed row itself: a lead can only become sent
// while verified and drafted.
func (s *SQLiteStore) ResolveSend(ctx context.Context, id string, status model.SendStatus) error {
	now := time.Now().UTC()
	var res sql.Result
	var err error
	if status == model.SendSent {
		res, err = s.db.ExecContext(ctx,
			`UPDATE leads SET send_status = 'sent', last_contacted_at = ?, updated_at = ?
			 WHERE id = ? AND send_status = 'claimed'
			   AND verification_status = 'verified' AND draft_status = 'drafted'`,
			now, now, id,
		)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE leads SET send_status = ?, updated_at = ?
			 WHERE id = ? AND send_status = 'claimed'`,
			string(status), now, id,
		)
	}
	if err != nil {
		return s.mapErr(err, "sqlite: resolve send")
	}
	return claimGone(res, id)
}

// CountByStage aggregates live stage counts. Rejected leads leave the funnel
// and are not counted as discovered.
func (s *SQLiteStore) CountByStage(ctx context.Context) (map[model.Stage]int, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN approval_status != 'rejected' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN approval_status = 'approved' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN scrape_status = 'scraped' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN verification_status = 'verified' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN review_status = 'confirmed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN draft_status = 'drafted' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN send_status = 'sent' THEN 1 ELSE 0 END), 0)
		FROM leads`)

	counts := make([]int, len(model.StageOrder))
	dest := make([]any, len(counts))
	for i := range counts {
		dest[i] = &counts[i]
	}
	if err := row.Scan(dest...); err != nil {
		return nil, s.mapErr(err, "sqlite: count by stage")
	}

	out := make(map[model.Stage]int, len(model.StageOrder))
	for i, stage := range model.StageOrder {
		out[stage] = counts[i]
	}
	return out, nil
}

func (s *SQLiteStore) CreateQuery(ctx context.Context, q *model.DiscoveryQuery) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	q.CreatedAt = time.Now().UTC()

	filtersJSON, err := json.Marshal(q.Filters)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal filters")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO discovery_queries (id, source_type, platform, filters, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		q.ID, string(q.SourceType), q.Platform, string(filtersJSON), q.CreatedAt,
	)
	return s.mapErr(err, "sqlite: insert query")
}

func (s *SQLiteStore) CompleteQuery(ctx context.Context, id string, counters model.QueryCounters) error {
	countersJSON, err := json.Marshal(counters)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal counters")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE discovery_queries SET counters = ?, completed_at = ? WHERE id = ?`,
		string(countersJSON), time.Now().UTC(), id,
	)
	if err != nil {
		return s.mapErr(err, "sqlite: complete query")
	}
	return checkRowsAffected(res, "query", id)
}

func (s *SQLiteStore) GetQuery(ctx context.Context, id string) (*model.DiscoveryQuery, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source_type, platform, filters, counters, created_at, completed_at
		 FROM discovery_queries WHERE id = ?`, id)

	var q model.DiscoveryQuery
	var filtersJSON, countersJSON string
	var completedAt sql.NullTime
	err := row.Scan(&q.ID, &q.SourceType, &q.Platform, &filtersJSON, &countersJSON, &q.CreatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "query %s", id)
	}
	if err != nil {
		return nil, s.mapErr(err, "sqlite: get query")
	}
	if err := json.Unmarshal([]byte(filtersJSON), &q.Filters); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal filters")
	}
	if err := json.Unmarshal([]byte(countersJSON), &q.Counters); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal counters")
	}
	if completedAt.Valid {
		t := completedAt.Time
		q.CompletedAt = &t
	}
	return &q, nil
}

func (s *SQLiteStore) CreateJob(ctx context.Context, jobType model.JobType, params model.JobParams) (*model.Job, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal job params")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, type, status, params, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(jobType), string(model.JobPending), string(paramsJSON), now,
	)
	if err != nil {
		return nil, s.mapErr(err, "sqlite: insert job")
	}
	return &model.Job{
		ID:        id,
		Type:      jobType,
		Status:    model.JobPending,
		Params:    params,
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) StartJob(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = 'running', started_at = ? WHERE id = ? AND status = 'pending'`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return s.mapErr(err, "sqlite: start job")
	}
	return claimGone(res, id)
}

func (s *SQLiteStore) CompleteJob(ctx context.Context, id string, result *model.JobResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal job result")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = 'completed', result = ?, finished_at = ? WHERE id = ?`,
		string(resultJSON), time.Now().UTC(), id,
	)
	if err != nil {
		return s.mapErr(err, "sqlite: complete job")
	}
	return checkRowsAffected(res, "job", id)
}

func (s *SQLiteStore) FailJob(ctx context.Context, id string, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = 'failed', error_message = ?, finished_at = ? WHERE id = ?`,
		errMsg, time.Now().UTC(), id,
	)
	if err != nil {
		return s.mapErr(err, "sqlite: fail job")
	}
	return checkRowsAffected(res, "job", id)
}

func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, type, status, params, result, error_message, created_at, started_at, finished_at
		 FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err != nil {
		return nil, s.mapErr(err, "sqlite: get job")
	}
	return job, nil
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT id, type, status, params, result, error_message, created_at, started_at, finished_at
		FROM jobs WHERE 1=1`
	var args []any

	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(filter.Type))
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.mapErr(err, "sqlite: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan job")
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list jobs iterate")
}

func (s *SQLiteStore) InsertMessage(ctx context.Context, m *model.Message) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.SentAt.IsZero() {
		m.SentAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, lead_id, thread_id, sequence_index, subject, body, provider_message_id, sent_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.LeadID, m.ThreadID, m.SequenceIndex, m.Subject, m.Body, m.ProviderMessageID, m.SentAt,
	)
	return s.mapErr(err, "sqlite: insert message")
}

func (s *SQLiteStore) ThreadMessages(ctx context.Context, threadID string) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lead_id, thread_id, sequence_index, subject, body, provider_message_id, sent_at
		 FROM messages WHERE thread_id = ? ORDER BY sequence_index, sent_at`,
		threadID,
	)
	if err != nil {
		return nil, s.mapErr(err, "sqlite: thread messages")
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.LeadID, &m.ThreadID, &m.SequenceIndex,
			&m.Subject, &m.Body, &m.ProviderMessageID, &m.SentAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan message")
		}
		msgs = append(msgs, m)
	}
	return msgs, eris.Wrap(rows.Err(), "sqlite: thread messages iterate")
}

func (s *SQLiteStore) GetSettings(ctx context.Context) (*model.Settings, error) {
	var st model.Settings
	var enabled int
	err := s.db.QueryRowContext(ctx,
		`SELECT automation_enabled, updated_at FROM settings WHERE id = 1`,
	).Scan(&enabled, &st.UpdatedAt)
	if err != nil {
		return nil, s.mapErr(err, "sqlite: get settings")
	}
	st.AutomationEnabled = enabled != 0
	return &st, nil
}

func (s *SQLiteStore) SetAutomation(ctx context.Context, enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE settings SET automation_enabled = ?, updated_at = ? WHERE id = 1`,
		v, time.Now().UTC(),
	)
	return s.mapErr(err, "sqlite: set automation")
}

// mapErr wraps driver errors, translating missing-table failures into
// ErrSchemaUnavailable so callers can report "unavailable" instead of
// crashing or fabricating an empty result.
func (s *SQLiteStore) mapErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return eris.Wrap(ErrNotFound, msg)
	}
	if strings.Contains(err.Error(), "no such table") {
		return eris.Wrap(ErrSchemaUnavailable, msg)
	}
	return eris.Wrap(err, msg)
}

// helpers

func applyLeadDefaults(lead *model.Lead) {
	if lead.ApprovalStatus == "" {
		lead.ApprovalStatus = model.ApprovalPending
	}
	if lead.ScrapeStatus == "" {
		lead.ScrapeStatus = model.ScrapePending
	}
	if lead.VerificationStatus == "" {
		lead.VerificationStatus = model.VerificationPending
	}
	if lead.ReviewStatus == "" {
		lead.ReviewStatus = model.ReviewPending
	}
	if lead.DraftStatus == "" {
		lead.DraftStatus = model.DraftPending
	}
	if lead.SendStatus == "" {
		lead.SendStatus = model.SendPending
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toAnySlice(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func claimGone(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrConflict, "lead %s", id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanLead(row scannable) (*model.Lead, error) {
	var l model.Lead
	var lastContacted sql.NullTime
	err := row.Scan(
		&l.ID, &l.SourceType, &l.SourcePlatform, &l.NaturalKey, &l.Name, &l.URL,
		&l.ContactName, &l.Email,
		&l.ApprovalStatus, &l.ScrapeStatus, &l.VerificationStatus, &l.ReviewStatus,
		&l.DraftStatus, &l.SendStatus, &l.DraftSubject, &l.DraftBody,
		&l.ThreadID, &l.SequenceIndex, &l.DiscoveryQueryID,
		&l.CreatedAt, &l.UpdatedAt, &lastContacted,
	)
	if err != nil {
		return nil, err
	}
	if lastContacted.Valid {
		t := lastContacted.Time
		l.LastContactedAt = &t
	}
	return &l, nil
}

func scanJob(row scannable) (*model.Job, error) {
	var j model.Job
	var paramsJSON string
	var resultJSON sql.NullString
	var startedAt, finishedAt sql.NullTime

	err := row.Scan(&j.ID, &j.Type, &j.Status, &paramsJSON, &resultJSON,
		&j.ErrorMessage, &j.CreatedAt, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(paramsJSON), &j.Params); err != nil {
		return nil, eris.Wrap(err, "unmarshal job params")
	}
	if resultJSON.Valid {
		j.Result = &model.JobResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), j.Result); err != nil {
			return nil, eris.Wrap(err, "unmarshal job result")
		}
	}
	if startedAt.Valid {
		t := startedAt.Time
		j.StartedAt = &t
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		j.FinishedAt = &t
	}
	return &j, nil
}
