package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/craftline/outreach-cli/internal/model"
)

// PgxPool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	pool PgxPool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool (used by tests).
func NewPostgresFromPool(pool PgxPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
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
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_contacted_at   TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_natural_key
	ON leads(source_type, natural_key) WHERE thread_id = '';
CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_thread_seq
	ON leads(thread_id, sequence_index) WHERE thread_id != '';
CREATE INDEX IF NOT EXISTS idx_leads_thread ON leads(thread_id);
CREATE INDEX IF NOT EXISTS idx_leads_approval ON leads(approval_status);
CREATE INDEX IF NOT EXISTS idx_leads_send ON leads(send_status);

CREATE TABLE IF NOT EXISTS discovery_queries (
	id           TEXT PRIMARY KEY,
	source_type  TEXT NOT NULL,
	platform     TEXT NOT NULL DEFAULT '',
	filters      JSONB NOT NULL,
	counters     JSONB NOT NULL DEFAULT '{}',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS jobs (
	id            TEXT PRIMARY KEY,
	type          TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	params        JSONB NOT NULL,
	result        JSONB,
	error_message TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	started_at    TIMESTAMPTZ,
	finished_at   TIMESTAMPTZ
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
	sent_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id);

CREATE TABLE IF NOT EXISTS settings (
	id                 INTEGER PRIMARY KEY CHECK (id = 1),
	automation_enabled BOOLEAN NOT NULL DEFAULT true,
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

INSERT INTO settings (id, automation_enabled)
	VALUES (1, true) ON CONFLICT (id) DO NOTHING;
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateLead(ctx context.Context, lead *model.Lead) error {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	lead.CreatedAt = now
	lead.UpdatedAt = now
	applyLeadDefaults(lead)

	_, err := s.pool.Exec(ctx,
		`INSERT INTO leads (`+leadColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		lead.ID, string(lead.SourceType), lead.SourcePlatform, lead.NaturalKey,
		lead.Name, lead.URL, lead.ContactName, lead.Email,
		string(lead.ApprovalStatus), string(lead.ScrapeStatus), string(lead.VerificationStatus),
		string(lead.ReviewStatus), string(lead.DraftStatus), string(lead.SendStatus),
		lead.DraftSubject, lead.DraftBody,
		lead.ThreadID, lead.SequenceIndex, lead.DiscoveryQueryID,
		lead.CreatedAt, lead.UpdatedAt, lead.LastContactedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return eris.Wrapf(ErrConflict, "postgres: lead exists for key %s", lead.NaturalKey)
		}
		return s.mapErr(err, "postgres: insert lead")
	}
	return nil
}

func (s *PostgresStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if err != nil {
		return nil, s.mapErr(err, "postgres: get lead")
	}
	return lead, nil
}

func (s *PostgresStore) GetThreadRoot(ctx context.Context, sourceType model.SourceType, naturalKey string) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads
		 WHERE source_type = $1 AND natural_key = $2 AND thread_id = ''`,
		string(sourceType), naturalKey)
	lead, err := scanLead(row)
	if err != nil {
		return nil, s.mapErr(err, "postgres: get thread root")
	}
	return lead, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	var args []any
	argIdx := 1

	add := func(cond string, val any) {
		query += ` AND ` + cond + `$` + itoa(argIdx)
		args = append(args, val)
		argIdx++
	}
	if filter.SourceType != "" {
		add(`source_type = `, string(filter.SourceType))
	}
	if filter.ApprovalStatus != "" {
		add(`approval_status = `, string(filter.ApprovalStatus))
	}
	if filter.SendStatus != "" {
		add(`send_status = `, string(filter.SendStatus))
	}
	if filter.ThreadID != "" {
		query += ` AND (thread_id = $` + itoa(argIdx) + ` OR id = $` + itoa(argIdx) + `)`
		args = append(args, filter.ThreadID)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT $` + itoa(argIdx)
	args = append(args, limit)
	argIdx++
	if filter.Offset > 0 {
		query += ` OFFSET $` + itoa(argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, s.mapErr(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) DeleteLeads(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM leads WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, s.mapErr(err, "postgres: delete leads")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) MaxSequenceIndex(ctx context.Context, threadID string) (int, error) {
	var max int
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence_index), -1) FROM leads WHERE id = $1 OR thread_id = $1`,
		threadID,
	).Scan(&max)
	if err != nil {
		return 0, s.mapErr(err, "postgres: max sequence index")
	}
	return max, nil
}

func (s *PostgresStore) SetApproval(ctx context.Context, ids []string, status model.ApprovalStatus) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET approval_status = $1, updated_at = now()
		 WHERE approval_status = 'pending' AND id = ANY($2)`,
		string(status), ids,
	)
	if err != nil {
		return 0, s.mapErr(err, "postgres: set approval")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) ConfirmReview(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET review_status = 'confirmed', updated_at = now()
		 WHERE verification_status = 'verified' AND review_status = 'pending' AND id = ANY($1)`,
		ids,
	)
	if err != nil {
		return 0, s.mapErr(err, "postgres: confirm review")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) ClaimLeads(ctx context.Context, jobType model.JobType, ids []string, limit int) ([]model.Lead, error) {
	rule, err := ruleFor(jobType)
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		if limit <= 0 {
			limit = 500
		}
		rows, err := s.pool.Query(ctx,
			`SELECT id FROM leads WHERE `+rule.eligibility+` ORDER BY created_at LIMIT $1`, limit)
		if err != nil {
			return nil, s.mapErr(err, "postgres: select eligible leads")
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return nil, eris.Wrap(err, "postgres: scan eligible id")
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			return nil, eris.Wrap(err, "postgres: iterate eligible ids")
		}
	}

	var claimed []string
	for _, id := range ids {
		tag, err := s.pool.Exec(ctx,
			`UPDATE leads SET `+rule.column+` = 'claimed', updated_at = now()
			 WHERE id = $1 AND `+rule.eligibility,
			id,
		)
		if err != nil {
			return nil, s.mapErr(err, "postgres: claim lead")
		}
		if tag.RowsAffected() == 1 {
			claimed = append(claimed, id)
		}
	}

	if len(claimed) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = ANY($1) ORDER BY created_at`, claimed)
	if err != nil {
		return nil, s.mapErr(err, "postgres: load claimed leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan claimed lead")
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: iterate claimed leads")
}

func (s *PostgresStore) ReleaseClaim(ctx context.Context, jobType model.JobType, id string) error {
	rule, err := ruleFor(jobType)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE leads SET `+rule.column+` = 'pending', updated_at = now()
		 WHERE id = $1 AND `+rule.column+` = 'claimed'`,
		id,
	)
	return s.mapErr(err, "postgres: release claim")
}

func (s *PostgresStore) ResolveScrape(ctx context.Context, id string, status model.ScrapeStatus, email, contactName string) error {
	var tag pgconn.CommandTag
	var err error
	if status == model.ScrapeScraped {
		tag, err = s.pool.Exec(ctx,
			`UPDATE leads SET scrape_status = $2, email = $3, contact_name = $4, updated_at = now()
			 WHERE id = $1 AND scrape_status = 'claimed'`,
			id, string(status), email, contactName,
		)
	} else {
		tag, err = s.pool.Exec(ctx,
			`UPDATE leads SET scrape_status = $2, updated_at = now()
			 WHERE id = $1 AND scrape_status = 'claimed'`,
			id, string(status),
		)
	}
	if err != nil {
		return s.mapErr(err, "postgres: resolve scrape")
	}
	return tagClaimGone(tag, id)
}

func (s *PostgresStore) ResolveVerification(ctx context.Context, id string, status model.VerificationStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET verification_status = $2, updated_at = now()
		 WHERE id = $1 AND verification_status = 'claimed'`,
		id, string(status),
	)
	if err != nil {
		return s.mapErr(err, "postgres: resolve verification")
	}
	return tagClaimGone(tag, id)
}

func (s *PostgresStore) ResolveDraft(ctx context.Context, id string, status model.DraftStatus, subject, body string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET draft_status = $2, draft_subject = $3, draft_body = $4, updated_at = now()
		 WHERE id = $1 AND draft_status = 'claimed'`,
		id, string(status), subject, body,
	)
	if err != nil {
		return s.mapErr(err, "postgres: resolve draft")
	}
	return tagClaimGone(tag, id)
}

func (s *PostgresStore) ResolveSend(ctx context.Context, id string, status model.SendStatus) error {
	var tag pgconn.CommandTag
	var err error
	if status == model.SendSent {
		tag, err = s.pool.Exec(ctx,
			`UPDATE leads SET send_status = 'sent', last_contacted_at = now(), updated_at = now()
			 WHERE id = $1 AND send_status = 'claimed'
			   AND verification_status = 'verified' AND draft_status = 'drafted'`,
			id,
		)
	} else {
		tag, err = s.pool.Exec(ctx,
			`UPDATE leads SET send_status = $2, updated_at = now()
			 WHERE id = $1 AND send_status = 'claimed'`,
			id, string(status),
		)
	}
	if err != nil {
		return s.mapErr(err, "postgres: resolve send")
	}
	return tagClaimGone(tag, id)
}

func (s *PostgresStore) CountByStage(ctx context.Context) (map[model.Stage]int, error) {
	row := s.pool.QueryRow(ctx, `
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
		return nil, s.mapErr(err, "postgres: count by stage")
	}

	out := make(map[model.Stage]int, len(model.StageOrder))
	for i, stage := range model.StageOrder {
		out[stage] = counts[i]
	}
	return out, nil
}

func (s *PostgresStore) CreateQuery(ctx context.Context, q *model.DiscoveryQuery) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	q.CreatedAt = time.Now().UTC()

	filtersJSON, err := json.Marshal(q.Filters)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal filters")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO discovery_queries (id, source_type, platform, filters, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		q.ID, string(q.SourceType), q.Platform, filtersJSON, q.CreatedAt,
	)
	return s.mapErr(err, "postgres: insert query")
}

func (s *PostgresStore) CompleteQuery(ctx context.Context, id string, counters model.QueryCounters) error {
	countersJSON, err := json.Marshal(counters)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal counters")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE discovery_queries SET counters = $2, completed_at = now() WHERE id = $1`,
		id, countersJSON,
	)
	if err != nil {
		return s.mapErr(err, "postgres: complete query")
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "query %s", id)
	}
	return nil
}

func (s *PostgresStore) GetQuery(ctx context.Context, id string) (*model.DiscoveryQuery, error) {
	var q model.DiscoveryQuery
	var filtersJSON, countersJSON []byte
	var completedAt *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT id, source_type, platform, filters, counters, created_at, completed_at
		 FROM discovery_queries WHERE id = $1`, id,
	).Scan(&q.ID, &q.SourceType, &q.Platform, &filtersJSON, &countersJSON, &q.CreatedAt, &completedAt)
	if err != nil {
		return nil, s.mapErr(err, "postgres: get query")
	}
	if err := json.Unmarshal(filtersJSON, &q.Filters); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal filters")
	}
	if err := json.Unmarshal(countersJSON, &q.Counters); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal counters")
	}
	q.CompletedAt = completedAt
	return &q, nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, jobType model.JobType, params model.JobParams) (*model.Job, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal job params")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO jobs (id, type, status, params, created_at) VALUES ($1, $2, $3, $4, $5)`,
		id, string(jobType), string(model.JobPending), paramsJSON, now,
	)
	if err != nil {
		return nil, s.mapErr(err, "postgres: insert job")
	}
	return &model.Job{
		ID:        id,
		Type:      jobType,
		Status:    model.JobPending,
		Params:    params,
		CreatedAt: now,
	}, nil
}

func (s *PostgresStore) StartJob(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = 'running', started_at = now() WHERE id = $1 AND status = 'pending'`,
		id,
	)
	if err != nil {
		return s.mapErr(err, "postgres: start job")
	}
	return tagClaimGone(tag, id)
}

func (s *PostgresStore) CompleteJob(ctx context.Context, id string, result *model.JobResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal job result")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = 'completed', result = $2, finished_at = now() WHERE id = $1`,
		id, resultJSON,
	)
	if err != nil {
		return s.mapErr(err, "postgres: complete job")
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "job %s", id)
	}
	return nil
}

func (s *PostgresStore) FailJob(ctx context.Context, id string, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = 'failed', error_message = $2, finished_at = now() WHERE id = $1`,
		id, errMsg,
	)
	if err != nil {
		return s.mapErr(err, "postgres: fail job")
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "job %s", id)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, type, status, params, result, error_message, created_at, started_at, finished_at
		 FROM jobs WHERE id = $1`, id)
	job, err := scanPgJob(row)
	if err != nil {
		return nil, s.mapErr(err, "postgres: get job")
	}
	return job, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT id, type, status, params, result, error_message, created_at, started_at, finished_at
		FROM jobs WHERE 1=1`
	var args []any
	argIdx := 1

	if filter.Type != "" {
		query += ` AND type = $` + itoa(argIdx)
		args = append(args, string(filter.Type))
		argIdx++
	}
	if filter.Status != "" {
		query += ` AND status = $` + itoa(argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` LIMIT $` + itoa(argIdx)
	args = append(args, limit)
	argIdx++
	if filter.Offset > 0 {
		query += ` OFFSET $` + itoa(argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, s.mapErr(err, "postgres: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanPgJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan job")
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: list jobs iterate")
}

func (s *PostgresStore) InsertMessage(ctx context.Context, m *model.Message) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.SentAt.IsZero() {
		m.SentAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO messages (id, lead_id, thread_id, sequence_index, subject, body, provider_message_id, sent_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.LeadID, m.ThreadID, m.SequenceIndex, m.Subject, m.Body, m.ProviderMessageID, m.SentAt,
	)
	return s.mapErr(err, "postgres: insert message")
}

func (s *PostgresStore) ThreadMessages(ctx context.Context, threadID string) ([]model.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, lead_id, thread_id, sequence_index, subject, body, provider_message_id, sent_at
		 FROM messages WHERE thread_id = $1 ORDER BY sequence_index, sent_at`,
		threadID,
	)
	if err != nil {
		return nil, s.mapErr(err, "postgres: thread messages")
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.LeadID, &m.ThreadID, &m.SequenceIndex,
			&m.Subject, &m.Body, &m.ProviderMessageID, &m.SentAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan message")
		}
		msgs = append(msgs, m)
	}
	return msgs, eris.Wrap(rows.Err(), "postgres: thread messages iterate")
}

func (s *PostgresStore) GetSettings(ctx context.Context) (*model.Settings, error) {
	var st model.Settings
	err := s.pool.QueryRow(ctx,
		`SELECT automation_enabled, updated_at FROM settings WHERE id = 1`,
	).Scan(&st.AutomationEnabled, &st.UpdatedAt)
	if err != nil {
		return nil, s.mapErr(err, "postgres: get settings")
	}
	return &st, nil
}

func (s *PostgresStore) SetAutomation(ctx context.Context, enabled bool) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE settings SET automation_enabled = $1, updated_at = now() WHERE id = 1`,
		enabled,
	)
	return s.mapErr(err, "postgres: set automation")
}

func (s *PostgresStore) mapErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return eris.Wrap(ErrNotFound, msg)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42P01" { // undefined_table
		return eris.Wrap(ErrSchemaUnavailable, msg)
	}
	return eris.Wrap(err, msg)
}

func tagClaimGone(tag pgconn.CommandTag, id string) error {
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrConflict, "lead %s", id)
	}
	return nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func scanPgJob(row scannable) (*model.Job, error) {
	var j model.Job
	var paramsJSON, resultJSON []byte
	var startedAt, finishedAt *time.Time

	err := row.Scan(&j.ID, &j.Type, &j.Status, &paramsJSON, &resultJSON,
		&j.ErrorMessage, &j.CreatedAt, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(paramsJSON, &j.Params); err != nil {
		return nil, eris.Wrap(err, "unmarshal job params")
	}
	if len(resultJSON) > 0 {
		j.Result = &model.JobResult{}
		if err := json.Unmarshal(resultJSON, j.Result); err != nil {
			return nil, eris.Wrap(err, "unmarshal job result")
		}
	}
	j.StartedAt = startedAt
	j.FinishedAt = finishedAt
	return &j, nil
}
