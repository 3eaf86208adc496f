package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/apistatus/internal/domain"
	"github.com/hamed0406/apistatus/internal/repo"
)

var _ repo.StatusStore = (*Store)(nil)

// Store keeps the latest status in one row per target and the history trail
// in a second table, both named after the collection.
type Store struct {
	pool    *pgxpool.Pool
	log     *zap.Logger
	history repo.HistoryOptions
	table   string // collection name, unquoted
	status  string // quoted table names
	trail   string
}

func New(ctx context.Context, dsn, collection string, h repo.HistoryOptions, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	s := &Store{
		pool:    pool,
		log:     log,
		history: h,
		table:   collection,
		status:  pgx.Identifier{collection}.Sanitize(),
		trail:   pgx.Identifier{collection + "-history"}.Sanitize(),
	}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info("postgres_store_ready", zap.String("table", collection), zap.String("history_policy", string(h.Policy)))
	return s, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) ensureSchema(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS ` + s.status + ` (
  name             TEXT PRIMARY KEY,
  status           TEXT NOT NULL,
  message          TEXT NOT NULL,
  response_time_ms BIGINT NULL,
  last_checked     TEXT NOT NULL,
  checked_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS ` + s.trail + ` (
  id               BIGSERIAL PRIMARY KEY,
  name             TEXT NOT NULL REFERENCES ` + s.status + `(name) ON DELETE CASCADE,
  status           TEXT NOT NULL,
  date             TEXT NOT NULL,
  response_time_ms BIGINT NULL
);

CREATE INDEX IF NOT EXISTS ` + pgx.Identifier{"idx_" + s.table + "_history_name_id"}.Sanitize() + `
  ON ` + s.trail + ` (name, id);
`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Record creates the row with INSERT ... ON CONFLICT DO NOTHING so that two
// first records of the same target serialise on the row; only the one that
// inserted it sees Existed == false.
func (s *Store) Record(ctx context.Context, name string, obs domain.Observation) (repo.Recorded, error) {
	var rec repo.Recorded
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var created bool
		err := tx.QueryRow(ctx, `
INSERT INTO `+s.status+` (name, status, message, response_time_ms, last_checked, checked_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (name) DO NOTHING
RETURNING true`,
			name, string(obs.Status), obs.Message, obs.ResponseTimeMS, obs.LastChecked, obs.CheckedAt).Scan(&created)
		switch {
		case err == nil:
		case errors.Is(err, pgx.ErrNoRows):
			if err := s.overwrite(ctx, tx, name, obs, &rec); err != nil {
				return err
			}
		default:
			return fmt.Errorf("insert status: %w", err)
		}

		if !s.history.Policy.ShouldAppend(rec.Previous, rec.Existed, obs.Status) {
			return nil
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO `+s.trail+` (name, status, date, response_time_ms) VALUES ($1, $2, $3, $4)`,
			name, string(obs.Status), obs.LastChecked, obs.ResponseTimeMS)
		if err != nil {
			return fmt.Errorf("append history: %w", err)
		}
		rec.Appended = true

		if s.history.Limit > 0 {
			tag, err := tx.Exec(ctx, `
DELETE FROM `+s.trail+`
 WHERE name = $1
   AND id NOT IN (SELECT id FROM `+s.trail+` WHERE name = $1 ORDER BY id DESC LIMIT $2)`,
				name, s.history.Limit)
			if err != nil {
				return fmt.Errorf("trim history: %w", err)
			}
			if n := tag.RowsAffected(); n > 0 {
				s.log.Debug("history_trimmed", zap.String("target", name), zap.Int64("removed", n))
			}
		}
		return nil
	})
	if err != nil {
		return repo.Recorded{}, err
	}
	if rec.Appended {
		s.log.Debug("history_appended", zap.String("target", name), zap.String("status", string(obs.Status)))
	}
	return rec, nil
}

// overwrite locks the existing row, reads the previous status and replaces the
// latest fields.
func (s *Store) overwrite(ctx context.Context, tx pgx.Tx, name string, obs domain.Observation, rec *repo.Recorded) error {
	var prev string
	if err := tx.QueryRow(ctx, `SELECT status FROM `+s.status+` WHERE name = $1 FOR UPDATE`, name).Scan(&prev); err != nil {
		return fmt.Errorf("read status: %w", err)
	}
	st, err := domain.ParseStatus(prev)
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}
	rec.Existed = true
	rec.Previous = st

	_, err = tx.Exec(ctx, `
UPDATE `+s.status+`
   SET status           = $2,
       message          = $3,
       response_time_ms = $4,
       last_checked     = $5,
       checked_at       = $6
 WHERE name = $1`,
		name, string(obs.Status), obs.Message, obs.ResponseTimeMS, obs.LastChecked, obs.CheckedAt)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, name string) (*domain.TargetStatus, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT name, status, message, response_time_ms, last_checked, checked_at
		   FROM `+s.status+`
		  WHERE name = $1`, name)
	doc, err := scanStatus(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	trails, err := s.loadHistory(ctx, `WHERE name = $1`, name)
	if err != nil {
		return nil, err
	}
	doc.History = trails[name]
	return doc, nil
}

func (s *Store) List(ctx context.Context) ([]domain.TargetStatus, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, status, message, response_time_ms, last_checked, checked_at
		   FROM `+s.status+`
		  ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list status: %w", err)
	}
	defer rows.Close()

	var out []domain.TargetStatus
	for rows.Next() {
		doc, err := scanStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("scan status: %w", err)
		}
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	trails, err := s.loadHistory(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].History = trails[out[i].Name]
	}
	return out, nil
}

func (s *Store) loadHistory(ctx context.Context, where string, args ...any) (map[string][]domain.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, status, date, response_time_ms FROM `+s.trail+` `+where+` ORDER BY name, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.HistoryEntry)
	for rows.Next() {
		var (
			name   string
			status string
			e      domain.HistoryEntry
		)
		if err := rows.Scan(&name, &status, &e.Date, &e.ResponseTimeMS); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if e.Status, err = domain.ParseStatus(status); err != nil {
			return nil, fmt.Errorf("history of %q: %w", name, err)
		}
		out[name] = append(out[name], e)
	}
	return out, rows.Err()
}

func scanStatus(row pgx.Row) (*domain.TargetStatus, error) {
	var (
		doc    domain.TargetStatus
		status string
	)
	if err := row.Scan(&doc.Name, &status, &doc.Message, &doc.ResponseTimeMS, &doc.LastChecked, &doc.CheckedAt); err != nil {
		return nil, err
	}
	st, err := domain.ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("status of %q: %w", doc.Name, err)
	}
	doc.Status = st
	return &doc, nil
}
