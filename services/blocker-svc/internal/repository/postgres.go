package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"netblock/pkg/apperror"
	"netblock/pkg/database"
	"netblock/pkg/domain"
	"netblock/pkg/telemetry"
)

// PostgresRunRepository PostgreSQL реализация
type PostgresRunRepository struct {
	db database.DB
}

// NewPostgresRunRepository создаёт новый репозиторий
func NewPostgresRunRepository(db database.DB) *PostgresRunRepository {
	return &PostgresRunRepository{db: db}
}

const insertRunQuery = `
	INSERT INTO solve_runs (
		id, input_path, network_hash, node_count, link_count,
		target_flow, ceiling, cost, iterations, duration_ms,
		oracle, cached, status, error_code, error_message, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
`

// Связи возвращаются двумя массивами в порядке position
const selectRunColumns = `
	SELECT
		r.id::text, r.input_path, r.network_hash, r.node_count, r.link_count,
		r.target_flow, r.ceiling, r.cost, r.iterations, r.duration_ms,
		r.oracle, r.cached, r.status, r.error_code, r.error_message, r.created_at,
		ARRAY(SELECT l.head FROM solve_run_links l WHERE l.run_id = r.id ORDER BY l.position),
		ARRAY(SELECT l.tail FROM solve_run_links l WHERE l.run_id = r.id ORDER BY l.position)
	FROM solve_runs r
`

var linkColumns = []string{"run_id", "position", "head", "tail"}

func (r *PostgresRunRepository) Save(ctx context.Context, run *Run) error {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.Save")
	defer span.End()

	id, err := prepareRun(run)
	if err != nil {
		return err
	}

	err = database.WithTransaction(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insertRunQuery,
			id,
			run.InputPath,
			run.NetworkHash,
			run.NodeCount,
			run.LinkCount,
			run.TargetFlow,
			run.Ceiling,
			run.Cost,
			run.Iterations,
			durationMs(run.Duration),
			run.Oracle,
			run.Cached,
			string(run.Status),
			nullable(run.ErrorCode),
			nullable(run.ErrorMessage),
			run.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert solve run: %w", err)
		}

		if len(run.Blocked) == 0 {
			return nil
		}
		rows := make([][]any, len(run.Blocked))
		for i, k := range run.Blocked {
			rows[i] = []any{id, i, k.Head, k.Tail}
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"solve_run_links"}, linkColumns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("failed to insert blocked links: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.SetError(ctx, err)
		return apperror.Wrap(err, apperror.CodeUnavailable, "failed to save solve run")
	}
	return nil
}

func (r *PostgresRunRepository) Get(ctx context.Context, id string) (*Run, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.Get")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrRunNotFound(id)
	}

	run, err := scanRun(r.db.QueryRow(ctx, selectRunColumns+` WHERE r.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound(id)
		}
		return nil, apperror.Wrap(err, apperror.CodeUnavailable, "failed to get solve run")
	}
	return run, nil
}

func (r *PostgresRunRepository) List(ctx context.Context, limit int) ([]*Run, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresRunRepository.List")
	defer span.End()

	rows, err := r.db.Query(ctx, selectRunColumns+` ORDER BY r.created_at DESC LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeUnavailable, "failed to list solve runs")
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeUnavailable, "failed to scan solve run")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeUnavailable, "rows iteration error")
	}
	return runs, nil
}

func scanRun(row pgx.Row) (*Run, error) {
	var (
		run        Run
		status     string
		durationMs float64
		errCode    *string
		errMessage *string
		heads      []int64
		tails      []int64
	)
	err := row.Scan(
		&run.ID,
		&run.InputPath,
		&run.NetworkHash,
		&run.NodeCount,
		&run.LinkCount,
		&run.TargetFlow,
		&run.Ceiling,
		&run.Cost,
		&run.Iterations,
		&durationMs,
		&run.Oracle,
		&run.Cached,
		&status,
		&errCode,
		&errMessage,
		&run.CreatedAt,
		&heads,
		&tails,
	)
	if err != nil {
		return nil, err
	}
	if len(heads) != len(tails) {
		return nil, fmt.Errorf("run %s: %d heads but %d tails", run.ID, len(heads), len(tails))
	}

	run.Status = Status(status)
	run.Duration = time.Duration(durationMs * float64(time.Millisecond))
	if errCode != nil {
		run.ErrorCode = *errCode
	}
	if errMessage != nil {
		run.ErrorMessage = *errMessage
	}
	run.Blocked = make([]domain.LinkKey, len(heads))
	for i := range heads {
		run.Blocked[i] = domain.LinkKey{Head: heads[i], Tail: tails[i]}
	}
	return &run, nil
}

// prepareRun заполняет ID и время создания, проверяет формат ID
func prepareRun(run *Run) (uuid.UUID, error) {
	if run == nil {
		return uuid.Nil, apperror.New(apperror.CodeInvalidArgument, "run is nil")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	id, err := uuid.Parse(run.ID)
	if err != nil {
		return uuid.Nil, apperror.Wrap(err, apperror.CodeInvalidArgument, "run id is not a UUID").
			WithField("id")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = StatusSolved
	}
	return id, nil
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
