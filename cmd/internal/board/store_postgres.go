package board

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskboard/cmd/identity"
)

// PostgresStore implements Store over PostgreSQL.
//
// Design notes:
// - The pgx pool is owned by the caller; this store must NOT close it.
// - Reads resolve assignee/creator display names with LEFT JOINs so a
//   detached reference degrades to a null name instead of dropping the task.
// - UpdateStatus is a single conditional UPDATE; the row count is the
//   compare-and-swap verdict.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the store (default "taskboard").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("board: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("board: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "taskboard",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("board: nil pool")
	}
	return st, nil
}

const taskSelect = `
	SELECT t.id, t.title, t.description, t.status,
	       t.assigned_to, t.created_by, t.created_at, t.updated_at,
	       ua.name AS assigned_to_name, uc.name AS created_by_name`

func (s *PostgresStore) taskFrom() string {
	tasks := pgIdent(s.schema, "tasks")
	users := pgIdent(s.schema, "users")
	return ` FROM ` + tasks + ` t
	  LEFT JOIN ` + users + ` ua ON ua.id = t.assigned_to
	  LEFT JOIN ` + users + ` uc ON uc.id = t.created_by`
}

// CreateTask inserts a new task in BACKLOG. A nonexistent assignee surfaces
// as NotFoundError via the FK check.
func (s *PostgresStore) CreateTask(ctx context.Context, in CreateTaskInput) (Task, error) {
	const op = "board.CreateTask"

	if s == nil || s.pool == nil {
		return Task{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return Task{}, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Task{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "title is required"}
	}
	createdBy := strings.TrimSpace(in.CreatedBy)
	if createdBy == "" {
		return Task{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "creator is required"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	taskID, err := identity.NewULID(now)
	if err != nil {
		return Task{}, err
	}

	tasks := pgIdent(s.schema, "tasks")
	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+tasks+` (
		     id, title, description, status, assigned_to, created_by, created_at, updated_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		taskID, title, in.Description, string(StatusBacklog), in.AssignedTo, createdBy, now,
	)
	if err != nil {
		if pgIsForeignKeyViolation(err) {
			return Task{}, NotFoundError{Op: op, Resource: "user"}
		}
		return Task{}, err
	}

	return s.GetTaskByID(ctx, taskID)
}

// GetTaskByID loads one task with resolved display names.
func (s *PostgresStore) GetTaskByID(ctx context.Context, id string) (Task, error) {
	const op = "board.GetTaskByID"

	if err := ctx.Err(); err != nil {
		return Task{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Task{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing id"}
	}

	row := s.pool.QueryRow(ctx, taskSelect+s.taskFrom()+` WHERE t.id = $1`, id)
	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, NotFoundError{Op: op, Resource: "task"}
	}
	if err != nil {
		return Task{}, err
	}
	return t, nil
}

// ListTasks returns the whole board, newest first.
func (s *PostgresStore) ListTasks(ctx context.Context) ([]Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, taskSelect+s.taskFrom()+` ORDER BY t.created_at DESC, t.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTask applies a partial update of title/description/assignment.
func (s *PostgresStore) UpdateTask(ctx context.Context, in UpdateTaskInput) (Task, error) {
	const op = "board.UpdateTask"

	if err := ctx.Err(); err != nil {
		return Task{}, err
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return Task{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing id"}
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return Task{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty title"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	set := []string{"updated_at = $2"}
	args := []any{id, now}
	if in.Title != nil {
		args = append(args, strings.TrimSpace(*in.Title))
		set = append(set, fmt.Sprintf("title = $%d", len(args)))
	}
	if in.Description != nil {
		args = append(args, *in.Description)
		set = append(set, fmt.Sprintf("description = $%d", len(args)))
	}
	if in.SetAssignee {
		args = append(args, in.AssignedTo)
		set = append(set, fmt.Sprintf("assigned_to = $%d", len(args)))
	}

	tasks := pgIdent(s.schema, "tasks")
	tag, err := s.pool.Exec(ctx,
		`UPDATE `+tasks+` SET `+strings.Join(set, ", ")+` WHERE id = $1`,
		args...,
	)
	if err != nil {
		if pgIsForeignKeyViolation(err) {
			return Task{}, NotFoundError{Op: op, Resource: "user"}
		}
		return Task{}, err
	}
	if tag.RowsAffected() == 0 {
		return Task{}, NotFoundError{Op: op, Resource: "task"}
	}

	return s.GetTaskByID(ctx, id)
}

// UpdateStatus moves the task from one status to another only if it is still
// in the expected current status. Returns false if another writer got there
// first or the expected status no longer matches.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, from, to Status, now time.Time) (bool, error) {
	const op = "board.UpdateStatus"

	if err := ctx.Err(); err != nil {
		return false, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return false, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing id"}
	}
	if !from.Valid() || !to.Valid() {
		return false, OpError{Op: op, Kind: ErrInvalidInput, Msg: "unknown status"}
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tasks := pgIdent(s.schema, "tasks")
	tag, err := s.pool.Exec(ctx,
		`UPDATE `+tasks+`
		    SET status = $3, updated_at = $4
		  WHERE id = $1 AND status = $2`,
		id, string(from), string(to), now,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteTask removes a task.
func (s *PostgresStore) DeleteTask(ctx context.Context, id string) error {
	const op = "board.DeleteTask"

	if err := ctx.Err(); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing id"}
	}

	tasks := pgIdent(s.schema, "tasks")
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+tasks+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "task"}
	}
	return nil
}

func scanTask(row pgx.Row) (Task, error) {
	var (
		t      Task
		status string
	)
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &status,
		&t.AssignedTo, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
		&t.AssignedToName, &t.CreatedByName,
	)
	if err != nil {
		return Task{}, err
	}
	t.Status = Status(status)
	return t, nil
}

func pgIdent(schema, table string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}

func pgIsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
