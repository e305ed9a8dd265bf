package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskward/internal/domain"
	"github.com/phrazzld/taskward/internal/platform/logger"
	"github.com/phrazzld/taskward/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// Create implements store.TaskStore.Create
// It saves a new task to the database, handling domain validation.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := `
		INSERT INTO tasks (id, name, description, status, deadline, owner_id, created_at, completed_at, expired_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.Name,
		task.Description,
		task.Status,
		task.Deadline,
		task.OwnerID,
		task.CreatedAt,
		task.CompletedAt,
		task.ExpiredAt,
	)
	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.Time("deadline", task.Deadline))
	return nil
}

// GetByID implements store.TaskStore.GetByID
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, name, description, status, deadline, owner_id, created_at, completed_at, expired_at
		FROM tasks
		WHERE id = $1
	`
	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, MapError(err)
	}

	return task, nil
}

// Update implements store.TaskStore.Update
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during update",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := `
		UPDATE tasks
		SET name = $1, description = $2, status = $3, deadline = $4,
		    owner_id = $5, completed_at = $6, expired_at = $7
		WHERE id = $8
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		task.Name,
		task.Description,
		task.Status,
		task.Deadline,
		task.OwnerID,
		task.CompletedAt,
		task.ExpiredAt,
		task.ID,
	)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUpdateFailed, err)
	}
	if rows == 0 {
		return store.ErrTaskNotFound
	}

	return nil
}

// ListAll implements store.TaskStore.ListAll
// The expiration sweep accepts a full scan at this system's scale.
func (s *PostgresTaskStore) ListAll(ctx context.Context) ([]domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, name, description, status, deadline, owner_id, created_at, completed_at, expired_at
		FROM tasks
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to list tasks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Warn("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row", slog.String("error", err.Error()))
			return nil, MapError(err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return tasks, nil
}

// UpdateStatusExpired implements store.TaskStore.UpdateStatusExpired
// The update is limited to the status and expired-at columns so concurrent
// edits to other fields are not clobbered by a full-row rewrite.
func (s *PostgresTaskStore) UpdateStatusExpired(
	ctx context.Context,
	id uuid.UUID,
	expiredAt time.Time,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET status = $1, expired_at = $2
		WHERE id = $3
	`
	result, err := s.db.ExecContext(ctx, query, domain.StatusExpired, expiredAt, id)
	if err != nil {
		log.Error("failed to update task status to expired",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return MapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUpdateFailed, err)
	}
	if rows == 0 {
		return store.ErrTaskNotFound
	}

	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanTask.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var description sql.NullString
	var completedAt, expiredAt sql.NullTime

	err := row.Scan(
		&task.ID,
		&task.Name,
		&description,
		&task.Status,
		&task.Deadline,
		&task.OwnerID,
		&task.CreatedAt,
		&completedAt,
		&expiredAt,
	)
	if err != nil {
		return nil, err
	}

	task.Description = description.String
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}
	if expiredAt.Valid {
		task.ExpiredAt = &expiredAt.Time
	}

	return &task, nil
}
