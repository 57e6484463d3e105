package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"wisefido-nurse/internal/domain"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// DefaultNotifyChannel tasks 表触发器 NOTIFY 使用的频道
const DefaultNotifyChannel = "tasks_changed"

// notifier pq.Listener 中 Watch 用到的部分
type notifier interface {
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

// PostgresRemote 直连 PostgreSQL（lib/pq），变更通过 LISTEN/NOTIFY 推送
type PostgresRemote struct {
	db          *sql.DB
	triggeredBy string
	logger      *zap.Logger

	newListener func() (notifier, error)
}

var _ Remote = (*PostgresRemote)(nil)

// NewPostgresRemote 创建 PostgreSQL 后端；dsn 用于 LISTEN 专用连接
func NewPostgresRemote(db *sql.DB, dsn, channel, triggeredBy string, logger *zap.Logger) *PostgresRemote {
	if channel == "" {
		channel = DefaultNotifyChannel
	}
	r := &PostgresRemote{db: db, triggeredBy: triggeredBy, logger: logger}
	r.newListener = func() (notifier, error) {
		l := pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
			if err != nil {
				logger.Warn("Postgres listener event", zap.Int("event", int(ev)), zap.Error(err))
			}
		})
		if err := l.Listen(channel); err != nil {
			_ = l.Close()
			return nil, fmt.Errorf("failed to listen on %s: %w", channel, err)
		}
		return l, nil
	}
	return r
}

// Name 后端名称
func (r *PostgresRemote) Name() string { return "postgres" }

// SaveTask upsert 任务
func (r *PostgresRemote) SaveTask(ctx context.Context, task domain.Task) error {
	row := TaskRowFromDomain(task)

	var readings any
	if row.Readings != nil {
		b, err := json.Marshal(row.Readings)
		if err != nil {
			return fmt.Errorf("failed to marshal readings: %w", err)
		}
		readings = string(b)
	}

	query := `
		INSERT INTO tasks (
			id, title, description, priority, status,
			patient_id, room, created_at, completed_at, qr_verified, readings
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			priority = EXCLUDED.priority,
			completed_at = EXCLUDED.completed_at,
			qr_verified = EXCLUDED.qr_verified,
			readings = EXCLUDED.readings
	`
	_, err := r.db.ExecContext(ctx, query,
		row.ID, row.Title, row.Description, row.Priority, row.Status,
		nullString(row.PatientID), nullString(row.Room), row.CreatedAt,
		row.CompletedAt, row.QRVerified, readings,
	)
	if err != nil {
		return fmt.Errorf("failed to save task %s: %w", task.ID, err)
	}
	return nil
}

// InsertEmergency 写入紧急呼叫
func (r *PostgresRemote) InsertEmergency(ctx context.Context, e domain.Emergency) error {
	row := EmergencyRowFromDomain(e, r.triggeredBy)

	query := `
		INSERT INTO emergencies (id, type, room, triggered_by, status, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		row.ID, row.Type, row.Room, nullString(row.TriggeredBy), row.Status, row.Note, row.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert emergency %s: %w", e.ID, err)
	}
	return nil
}

// FetchTasks 拉取全部任务（最新创建在前）
func (r *PostgresRemote) FetchTasks(ctx context.Context) ([]domain.Task, error) {
	query := `
		SELECT
			id, title, description, priority, status,
			patient_id, room, created_at, completed_at, qr_verified, readings
		FROM tasks
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var out []TaskRow
	for rows.Next() {
		var (
			row                        TaskRow
			description, patient, room sql.NullString
			completedAt                sql.NullTime
			readings                   []byte
		)
		if err := rows.Scan(
			&row.ID, &row.Title, &description, &row.Priority, &row.Status,
			&patient, &room, &row.CreatedAt, &completedAt, &row.QRVerified, &readings,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		row.Description = description.String
		row.PatientID = patient.String
		row.Room = room.String
		if completedAt.Valid {
			at := completedAt.Time
			row.CompletedAt = &at
		}
		if len(readings) > 0 {
			var tr domain.TaskReadings
			if err := json.Unmarshal(readings, &tr); err != nil {
				r.logger.Warn("Invalid readings payload", zap.String("task_id", row.ID), zap.Error(err))
			} else {
				row.Readings = &tr
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	tasks, errs := rowsToTasks(out)
	for _, e := range errs {
		r.logger.Warn("Skipping remote task", zap.Error(e))
	}
	return tasks, nil
}

// Watch 监听 NOTIFY；收到通知或重连后调用 onChange
func (r *PostgresRemote) Watch(ctx context.Context, onChange func()) error {
	l, err := r.newListener()
	if err != nil {
		return err
	}
	defer l.Close()

	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-l.NotificationChannel():
			// n == nil 表示连接重建，期间可能丢失通知，同样刷新
			if n != nil {
				r.logger.Debug("Task change notification", zap.String("channel", n.Channel), zap.String("extra", n.Extra))
			}
			onChange()
		case <-ping.C:
			if err := l.Ping(); err != nil {
				r.logger.Warn("Postgres listener ping failed", zap.Error(err))
			}
		}
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
