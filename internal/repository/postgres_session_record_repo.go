package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hufs-wider/wider/internal/model"
)

const sessionRecordColumns = `session_id, user_id, topic, started_at, completed, completed_at, bloom_level`

// PostgresSessionRecordRepo はPostgreSQLを使用したセッション記録リポジトリ。
type PostgresSessionRecordRepo struct {
	db *sql.DB
}

// NewPostgresSessionRecordRepo はPostgresSessionRecordRepoを生成する。
func NewPostgresSessionRecordRepo(db *sql.DB) *PostgresSessionRecordRepo {
	return &PostgresSessionRecordRepo{db: db}
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSessionRecord(s rowScanner) (*model.SessionRecord, error) {
	rec := &model.SessionRecord{}
	var completedAt sql.NullTime
	if err := s.Scan(
		&rec.SessionID, &rec.UserID, &rec.Topic, &rec.StartedAt,
		&rec.Completed, &completedAt, &rec.BloomLevel,
	); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		rec.CompletedAt = &t
	}
	return rec, nil
}

// ListByUserID はユーザーの全セッション記録をstarted_at降順で返す。
func (r *PostgresSessionRecordRepo) ListByUserID(ctx context.Context, userID string) ([]*model.SessionRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionRecordColumns+`
		 FROM session_logs
		 WHERE user_id = $1
		 ORDER BY started_at DESC, session_id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list session records: %w", err)
	}
	defer rows.Close()

	records := make([]*model.SessionRecord, 0)
	for rows.Next() {
		rec, err := scanSessionRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session records: %w", err)
	}
	return records, nil
}

// FindByID は指定IDのセッション記録を取得する。見つからない場合はnilを返す。
func (r *PostgresSessionRecordRepo) FindByID(ctx context.Context, sessionID string) (*model.SessionRecord, error) {
	rec, err := scanSessionRecord(r.db.QueryRowContext(ctx,
		`SELECT `+sessionRecordColumns+` FROM session_logs WHERE session_id = $1`,
		sessionID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session record: %w", err)
	}
	return rec, nil
}

// Create はセッション記録を作成する。
// チャットボット側が先に記録を作成している場合があるため、重複時は何もしない。
func (r *PostgresSessionRecordRepo) Create(ctx context.Context, rec *model.SessionRecord) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO session_logs (session_id, user_id, topic, started_at, completed, completed_at, bloom_level)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (session_id) DO NOTHING`,
		rec.SessionID, rec.UserID, rec.Topic, rec.StartedAt, rec.Completed, rec.CompletedAt, rec.BloomLevel,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create session record: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// UpdateBloomLevel は進行中セッションの現在のBloomレベルを更新する。
// 完了済みのセッションは変更しない。
func (r *PostgresSessionRecordRepo) UpdateBloomLevel(ctx context.Context, sessionID string, level int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE session_logs SET bloom_level = $2 WHERE session_id = $1 AND completed = false`,
		sessionID, level,
	)
	if err != nil {
		return fmt.Errorf("failed to update bloom level: %w", err)
	}
	return nil
}

// MarkCompleted はセッションを完了状態にする。
// 既に完了している場合はcompleted_atを維持する。
func (r *PostgresSessionRecordRepo) MarkCompleted(ctx context.Context, sessionID string, completedAt time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE session_logs
		 SET completed = true, completed_at = COALESCE(completed_at, $2)
		 WHERE session_id = $1`,
		sessionID, completedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark session completed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteByUserID は指定ユーザーの全セッション記録を削除する。
func (r *PostgresSessionRecordRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM session_logs WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user session records: %w", err)
	}
	return nil
}

// ListLevelProgress はユーザーの各セッションで到達した最大Bloomレベルを返す。
func (r *PostgresSessionRecordRepo) ListLevelProgress(ctx context.Context, userID string) ([]model.LevelProgress, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.session_id, s.started_at, COALESCE(MAX(q.bloom_level), 0)
		 FROM session_logs s
		 LEFT JOIN questions q ON q.session_id = s.session_id
		 WHERE s.user_id = $1
		 GROUP BY s.session_id, s.started_at
		 ORDER BY s.started_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list level progress: %w", err)
	}
	defer rows.Close()

	progress := make([]model.LevelProgress, 0)
	for rows.Next() {
		var p model.LevelProgress
		if err := rows.Scan(&p.SessionID, &p.StartedAt, &p.MaxBloomLevel); err != nil {
			return nil, fmt.Errorf("failed to scan level progress: %w", err)
		}
		progress = append(progress, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate level progress: %w", err)
	}
	return progress, nil
}

// compile-time interface check
var _ SessionRecordRepository = (*PostgresSessionRecordRepo)(nil)
