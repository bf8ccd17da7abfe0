// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hufs-wider/wider/internal/model"
)

// UserRepository はユーザー（認証情報）の永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, userID string) (*model.User, error)

	// ExistsByID は指定IDのユーザーが存在するかを返す。
	ExistsByID(ctx context.Context, userID string) (bool, error)

	// Create はユーザーを作成する。
	// ユーザーIDが重複する場合はUSER_ALREADY_EXISTSのAPIErrorを返す。
	Create(ctx context.Context, user *model.User) error

	// Update はパスワードハッシュ・生年月日・性別を上書き更新する。
	// 対象が存在しない場合はUSER_NOT_FOUNDのAPIErrorを返す。
	Update(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 対象が存在しない場合はUSER_NOT_FOUNDのAPIErrorを返す。
	DeleteByID(ctx context.Context, userID string) error
}

// SessionRecordRepository は学習セッション記録（session_logs）の永続化インターフェース。
type SessionRecordRepository interface {
	// ListByUserID はユーザーの全セッション記録をstarted_at降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.SessionRecord, error)

	// FindByID は指定IDのセッション記録を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, sessionID string) (*model.SessionRecord, error)

	// Create はセッション記録を作成する。
	// 同一IDの記録が既に存在する場合は何もせずfalseを返す。
	Create(ctx context.Context, record *model.SessionRecord) (bool, error)

	// UpdateBloomLevel は進行中セッションの現在のBloomレベルを更新する。
	UpdateBloomLevel(ctx context.Context, sessionID string, level int) error

	// MarkCompleted はセッションを完了状態にする。
	// 既に完了している場合はcompleted_atを維持する。対象が存在しない場合はfalseを返す。
	MarkCompleted(ctx context.Context, sessionID string, completedAt time.Time) (bool, error)

	// DeleteByUserID は指定ユーザーの全セッション記録を削除する。
	DeleteByUserID(ctx context.Context, userID string) error

	// ListLevelProgress はユーザーの各セッションで到達した最大Bloomレベルを
	// started_at降順で返す。質問が存在しないセッションは0となる。
	ListLevelProgress(ctx context.Context, userID string) ([]model.LevelProgress, error)
}
