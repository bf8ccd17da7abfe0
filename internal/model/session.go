// Package model はドメインモデルを定義する。
package model

import "time"

// SessionRecord はチャットボットとの1回の学習セッションの記録を表す。
// session_logsテーブルの1行に対応する。
type SessionRecord struct {
	SessionID   string
	UserID      string
	Topic       string
	StartedAt   time.Time
	Completed   bool
	CompletedAt *time.Time // 未完了の場合はnil
	BloomLevel  int
}

// MonthlyBloomCount は（月, Bloomレベル）ごとの完了セッション数を表す。
type MonthlyBloomCount struct {
	Month      string // "2006-01" 形式
	BloomLevel int
	Count      int
}

// LevelProgress はセッションごとの到達Bloomレベルを表す。
// questionsテーブルの最大bloom_levelから算出される。
type LevelProgress struct {
	SessionID     string
	StartedAt     time.Time
	MaxBloomLevel int
}
