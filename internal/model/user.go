// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// Gender はユーザーの性別を表す。
type Gender string

const (
	// GenderMale は男性。
	GenderMale Gender = "MALE"
	// GenderFemale は女性。
	GenderFemale Gender = "FEMALE"
)

// ParseGender は大文字小文字を区別せずに性別文字列を解析する。
// 未知の値の場合はfalseを返す。
func ParseGender(s string) (Gender, bool) {
	switch Gender(strings.ToUpper(strings.TrimSpace(s))) {
	case GenderMale:
		return GenderMale, true
	case GenderFemale:
		return GenderFemale, true
	default:
		return "", false
	}
}

// User はサービス利用ユーザーを表す。
// PasswordHashには一方向ハッシュのみを保持し、生のパスワードは保持しない。
type User struct {
	UserID       string
	PasswordHash string
	BirthDate    time.Time
	Gender       Gender
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
