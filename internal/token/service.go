// Package token はユーザー識別用のJWTの発行と検証を提供する。
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hufs-wider/wider/internal/model"
)

// TTL は発行するトークンの有効期間。
const TTL = 10 * time.Hour

// bearerPrefix はAuthorizationヘッダー値に付与されるプレフィックス。
const bearerPrefix = "Bearer "

// Config はトークン署名の設定を保持する。生成後は変更しない。
type Config struct {
	// Secret はHS256署名に使用する共有鍵。
	Secret []byte
}

// Service はJWTの発行・解析・検証を行う。
// 署名鍵はConfigとして生成時に注入され、パッケージ変数には保持しない。
type Service struct {
	secret []byte
	parser *jwt.Parser
	now    func() time.Time
}

// NewService はServiceを生成する。
func NewService(cfg Config) *Service {
	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	return &Service{
		secret: secret,
		// 有効期限の判定はValidateのみで行うため、パース時のclaims検証は無効化する
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
		now: time.Now,
	}
}

// Issue はユーザーIDをsubjectとするトークンを発行する。
// iatは現在時刻、expはiat+10時間となる。
func (s *Service) Issue(userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", model.NewValidationError("user_id is required")
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(TTL)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// ExtractUserID はトークンのsubjectを返す。
// "Bearer " プレフィックスは取り除く。有効期限は検査しない。
func (s *Service) ExtractUserID(tok string) (string, error) {
	claims, err := s.parse(tok)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ExtractExpiration はトークンの有効期限を返す。
// "Bearer " プレフィックスは取り除く。有効期限切れでもエラーにはしない。
func (s *Service) ExtractExpiration(tok string) (time.Time, error) {
	claims, err := s.parse(tok)
	if err != nil {
		return time.Time{}, err
	}
	return claims.ExpiresAt.Time, nil
}

// Validate はトークンのsubjectがexpectedUserIDと一致し、かつ有効期限内であればtrueを返す。
// 形式不正や署名不正はfalseではなくInvalidTokenErrorとして返す。
func (s *Service) Validate(tok, expectedUserID string) (bool, error) {
	claims, err := s.parse(tok)
	if err != nil {
		return false, err
	}
	if claims.Subject != expectedUserID {
		return false, nil
	}
	return s.now().Before(claims.ExpiresAt.Time), nil
}

// parse はプレフィックスを除去した上で署名を検証し、claimsを返す。
func (s *Service) parse(tok string) (*jwt.RegisteredClaims, error) {
	tok = strings.TrimSpace(strings.TrimPrefix(tok, bearerPrefix))
	if tok == "" {
		return nil, model.NewInvalidTokenError(errors.New("token is empty"))
	}

	claims := &jwt.RegisteredClaims{}
	_, err := s.parser.ParseWithClaims(tok, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, model.NewInvalidTokenError(err)
	}
	if claims.Subject == "" {
		return nil, model.NewInvalidTokenError(errors.New("subject is missing"))
	}
	if claims.ExpiresAt == nil {
		return nil, model.NewInvalidTokenError(errors.New("expiration is missing"))
	}
	return claims, nil
}
