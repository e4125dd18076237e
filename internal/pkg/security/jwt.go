package security

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenMissing   = errors.New("token 为空")
	ErrTokenMalformed = errors.New("token 格式不正确")
	ErrTokenExpired   = errors.New("token 已过期")
)

// InspectToken 解析访问令牌但不校验签名（签名由后端校验），只检查格式与过期时间
func InspectToken(tokenString string) (*SessionClaims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return nil, ErrTokenMissing
	}

	claims := &SessionClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return claims, ErrTokenExpired
	}
	return claims, nil
}

// TokenProvider 提供当前会话的访问令牌
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// StaticTokenProvider 持有一个由外部设置的令牌，可在运行时替换
type StaticTokenProvider struct {
	mu    sync.RWMutex
	token string
}

func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{token: strings.TrimSpace(token)}
}

func (s *StaticTokenProvider) AccessToken(_ context.Context) (string, error) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if token == "" {
		return "", ErrTokenMissing
	}
	if _, err := InspectToken(token); err != nil {
		return "", err
	}
	return token, nil
}

// SetToken 替换令牌（重新登录后）
func (s *StaticTokenProvider) SetToken(token string) {
	s.mu.Lock()
	s.token = strings.TrimSpace(token)
	s.mu.Unlock()
}
