package security

import (
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims 后端签发的访问令牌中客户端关心的部分
type SessionClaims struct {
	UserID int64 `json:"userId,omitempty"`
	jwt.RegisteredClaims
}
