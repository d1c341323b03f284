// Package jwt 签发与校验 HS256 令牌。
// access 令牌用于 API 认证；refresh 令牌只用于换取新的令牌对，通常放在 HttpOnly Cookie 中。
package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/reinieltalplacido/classalign/config"
)

var (
	ErrTokenExpired   = errors.New("token 已过期")
	ErrTokenInvalid   = errors.New("token 无效")
	ErrTokenWrongType = errors.New("token 类型不匹配")
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	issuer = "classalign"
	leeway = 5 * time.Second
)

// Claims 令牌声明；Subject 与 UserID 相同，UserID 保留给前端直接读取。
// SessionID 在一次登录内签发的所有令牌间共享，刷新时沿用，登出时按它吊销整条会话。
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	SessionID string `json:"sid,omitempty"`
	jwtv5.RegisteredClaims
}

// Pair 一次登录或刷新签发的令牌对
type Pair struct {
	Access          string
	Refresh         string
	SessionID       string
	AccessExpiresAt time.Time
}

// Manager 令牌签发与校验
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewManager(cfg *config.AuthConfig) *Manager {
	return &Manager{
		secret:     []byte(cfg.JWTSecret),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		now:        time.Now,
	}
}

// IssuePair 同时签发 access 与 refresh 令牌，二者 JTI 互不相同、SessionID 相同。
// sessionID 为空时开启新会话（登录），刷新时传入原会话 ID。
func (m *Manager) IssuePair(userID, email, sessionID string) (*Pair, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	access, exp, err := m.sign(userID, email, sessionID, TokenTypeAccess, m.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, _, err := m.sign(userID, email, sessionID, TokenTypeRefresh, m.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &Pair{Access: access, Refresh: refresh, SessionID: sessionID, AccessExpiresAt: exp}, nil
}

func (m *Manager) GenerateAccessToken(userID, email string) (string, error) {
	tok, _, err := m.sign(userID, email, "", TokenTypeAccess, m.accessTTL)
	return tok, err
}

func (m *Manager) GenerateRefreshToken(userID, email string) (string, error) {
	tok, _, err := m.sign(userID, email, "", TokenTypeRefresh, m.refreshTTL)
	return tok, err
}

func (m *Manager) AccessTokenTTL() time.Duration  { return m.accessTTL }
func (m *Manager) RefreshTokenTTL() time.Duration { return m.refreshTTL }

func (m *Manager) sign(userID, email, sessionID, tokenType string, ttl time.Duration) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(ttl)
	claims := Claims{
		UserID:    userID,
		Email:     email,
		TokenType: tokenType,
		SessionID: sessionID,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(exp),
		},
	}
	signed, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(m.secret)
	return signed, exp, err
}

// ParseToken 校验签名、签发方与有效期，不限制令牌类型
func (m *Manager) ParseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwtv5.ParseWithClaims(raw, claims,
		func(*jwtv5.Token) (any, error) { return m.secret, nil },
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithIssuer(issuer),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithLeeway(leeway),
		jwtv5.WithTimeFunc(m.now),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwtv5.ErrTokenExpired):
		return nil, ErrTokenExpired
	default:
		return nil, ErrTokenInvalid
	}
	if claims.UserID == "" || claims.UserID != claims.Subject {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ParseAs 解析并要求令牌类型为 tokenType
func (m *Manager) ParseAs(raw, tokenType string) (*Claims, error) {
	claims, err := m.ParseToken(raw)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenType {
		return nil, ErrTokenWrongType
	}
	return claims, nil
}
