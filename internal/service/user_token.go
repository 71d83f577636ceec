package service

import (
	"errors"
	"strings"
	"time"

	"github.com/dujiao-next/foodcart/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

const defaultUserJWTExpireHours = 24 * 7

var (
	// ErrUserTokenInvalid 用户 token 无效
	ErrUserTokenInvalid = errors.New("user token invalid")
	// ErrJWTSecretMissing 未配置 JWT 密钥
	ErrJWTSecretMissing = errors.New("user jwt secret is not configured")
)

// UserJWTClaims 用户 JWT 声明
type UserJWTClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// UserTokenService 用户 token 签发与校验，购物车据此解析身份键
type UserTokenService struct {
	cfg config.JWTConfig
}

// NewUserTokenService 创建用户 token 服务
func NewUserTokenService(cfg config.JWTConfig) *UserTokenService {
	return &UserTokenService{cfg: cfg}
}

// Enabled 是否配置了密钥
func (s *UserTokenService) Enabled() bool {
	return s != nil && strings.TrimSpace(s.cfg.SecretKey) != ""
}

// GenerateUserJWT 生成用户 JWT Token
func (s *UserTokenService) GenerateUserJWT(userID uint, expireHours int) (string, time.Time, error) {
	if !s.Enabled() {
		return "", time.Time{}, ErrJWTSecretMissing
	}
	if userID == 0 {
		return "", time.Time{}, ErrUserTokenInvalid
	}
	resolvedHours := expireHours
	if resolvedHours <= 0 {
		resolvedHours = s.cfg.ExpireHours
	}
	if resolvedHours <= 0 {
		resolvedHours = defaultUserJWTExpireHours
	}
	now := time.Now()
	expiresAt := now.Add(time.Duration(resolvedHours) * time.Hour)
	claims := UserJWTClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseUserJWT 解析用户 JWT Token
func (s *UserTokenService) ParseUserJWT(tokenString string) (*UserJWTClaims, error) {
	if !s.Enabled() {
		return nil, ErrJWTSecretMissing
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &UserJWTClaims{}
	token, err := parser.ParseWithClaims(strings.TrimSpace(tokenString), claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.SecretKey), nil
	})
	if err != nil {
		return nil, errors.Join(ErrUserTokenInvalid, err)
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, ErrUserTokenInvalid
	}
	return claims, nil
}
