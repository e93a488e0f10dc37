package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/zeebo/errs"
)

var ErrJwt = errs.Class("jwt")

var ErrTokenExpired = errors.New("token expired")

type Config struct {
	TokenExpire        time.Duration `help:"token有效期" default:"2h"`
	RefreshTokenExpire time.Duration `help:"refresh token有效期" default:"168h"`
	Key                string        `help:"签名密钥" default:"" releaseDefault:""`
	Issuer             string        `help:"签发者" default:"tabexport"`
}

// TokenPayload token 中携带的用户信息
type TokenPayload struct {
	UserId   int64  `json:"uid"`
	Username string `json:"username"`
	Refresh  bool   `json:"refresh,omitempty"`
}

type claims struct {
	TokenPayload
	jwt.RegisteredClaims
}

type Jwt struct {
	config Config
	key    []byte
}

func NewJwt(config Config) *Jwt {
	return &Jwt{config: config, key: []byte(config.Key)}
}

// CreateToken 签发 token，返回过期时间戳
func (j *Jwt) CreateToken(payload TokenPayload) (string, int64, error) {
	payload.Refresh = false
	return j.sign(payload, j.config.TokenExpire)
}

// CreateRefreshToken 签发用于换取新 token 的 refresh token
func (j *Jwt) CreateRefreshToken(payload TokenPayload) (string, int64, error) {
	payload.Refresh = true
	return j.sign(payload, j.config.RefreshTokenExpire)
}

func (j *Jwt) sign(payload TokenPayload, expire time.Duration) (string, int64, error) {
	if len(j.key) == 0 {
		return "", 0, ErrJwt.New("empty signing key")
	}
	now := time.Now()
	exp := now.Add(expire)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		TokenPayload: payload,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	s, err := token.SignedString(j.key)
	if err != nil {
		return "", 0, ErrJwt.Wrap(err)
	}
	return s, exp.Unix(), nil
}

// ValidateToken 校验 token，过期时返回 ErrTokenExpired
func (j *Jwt) ValidateToken(tokenString string) (*TokenPayload, error) {
	var c claims
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if j.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.config.Issuer))
	}
	_, err := jwt.ParseWithClaims(tokenString, &c, func(token *jwt.Token) (any, error) {
		return j.key, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrJwt.Wrap(ErrTokenExpired)
		}
		return nil, ErrJwt.Wrap(err)
	}
	return &c.TokenPayload, nil
}
