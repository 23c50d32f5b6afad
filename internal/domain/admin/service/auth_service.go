package service

import (
	"crypto/subtle"
	"errors"
	"time"

	"beadshop/internal/pkg/config"
	"beadshop/pkg/utils"
)

// ErrBadCredentials 用户名或密码错误
var ErrBadCredentials = errors.New("invalid username or password")

// LoginResult 登录成功返回的令牌信息
type LoginResult struct {
	Token     string     `json:"token"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

type AuthService interface {
	Login(username, password string) (*LoginResult, error)
}

// authService 管理后台只有配置里的一个内置账号，不走数据库
type authService struct {
	cfg config.AdminConfig
}

func NewAuthService(cfg config.AdminConfig) AuthService {
	return &authService{cfg: cfg}
}

func (s *authService) Login(username, password string) (*LoginResult, error) {
	// 常数时间比较，避免逐字节短路泄露前缀
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.Password)) == 1
	if !userOK || !passOK {
		return nil, ErrBadCredentials
	}

	token, expiresAt, err := utils.GenerateToken(username, utils.RoleAdmin)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt}, nil
}
