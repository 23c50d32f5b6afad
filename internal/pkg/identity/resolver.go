package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"beadshop/internal/pkg/config"
)

// ErrConfig 小程序凭据缺失
var ErrConfig = errors.New("missing wechat app_id/app_secret")

// Session jscode2session 成功返回
type Session struct {
	OpenID     string `json:"openid"`
	SessionKey string `json:"session_key"`
	UnionID    string `json:"unionid"`
	ErrMsg     string `json:"errmsg"`
}

// Resolver 用一次性登录 code 换取稳定的 openid。
// code 是一次性的，上游不允许重放，因此这里不做任何缓存。
type Resolver struct {
	cfg    config.WechatPayConfig
	client *http.Client
}

func NewResolver(cfg config.WechatPayConfig) *Resolver {
	return &Resolver{cfg: cfg, client: http.DefaultClient}
}

// Resolve 换取 openid；上游未返回 openid 时透出 errmsg
func (r *Resolver) Resolve(code string) (string, error) {
	session, err := r.ResolveSession(code)
	if err != nil {
		return "", err
	}
	return session.OpenID, nil
}

// ResolveSession 换取完整会话信息（openid + session_key + unionid）
func (r *Resolver) ResolveSession(code string) (*Session, error) {
	if r.cfg.AppID == "" || r.cfg.AppSecret == "" {
		return nil, ErrConfig
	}

	q := url.Values{}
	q.Set("appid", r.cfg.AppID)
	q.Set("secret", r.cfg.AppSecret)
	q.Set("js_code", code)
	q.Set("grant_type", "authorization_code")

	resp, err := r.client.Get(r.cfg.AuthURL + "?" + q.Encode())
	if err != nil {
		return nil, fmt.Errorf("jscode2session request: %w", err)
	}
	defer resp.Body.Close()

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("jscode2session decode: %w", err)
	}

	if session.OpenID == "" {
		msg := session.ErrMsg
		if msg == "" {
			msg = "unknown"
		}
		return nil, fmt.Errorf("failed to get openid: %s", msg)
	}

	return &session, nil
}
