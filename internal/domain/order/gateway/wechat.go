package gateway

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"beadshop/internal/pkg/config"
	"beadshop/pkg/metrics"
)

// ErrConfig 支付配置缺失，属于部署问题，无法降级
var ErrConfig = errors.New("wechat pay config missing")

// UpstreamError 微信侧返回的失败，携带原始错误描述
type UpstreamError struct {
	Msg string
}

func (e *UpstreamError) Error() string {
	return "wechat gateway: " + e.Msg
}

// ClientParams 小程序端拉起支付收银台所需的参数
type ClientParams struct {
	AppID     string `json:"appId"`
	TimeStamp string `json:"timeStamp"`
	NonceStr  string `json:"nonceStr"`
	Package   string `json:"package"`
	SignType  string `json:"signType"`
	PaySign   string `json:"paySign"`
}

// Notification 回调中业务关心的字段
type Notification struct {
	OutTradeNo    string
	TransactionID string
	TotalFee      int64
}

// Amount 返回回调金额（分转元）
func (n *Notification) Amount() float64 {
	return float64(n.TotalFee) / 100
}

// Gateway 微信支付 v2 适配器：统一下单、收银台参数、回调验签
type Gateway struct {
	cfg    config.WechatPayConfig
	client *http.Client
	now    func() time.Time
}

func NewGateway(cfg config.WechatPayConfig) *Gateway {
	return &Gateway{
		cfg:    cfg,
		client: http.DefaultClient,
		now:    time.Now,
	}
}

// Configured 支付功能是否可用
func (g *Gateway) Configured() bool {
	return g.cfg.AppID != "" && g.cfg.MchID != "" && g.cfg.APIKey != "" && g.cfg.NotifyURL != ""
}

// Prepay 统一下单并派生收银台参数。
// totalPrice 单位为元，orderID 同时作为商户订单号 out_trade_no。
func (g *Gateway) Prepay(orderID string, totalPrice float64, description, openid string) (*ClientParams, error) {
	if !g.Configured() {
		return nil, ErrConfig
	}

	totalFee := int64(math.Round(totalPrice * 100))
	if totalFee < 1 {
		totalFee = 1
	}
	if g.cfg.ForceTestFee {
		// 联调开关：固定 1 分钱下单
		totalFee = 1
	}

	if description == "" {
		description = "商品支付"
	}

	params := map[string]string{
		"appid":            g.cfg.AppID,
		"mch_id":           g.cfg.MchID,
		"nonce_str":        NonceStr(),
		"body":             description,
		"out_trade_no":     orderID,
		"total_fee":        strconv.FormatInt(totalFee, 10),
		"spbill_create_ip": "127.0.0.1",
		"notify_url":       g.cfg.NotifyURL,
		"trade_type":       "JSAPI",
		"openid":           openid,
		"attach":           "orderId=" + orderID,
	}
	params["sign"] = Sign(params, g.cfg.APIKey)

	resp, err := g.client.Post(g.cfg.UnifiedOrderURL, "text/xml", bytes.NewReader(Marshal(params)))
	if err != nil {
		metrics.GatewayRequests.WithLabelValues("transport_error").Inc()
		return nil, fmt.Errorf("unifiedorder request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unifiedorder read response: %w", err)
	}

	fields, err := Unmarshal(body)
	if err != nil {
		metrics.GatewayRequests.WithLabelValues("bad_response").Inc()
		return nil, err
	}

	if fields["return_code"] != "SUCCESS" {
		metrics.GatewayRequests.WithLabelValues("return_fail").Inc()
		return nil, &UpstreamError{Msg: orDefault(fields["return_msg"], "unknown")}
	}
	if fields["result_code"] != "SUCCESS" {
		metrics.GatewayRequests.WithLabelValues("result_fail").Inc()
		return nil, &UpstreamError{Msg: orDefault(fields["err_code_des"], "unknown")}
	}

	prepayID := fields["prepay_id"]
	if prepayID == "" {
		metrics.GatewayRequests.WithLabelValues("no_prepay_id").Inc()
		return nil, &UpstreamError{Msg: "no prepay_id returned"}
	}

	metrics.GatewayRequests.WithLabelValues("ok").Inc()
	return g.clientParams(prepayID), nil
}

// clientParams 第二次签名：字段集合不同，算法相同
func (g *Gateway) clientParams(prepayID string) *ClientParams {
	p := &ClientParams{
		AppID:     g.cfg.AppID,
		TimeStamp: strconv.FormatInt(g.now().Unix(), 10),
		NonceStr:  NonceStr(),
		Package:   "prepay_id=" + prepayID,
		SignType:  "MD5",
	}
	p.PaySign = Sign(map[string]string{
		"appId":     p.AppID,
		"timeStamp": p.TimeStamp,
		"nonceStr":  p.NonceStr,
		"package":   p.Package,
		"signType":  p.SignType,
	}, g.cfg.APIKey)
	return p
}

// ParseNotification 解析回调报文为字段表
func (g *Gateway) ParseNotification(raw []byte) (map[string]string, error) {
	return Unmarshal(raw)
}

// VerifySign 用收到的全部字段重算签名并比对
func (g *Gateway) VerifySign(fields map[string]string) bool {
	received := fields["sign"]
	if received == "" {
		return false
	}
	return Sign(fields, g.cfg.APIKey) == received
}

// Ack 构造回调应答报文；FAIL 会触发微信重试投递
func Ack(success bool, msg string) []byte {
	code := "SUCCESS"
	if !success {
		code = "FAIL"
	}
	return Marshal(map[string]string{
		"return_code": code,
		"return_msg":  msg,
	})
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
