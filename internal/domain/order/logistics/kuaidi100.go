package logistics

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"beadshop/internal/domain/order/model"
	"beadshop/internal/pkg/config"
	"beadshop/pkg/logger"
	"beadshop/pkg/metrics"

	"go.uber.org/zap"
)

// Direction 查询方向：正向发货物流或售后退货物流
type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionReturn   Direction = "return"
)

// Completer 签收后回推订单完成，由订单服务实现
type Completer interface {
	AutoComplete(orderID string) error
}

// TrackingNode 单条轨迹
type TrackingNode struct {
	Time     string `json:"time"`
	Status   string `json:"status"`
	Location string `json:"location,omitempty"`
	Desc     string `json:"desc,omitempty"`
}

// TrackingView 对外展示的物流视图
type TrackingView struct {
	CarrierName    string         `json:"carrierName"`
	TrackingNumber string         `json:"trackingNumber"`
	Status         string         `json:"status"`
	PhoneTail      string         `json:"phoneTail,omitempty"`
	Nodes          []TrackingNode `json:"nodes"`
}

// carrierAliases 常用快递简称映射到快递100的标准编码
var carrierAliases = map[string]string{
	"zto":       "zhongtong",
	"zhongtong": "zhongtong",
	"yto":       "yuantong",
	"yuantong":  "yuantong",
	"sf":        "shunfeng",
	"shunfeng":  "shunfeng",
	"sto":       "shentong",
	"shentong":  "shentong",
	"yd":        "yunda",
	"yunda":     "yunda",
	"jd":        "jd",
	"jdexpress": "jd",
}

// stateText 快递100 state 字段到文案的映射
var stateText = map[string]string{
	"0": "在途",
	"1": "揽收",
	"2": "疑难",
	"3": "签收",
	"4": "退签",
	"5": "派件",
	"6": "退回",
	"7": "转单",
}

const stateDelivered = "3"

// NormalizeCarrier 归一化快递编码，未知编码原样转小写透传
func NormalizeCarrier(code string) string {
	c := strings.ToLower(strings.TrimSpace(code))
	if canonical, ok := carrierAliases[c]; ok {
		return canonical
	}
	return c
}

type queryResponse struct {
	Status string `json:"status"`
	State  string `json:"state"`
	Data   []struct {
		Time     string `json:"time"`
		Ftime    string `json:"ftime"`
		Context  string `json:"context"`
		Status   string `json:"status"`
		AreaName string `json:"areaName"`
	} `json:"data"`
}

// Tracker 快递100 查询适配器。
// 上游任何失败都降级为中性视图，物流查询本身不对外报错。
type Tracker struct {
	cfg       config.KuaidiConfig
	client    *http.Client
	completer Completer
}

func NewTracker(cfg config.KuaidiConfig) *Tracker {
	return &Tracker{
		cfg:    cfg,
		client: http.DefaultClient,
	}
}

// SetCompleter 注入签收回推的实现。订单服务依赖 Tracker 做单号识别，
// Tracker 又要回调订单服务，构造后再注入避免互相依赖。
func (t *Tracker) SetCompleter(c Completer) {
	t.completer = c
}

// sign 快递100 签名：md5(param + key + customer) 转大写
func (t *Tracker) sign(param string) string {
	sum := md5.Sum([]byte(param + t.cfg.Key + t.cfg.Customer))
	return strings.ToUpper(fmt.Sprintf("%x", sum))
}

// Query 查询订单物流。direction 决定取正向还是退货的单号/编码。
// 签收且订单处于已发货时（仅正向），顺带把订单推进到已完成。
func (t *Tracker) Query(order *model.Order, direction Direction) *TrackingView {
	isReturn := direction == DirectionReturn

	trackingNumber := order.TrackingNumber
	carrierCode := order.CarrierCode
	if isReturn {
		trackingNumber = order.ReturnTrackingNumber
		carrierCode = order.ReturnCarrierCode
	}
	carrierCode = NormalizeCarrier(carrierCode)

	phoneTail := ""
	if order.Address != nil && len(order.Address.TelNumber) >= 4 {
		phoneTail = order.Address.TelNumber[len(order.Address.TelNumber)-4:]
	}

	view := &TrackingView{
		CarrierName:    order.CarrierName,
		TrackingNumber: trackingNumber,
		PhoneTail:      phoneTail,
		Nodes:          []TrackingNode{},
	}
	switch {
	case trackingNumber != "":
		view.Status = "暂无物流更新"
	case isReturn:
		view.Status = "未填写退货物流"
	default:
		view.Status = "未发货"
	}

	// 单号、编码、凭据缺一个都不请求上游
	if trackingNumber == "" || carrierCode == "" || t.cfg.Customer == "" || t.cfg.Key == "" {
		metrics.TrackingQueries.WithLabelValues("skipped").Inc()
		return view
	}

	param, _ := json.Marshal(map[string]string{
		"com":   carrierCode,
		"num":   trackingNumber,
		"phone": phoneTail,
	})

	form := url.Values{}
	form.Set("customer", t.cfg.Customer)
	form.Set("sign", t.sign(string(param)))
	form.Set("param", string(param))

	resp, err := t.client.PostForm(t.cfg.QueryURL, form)
	if err != nil {
		logger.Get().Warn("kuaidi100 query failed", zap.Error(err), zap.String("num", trackingNumber))
		metrics.TrackingQueries.WithLabelValues("error").Inc()
		return view
	}
	defer resp.Body.Close()

	var result queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		logger.Get().Warn("kuaidi100 decode failed", zap.Error(err))
		metrics.TrackingQueries.WithLabelValues("error").Inc()
		return view
	}

	if result.Status != "200" {
		logger.Get().Warn("kuaidi100 non-success status",
			zap.String("status", result.Status), zap.String("num", trackingNumber))
		metrics.TrackingQueries.WithLabelValues("upstream_fail").Inc()
		return view
	}

	nodes := make([]TrackingNode, 0, len(result.Data))
	for _, n := range result.Data {
		nodeTime := n.Time
		if nodeTime == "" {
			nodeTime = n.Ftime
		}
		status := n.Status
		if status == "" {
			status = n.Context
		}
		desc := n.Context
		if desc == "" {
			desc = n.Status
		}
		nodes = append(nodes, TrackingNode{
			Time:     nodeTime,
			Status:   status,
			Location: n.AreaName,
			Desc:     desc,
		})
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		return parseNodeTime(nodes[i].Time).After(parseNodeTime(nodes[j].Time))
	})
	view.Nodes = nodes

	if text, ok := stateText[result.State]; ok {
		view.Status = text
	} else if len(nodes) > 0 {
		view.Status = nodes[0].Status
	}

	// 已签收且订单仍是已发货 → 自动完成（仅正向物流）。
	// 推进失败只记日志，不影响本次查询结果。
	if !isReturn && result.State == stateDelivered && order.Status == model.StatusShipped && t.completer != nil {
		if err := t.completer.AutoComplete(order.ID); err != nil {
			logger.Get().Error("auto-complete order failed",
				zap.String("order_id", order.ID), zap.Error(err))
		}
	}

	metrics.TrackingQueries.WithLabelValues("ok").Inc()
	return view
}

// DetectCarrier 根据单号猜测快递公司编码，失败返回空串
func (t *Tracker) DetectCarrier(trackingNumber string) string {
	if t.cfg.Key == "" || trackingNumber == "" {
		return ""
	}

	q := url.Values{}
	q.Set("num", trackingNumber)
	q.Set("key", t.cfg.Key)

	resp, err := t.client.Get(t.cfg.AutoURL + "?" + q.Encode())
	if err != nil {
		logger.Get().Warn("detect carrier failed", zap.Error(err))
		return ""
	}
	defer resp.Body.Close()

	var result []struct {
		ComCode string `json:"comCode"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		logger.Get().Warn("detect carrier decode failed", zap.Error(err))
		return ""
	}
	if len(result) == 0 {
		return ""
	}
	return result[0].ComCode
}

func parseNodeTime(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
