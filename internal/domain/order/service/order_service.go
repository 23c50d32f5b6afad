package service

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"beadshop/internal/domain/order/logistics"
	"beadshop/internal/domain/order/model"
	"beadshop/internal/domain/order/repository"
	"beadshop/pkg/logger"
	"beadshop/pkg/metrics"
)

// 业务校验失败的哨兵错误，handler 层据此映射 HTTP 状态和业务码
var (
	ErrOrderNotFound = errors.New("order not found")
	ErrNotOwner      = errors.New("order does not belong to this user")
	ErrOrderExpired  = errors.New("order payment window has expired")
	ErrStateConflict = errors.New("order status does not allow this operation")
	ErrEmptyItems    = errors.New("order must contain at least one item")
)

// unpaidTTL 待支付订单的保留时长，超时自动关闭
const unpaidTTL = time.Hour

// CreateOrderInput 下单入参，items 是商品快照
type CreateOrderInput struct {
	Items      []model.OrderItem
	TotalPrice float64
	Remark     string
	Address    *model.Address
}

// Summary 管理端看板的订单汇总
type Summary struct {
	TotalOrders      int     `json:"totalOrders"`
	TotalSales       float64 `json:"totalSales"`
	AfterSaleOrders  int     `json:"afterSaleOrders"`
	AfterSaleTotal   float64 `json:"afterSaleTotal"`
	AfterSalePending int     `json:"afterSalePending"`
	PendingShip      int     `json:"pendingShip"`
	PendingPay       int     `json:"pendingPay"`
	CompletedOrders  int     `json:"completedOrders"`
}

type OrderService interface {
	Create(openid string, in CreateOrderInput) (*model.Order, error)
	Get(openid, id string) (*model.Order, error)
	List(openid string, status *model.OrderStatus, afterSaleStatus *model.AfterSaleStatus) ([]model.Order, error)
	AdminList(filter repository.OrderFilter) ([]model.Order, error)
	Summarize() (*Summary, error)
	SetAddress(openid, id string, addr *model.Address) error
	Ship(id string, s repository.ShipmentUpdate) error
	Logistics(openid, id string, direction logistics.Direction) (*logistics.TrackingView, error)
	// AutoComplete 已发货订单签收后推进到已完成，由物流查询触发
	AutoComplete(orderID string) error
}

type orderService struct {
	repo    repository.OrderRepository
	tracker *logistics.Tracker
}

func NewOrderService(repo repository.OrderRepository, tracker *logistics.Tracker) OrderService {
	return &orderService{repo: repo, tracker: tracker}
}

func (s *orderService) Create(openid string, in CreateOrderInput) (*model.Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyItems
	}

	// 总价以服务端按快照重算为准，入参价格仅做参考
	total := 0.0
	for _, item := range in.Items {
		total += item.Price
	}
	if total <= 0 {
		total = in.TotalPrice
	}

	now := time.Now()
	expiresAt := now.Add(unpaidTTL)
	order := &model.Order{
		ID:         uuid.New().String(),
		OpenID:     openid,
		Items:      in.Items,
		TotalPrice: total,
		Remark:     in.Remark,
		Address:    in.Address,
		Status:     model.StatusUnpaid,
		ExpiresAt:  &expiresAt,
	}

	if err := s.repo.Create(order); err != nil {
		return nil, err
	}

	logger.Get().Info("order created",
		zap.String("order_id", order.ID),
		zap.String("openid", openid),
		zap.Float64("total", total),
		zap.Int("items", len(in.Items)))
	return order, nil
}

func (s *orderService) Get(openid, id string) (*model.Order, error) {
	order, err := s.getOwned(openid, id)
	if err != nil {
		return nil, err
	}
	s.expireIfDue(order)
	return order, nil
}

func (s *orderService) List(openid string, status *model.OrderStatus, afterSaleStatus *model.AfterSaleStatus) ([]model.Order, error) {
	orders, err := s.repo.Find(repository.OrderFilter{
		OpenID:          openid,
		Status:          status,
		AfterSaleStatus: afterSaleStatus,
	})
	if err != nil {
		return nil, err
	}
	for i := range orders {
		s.expireIfDue(&orders[i])
	}
	return orders, nil
}

func (s *orderService) AdminList(filter repository.OrderFilter) ([]model.Order, error) {
	return s.repo.Find(filter)
}

// Summarize 汇总看板数据。
// 销售额只统计付过钱的订单，优先取实付金额；售后金额优先取已定的退款额。
func (s *orderService) Summarize() (*Summary, error) {
	orders, err := s.repo.Find(repository.OrderFilter{})
	if err != nil {
		return nil, err
	}

	summary := &Summary{TotalOrders: len(orders)}
	for i := range orders {
		o := &orders[i]

		switch o.Status {
		case model.StatusUnpaid:
			summary.PendingPay++
		case model.StatusPaid:
			summary.PendingShip++
		case model.StatusCompleted:
			summary.CompletedOrders++
		}

		if o.Status == model.StatusPaid || o.Status == model.StatusShipped || o.Status == model.StatusCompleted {
			if o.PaidAmount != nil {
				summary.TotalSales += *o.PaidAmount
			} else {
				summary.TotalSales += o.TotalPrice
			}
		}

		if o.AfterSaleStatus != model.AfterSaleNone {
			summary.AfterSaleOrders++
			if o.RefundAmount != nil {
				summary.AfterSaleTotal += *o.RefundAmount
			} else {
				summary.AfterSaleTotal += o.TotalPrice
			}
			if o.AfterSaleStatus == model.AfterSalePendingReview || o.AfterSaleStatus == model.AfterSaleProcessing {
				summary.AfterSalePending++
			}
		}
	}

	return summary, nil
}

func (s *orderService) SetAddress(openid, id string, addr *model.Address) error {
	order, err := s.getOwned(openid, id)
	if err != nil {
		return err
	}
	// 支付后地址随发货流程走，不允许买家再改
	if order.Status != model.StatusUnpaid {
		return ErrStateConflict
	}
	return s.repo.SetAddress(id, addr)
}

func (s *orderService) Ship(id string, sh repository.ShipmentUpdate) error {
	order, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	// 已发货允许重新发货（换单号补录），其余状态一律拒绝
	if order.Status != model.StatusPaid && order.Status != model.StatusShipped {
		return ErrStateConflict
	}

	sh.CarrierCode = logistics.NormalizeCarrier(sh.CarrierCode)
	if sh.CarrierCode == "" && s.tracker != nil {
		// 管理端只填了单号时尽力识别快递公司，识别不出也不拦截发货
		sh.CarrierCode = s.tracker.DetectCarrier(sh.TrackingNumber)
	}

	if err := s.repo.MarkShipped(id, sh); err != nil {
		return err
	}
	metrics.OrderTransitions.WithLabelValues("shipped").Inc()
	logger.Get().Info("order shipped",
		zap.String("order_id", id),
		zap.String("tracking_number", sh.TrackingNumber),
		zap.String("carrier_code", sh.CarrierCode))
	return nil
}

func (s *orderService) Logistics(openid, id string, direction logistics.Direction) (*logistics.TrackingView, error) {
	order, err := s.getOwned(openid, id)
	if err != nil {
		return nil, err
	}
	return s.tracker.Query(order, direction), nil
}

func (s *orderService) AutoComplete(orderID string) error {
	updated, err := s.repo.UpdateStatusIf(orderID, model.StatusShipped, model.StatusCompleted)
	if err != nil {
		return err
	}
	if updated {
		metrics.OrderTransitions.WithLabelValues("completed").Inc()
		logger.Get().Info("order auto-completed on delivery", zap.String("order_id", orderID))
	}
	return nil
}

// getOwned 取订单并校验归属。openid 为空串时跳过归属校验（管理端）。
func (s *orderService) getOwned(openid, id string) (*model.Order, error) {
	order, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if openid != "" && order.OpenID != openid {
		return nil, ErrNotOwner
	}
	return order, nil
}

// expireIfDue 懒惰过期：读到超时未付的订单时顺手关闭。
// 条件更新保证和并发回调不会互相覆盖。
func (s *orderService) expireIfDue(order *model.Order) {
	if order.Status != model.StatusUnpaid || order.ExpiresAt == nil {
		return
	}
	if time.Now().Before(*order.ExpiresAt) {
		return
	}
	updated, err := s.repo.UpdateStatusIf(order.ID, model.StatusUnpaid, model.StatusExpired)
	if err != nil {
		logger.Get().Error("expire order failed", zap.String("order_id", order.ID), zap.Error(err))
		return
	}
	if updated {
		order.Status = model.StatusExpired
		metrics.OrderTransitions.WithLabelValues("expired").Inc()
		logger.Get().Info("order expired", zap.String("order_id", order.ID))
	}
}
