package service

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"beadshop/internal/domain/order/gateway"
	"beadshop/internal/domain/order/model"
	"beadshop/internal/domain/order/repository"
	"beadshop/pkg/logger"
	"beadshop/pkg/metrics"
)

// Locker 按订单互斥锁，生产实现见 pkg/lock
type Locker interface {
	Lock(ctx context.Context, orderID string, wait time.Duration) (func(), error)
}

// notifyLockWait 回调处理抢订单锁的最长等待
const notifyLockWait = 3 * time.Second

type PaymentService interface {
	// Initiate 对待支付订单发起统一下单，返回小程序收银台参数
	Initiate(ctx context.Context, openid, orderID string) (*gateway.ClientParams, error)
	// HandleNotify 处理支付回调，返回应答报文。任何结果都应答，不向上抛错。
	HandleNotify(ctx context.Context, raw []byte) []byte
}

type paymentService struct {
	repo    repository.OrderRepository
	gateway *gateway.Gateway
	locker  Locker
}

func NewPaymentService(repo repository.OrderRepository, gw *gateway.Gateway, locker Locker) PaymentService {
	return &paymentService{repo: repo, gateway: gw, locker: locker}
}

func (s *paymentService) Initiate(ctx context.Context, openid, orderID string) (*gateway.ClientParams, error) {
	order, err := s.repo.GetByID(orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.OpenID != openid {
		return nil, ErrNotOwner
	}

	// 发起支付时检查保留期，过期直接关单
	if order.Status == model.StatusUnpaid && order.ExpiresAt != nil && !time.Now().Before(*order.ExpiresAt) {
		if updated, err := s.repo.UpdateStatusIf(orderID, model.StatusUnpaid, model.StatusExpired); err == nil && updated {
			metrics.OrderTransitions.WithLabelValues("expired").Inc()
			logger.Get().Info("order expired on pay attempt", zap.String("order_id", orderID))
		}
		return nil, ErrOrderExpired
	}
	if order.Status == model.StatusExpired {
		return nil, ErrOrderExpired
	}
	if order.Status != model.StatusUnpaid {
		return nil, ErrStateConflict
	}

	description := ""
	if len(order.Items) > 0 {
		description = order.Items[0].Name
	}

	params, err := s.gateway.Prepay(order.ID, order.TotalPrice, description, openid)
	if err != nil {
		logger.Get().Error("prepay failed", zap.String("order_id", orderID), zap.Error(err))
		return nil, err
	}
	return params, nil
}

// HandleNotify 回调确权。应答 FAIL 会让微信按退避间隔重试投递，
// 所以验签失败、查不到单、内部错误都答 FAIL 等重试；重复投递答 SUCCESS 停止重试。
func (s *paymentService) HandleNotify(ctx context.Context, raw []byte) []byte {
	fields, err := s.gateway.ParseNotification(raw)
	if err != nil {
		logger.Get().Warn("notify parse failed", zap.Error(err))
		metrics.PaymentCallbacks.WithLabelValues("parse_error").Inc()
		return gateway.Ack(false, "WX_ERROR")
	}

	if fields["return_code"] != "SUCCESS" || fields["result_code"] != "SUCCESS" {
		logger.Get().Warn("notify reports failure",
			zap.String("return_code", fields["return_code"]),
			zap.String("result_code", fields["result_code"]),
			zap.String("err_code", fields["err_code"]))
		metrics.PaymentCallbacks.WithLabelValues("wx_fail").Inc()
		return gateway.Ack(false, "WX_ERROR")
	}

	// 验签必须覆盖全部字段，防止伪造回调刷单
	if !s.gateway.VerifySign(fields) {
		logger.Get().Warn("notify signature mismatch", zap.String("out_trade_no", fields["out_trade_no"]))
		metrics.PaymentCallbacks.WithLabelValues("bad_sign").Inc()
		return gateway.Ack(false, "SIGN_ERROR")
	}

	orderID := fields["out_trade_no"]
	if orderID == "" {
		metrics.PaymentCallbacks.WithLabelValues("no_order").Inc()
		return gateway.Ack(false, "NO_ORDER")
	}

	release, err := s.locker.Lock(ctx, orderID, notifyLockWait)
	if err != nil {
		logger.Get().Error("notify lock failed", zap.String("order_id", orderID), zap.Error(err))
		metrics.PaymentCallbacks.WithLabelValues("lock_error").Inc()
		return gateway.Ack(false, "SERVER_ERROR")
	}
	defer release()

	order, err := s.repo.GetByID(orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Get().Warn("notify for unknown order", zap.String("order_id", orderID))
			metrics.PaymentCallbacks.WithLabelValues("not_found").Inc()
			return gateway.Ack(false, "ORDER_NOT_FOUND")
		}
		logger.Get().Error("notify load order failed", zap.String("order_id", orderID), zap.Error(err))
		metrics.PaymentCallbacks.WithLabelValues("db_error").Inc()
		return gateway.Ack(false, "SERVER_ERROR")
	}

	// 重复投递：已经确权过就直接应答成功
	if order.Status != model.StatusUnpaid {
		metrics.PaymentCallbacks.WithLabelValues("duplicate").Inc()
		return gateway.Ack(true, "OK")
	}

	totalFee, _ := strconv.ParseInt(fields["total_fee"], 10, 64)
	paidAmount := float64(totalFee) / 100
	if totalFee > 0 && math.Abs(paidAmount-order.TotalPrice) > 0.005 {
		// 金额不符先确权再人工对账，不阻断回调
		logger.Get().Warn("paid amount differs from order total",
			zap.String("order_id", orderID),
			zap.Float64("paid", paidAmount),
			zap.Float64("expected", order.TotalPrice))
	}

	updated, err := s.repo.MarkPaid(orderID, repository.PaidUpdate{
		TransactionID: fields["transaction_id"],
		PaidAmount:    paidAmount,
		PaidAt:        time.Now(),
	})
	if err != nil {
		logger.Get().Error("mark paid failed", zap.String("order_id", orderID), zap.Error(err))
		metrics.PaymentCallbacks.WithLabelValues("db_error").Inc()
		return gateway.Ack(false, "SERVER_ERROR")
	}
	if !updated {
		// 锁内仍然没更新到，说明状态已被并发改走，按重复投递处理
		metrics.PaymentCallbacks.WithLabelValues("duplicate").Inc()
		return gateway.Ack(true, "OK")
	}

	metrics.OrderTransitions.WithLabelValues("paid").Inc()
	metrics.PaymentCallbacks.WithLabelValues("ok").Inc()
	logger.Get().Info("order paid",
		zap.String("order_id", orderID),
		zap.String("transaction_id", fields["transaction_id"]),
		zap.Float64("amount", paidAmount))
	return gateway.Ack(true, "OK")
}
