package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"beadshop/internal/domain/order/logistics"
	"beadshop/internal/domain/order/model"
	"beadshop/internal/domain/order/repository"
	"beadshop/pkg/logger"
)

var (
	ErrAfterSaleNotAllowed = errors.New("order status does not allow after-sale")
	ErrWindowExpired       = errors.New("after-sale window has expired")
	ErrInvalidType         = errors.New("unknown after-sale type")
	ErrInvalidStatus       = errors.New("invalid after-sale status")
	ErrWrongSubState       = errors.New("after-sale status does not allow this operation")
)

// handleLockWait 售后处理抢订单锁的最长等待
const handleLockWait = 3 * time.Second

// maxEvidenceImages 售后凭证图片上限
const maxEvidenceImages = 9

// ApplyInput 买家售后申请
type ApplyInput struct {
	Type   string
	Reason string
	Desc   string
	Images []string
}

type AfterSaleService interface {
	Apply(openid, orderID string, in ApplyInput) error
	// SubmitReturn 买家填写退货物流，快递公司留空时按单号自动识别
	SubmitReturn(openid, orderID, trackingNumber, carrierCode string) error
	Handle(ctx context.Context, orderID string, h repository.AfterSaleHandling) error
	WindowDays() int
	GetReturnInfo() (*model.ReturnInfo, error)
	SaveReturnInfo(info *model.ReturnInfo) error
}

type afterSaleService struct {
	repo       repository.OrderRepository
	tracker    *logistics.Tracker
	locker     Locker
	windowDays int
}

func NewAfterSaleService(repo repository.OrderRepository, tracker *logistics.Tracker, locker Locker, windowDays int) AfterSaleService {
	return &afterSaleService{
		repo:       repo,
		tracker:    tracker,
		locker:     locker,
		windowDays: windowDays,
	}
}

func (s *afterSaleService) Apply(openid, orderID string, in ApplyInput) error {
	switch in.Type {
	case model.AfterSaleTypeRefundOnly, model.AfterSaleTypeReturnRefund, model.AfterSaleTypeExchange:
	default:
		return ErrInvalidType
	}

	order, err := s.repo.GetByID(orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	if order.OpenID != openid {
		return ErrNotOwner
	}

	// 确认收货（完成）之后才开放售后入口
	if order.Status != model.StatusCompleted {
		return ErrAfterSaleNotAllowed
	}
	// 已有在途售后不允许重复申请，被拒绝的可以再次提交
	if order.AfterSaleStatus != model.AfterSaleNone && order.AfterSaleStatus != model.AfterSaleRejected {
		return ErrWrongSubState
	}
	if order.PaidAt == nil {
		return ErrAfterSaleNotAllowed
	}

	// 窗口从支付时刻起算，截止时刻仍可申请（边界含）
	deadline := order.PaidAt.Add(time.Duration(s.windowDays) * 24 * time.Hour)
	if time.Now().After(deadline) {
		return ErrWindowExpired
	}

	// 凭证图片最多九张，多出的直接丢弃
	if len(in.Images) > maxEvidenceImages {
		in.Images = in.Images[:maxEvidenceImages]
	}

	if err := s.repo.ApplyAfterSale(orderID, repository.AfterSaleApplication{
		Type:     in.Type,
		Reason:   in.Reason,
		Desc:     in.Desc,
		Images:   in.Images,
		Deadline: deadline,
	}); err != nil {
		return err
	}

	logger.Get().Info("after-sale applied",
		zap.String("order_id", orderID),
		zap.String("type", in.Type),
		zap.String("reason", in.Reason))
	return nil
}

func (s *afterSaleService) SubmitReturn(openid, orderID, trackingNumber, carrierCode string) error {
	order, err := s.repo.GetByID(orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	if order.OpenID != openid {
		return ErrNotOwner
	}
	// 审核中和处理中可以填退货单号，完结和被拒的不行
	if order.AfterSaleStatus != model.AfterSalePendingReview && order.AfterSaleStatus != model.AfterSaleProcessing {
		return ErrWrongSubState
	}

	carrierCode = logistics.NormalizeCarrier(carrierCode)
	if carrierCode == "" && s.tracker != nil {
		carrierCode = s.tracker.DetectCarrier(trackingNumber)
	}

	if err := s.repo.SetReturnLogistics(orderID, trackingNumber, carrierCode); err != nil {
		return err
	}
	logger.Get().Info("return logistics submitted",
		zap.String("order_id", orderID),
		zap.String("tracking_number", trackingNumber),
		zap.String("carrier_code", carrierCode))
	return nil
}

func (s *afterSaleService) Handle(ctx context.Context, orderID string, h repository.AfterSaleHandling) error {
	if !model.ValidHandleStatus(h.Status) {
		return ErrInvalidStatus
	}

	release, err := s.locker.Lock(ctx, orderID, handleLockWait)
	if err != nil {
		return err
	}
	defer release()

	order, err := s.repo.GetByID(orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	// 没有售后申请的订单无从处理
	if order.AfterSaleStatus == model.AfterSaleNone {
		return ErrWrongSubState
	}

	if err := s.repo.UpdateAfterSale(orderID, h); err != nil {
		return err
	}
	logger.Get().Info("after-sale handled",
		zap.String("order_id", orderID),
		zap.Int("status", int(h.Status)))
	return nil
}

func (s *afterSaleService) WindowDays() int {
	return s.windowDays
}

func (s *afterSaleService) GetReturnInfo() (*model.ReturnInfo, error) {
	return s.repo.GetReturnInfo()
}

func (s *afterSaleService) SaveReturnInfo(info *model.ReturnInfo) error {
	return s.repo.SaveReturnInfo(info)
}
