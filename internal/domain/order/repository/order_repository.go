package repository

import (
	"encoding/json"
	"errors"
	"time"

	"beadshop/internal/domain/order/model"

	"gorm.io/gorm"
)

// ErrNotFound 订单不存在
var ErrNotFound = errors.New("order not found")

// OrderFilter 订单查询过滤条件，各条件为 AND 关系
type OrderFilter struct {
	OpenID          string
	Status          *model.OrderStatus
	AfterSaleStatus *model.AfterSaleStatus
	HasAfterSale    bool // 仅返回有售后记录的订单
	Keyword         string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
}

// PaidUpdate 支付确权写入的字段
type PaidUpdate struct {
	TransactionID string
	PaidAmount    float64
	PaidAt        time.Time
}

// ShipmentUpdate 发货写入的字段
type ShipmentUpdate struct {
	TrackingNumber string
	CarrierName    string
	CarrierCode    string
}

// AfterSaleApplication 买家申请售后写入的字段
type AfterSaleApplication struct {
	Type     string
	Reason   string
	Desc     string
	Images   []string
	Deadline time.Time
}

// AfterSaleHandling 管理端处理售后写入的字段，指针为 nil 表示不改
type AfterSaleHandling struct {
	Status               model.AfterSaleStatus
	RefundAmount         *float64
	Remark               *string
	ReturnCarrierCode    *string
	ReturnTrackingNumber *string
}

type OrderRepository interface {
	Create(order *model.Order) error
	GetByID(id string) (*model.Order, error)
	Find(filter OrderFilter) ([]model.Order, error)
	UpdateStatus(id string, status model.OrderStatus) error
	// UpdateStatusIf 条件状态更新（compare-and-swap），返回是否真正更新
	UpdateStatusIf(id string, from, to model.OrderStatus) (bool, error)
	// MarkPaid 仅当订单仍为待支付时写入支付信息，返回是否真正更新
	MarkPaid(id string, p PaidUpdate) (bool, error)
	SetAddress(id string, addr *model.Address) error
	MarkShipped(id string, s ShipmentUpdate) error
	ApplyAfterSale(id string, a AfterSaleApplication) error
	UpdateAfterSale(id string, h AfterSaleHandling) error
	SetReturnLogistics(id string, trackingNumber, carrierCode string) error

	GetReturnInfo() (*model.ReturnInfo, error)
	SaveReturnInfo(info *model.ReturnInfo) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(order *model.Order) error {
	return r.db.Create(order).Error
}

func (r *orderRepository) GetByID(id string) (*model.Order, error) {
	var order model.Order
	if err := r.db.Where("id = ?", id).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) Find(filter OrderFilter) ([]model.Order, error) {
	query := r.db.Model(&model.Order{})

	if filter.OpenID != "" {
		query = query.Where("openid = ?", filter.OpenID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.AfterSaleStatus != nil {
		query = query.Where("after_sale_status = ?", *filter.AfterSaleStatus)
	}
	if filter.HasAfterSale {
		query = query.Where("after_sale_status <> ?", model.AfterSaleNone)
	}
	if filter.Keyword != "" {
		kw := "%" + filter.Keyword + "%"
		// 商品名在 items 快照里，直接对 jsonb 文本做模糊匹配
		query = query.Where(
			`id ILIKE ? OR transaction_id ILIKE ? OR tracking_number ILIKE ?
			OR return_tracking_number ILIKE ? OR return_carrier_code ILIKE ?
			OR carrier_name ILIKE ? OR address->>'userName' ILIKE ?
			OR address->>'telNumber' ILIKE ? OR items::text ILIKE ?`,
			kw, kw, kw, kw, kw, kw, kw, kw, kw)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var orders []model.Order
	if err := query.Order("created_at desc").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) UpdateStatus(id string, status model.OrderStatus) error {
	return r.updates(id, map[string]interface{}{"status": status})
}

func (r *orderRepository) UpdateStatusIf(id string, from, to model.OrderStatus) (bool, error) {
	res := r.db.Model(&model.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *orderRepository) MarkPaid(id string, p PaidUpdate) (bool, error) {
	// WHERE status = 待支付 即使没有外层锁也能保证 Unpaid→Paid 只发生一次
	res := r.db.Model(&model.Order{}).
		Where("id = ? AND status = ?", id, model.StatusUnpaid).
		Updates(map[string]interface{}{
			"status":         model.StatusPaid,
			"transaction_id": p.TransactionID,
			"paid_amount":    p.PaidAmount,
			"paid_at":        p.PaidAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *orderRepository) SetAddress(id string, addr *model.Address) error {
	// map 更新不走 serializer，jsonb 字段手动序列化
	b, err := json.Marshal(addr)
	if err != nil {
		return err
	}
	return r.updates(id, map[string]interface{}{"address": string(b)})
}

func (r *orderRepository) MarkShipped(id string, s ShipmentUpdate) error {
	updates := map[string]interface{}{
		"status":          model.StatusShipped,
		"tracking_number": s.TrackingNumber,
		"carrier_name":    s.CarrierName,
	}
	if s.CarrierCode != "" {
		updates["carrier_code"] = s.CarrierCode
	}
	return r.updates(id, updates)
}

func (r *orderRepository) ApplyAfterSale(id string, a AfterSaleApplication) error {
	images, err := json.Marshal(a.Images)
	if err != nil {
		return err
	}
	return r.updates(id, map[string]interface{}{
		"after_sale_status":   model.AfterSalePendingReview,
		"after_sale_type":     a.Type,
		"after_sale_reason":   a.Reason,
		"after_sale_desc":     a.Desc,
		"after_sale_images":   string(images),
		"after_sale_deadline": a.Deadline,
	})
}

func (r *orderRepository) UpdateAfterSale(id string, h AfterSaleHandling) error {
	updates := map[string]interface{}{
		"after_sale_status": h.Status,
	}
	if h.RefundAmount != nil {
		updates["refund_amount"] = *h.RefundAmount
	}
	if h.Remark != nil {
		updates["after_sale_remark"] = *h.Remark
	}
	if h.ReturnCarrierCode != nil {
		updates["return_carrier_code"] = *h.ReturnCarrierCode
	}
	if h.ReturnTrackingNumber != nil {
		updates["return_tracking_number"] = *h.ReturnTrackingNumber
	}
	return r.updates(id, updates)
}

func (r *orderRepository) SetReturnLogistics(id string, trackingNumber, carrierCode string) error {
	updates := map[string]interface{}{
		"return_tracking_number": trackingNumber,
	}
	if carrierCode != "" {
		updates["return_carrier_code"] = carrierCode
	}
	return r.updates(id, updates)
}

// updates 公共的按 id 部分更新；gorm 会自动刷新 updated_at
func (r *orderRepository) updates(id string, fields map[string]interface{}) error {
	res := r.db.Model(&model.Order{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *orderRepository) GetReturnInfo() (*model.ReturnInfo, error) {
	var info model.ReturnInfo
	if err := r.db.First(&info).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 未配置时返回空记录而不是报错
			return &model.ReturnInfo{}, nil
		}
		return nil, err
	}
	return &info, nil
}

func (r *orderRepository) SaveReturnInfo(info *model.ReturnInfo) error {
	var existing model.ReturnInfo
	err := r.db.First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(info).Error
	}
	if err != nil {
		return err
	}
	info.ID = existing.ID
	return r.db.Save(info).Error
}
