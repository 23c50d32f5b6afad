package model

import (
	"time"

	pkgmodel "beadshop/pkg/model"
)

// OrderStatus 订单状态
type OrderStatus int

const (
	StatusUnpaid    OrderStatus = 0 // 待支付
	StatusPaid      OrderStatus = 1 // 已支付
	StatusShipped   OrderStatus = 2 // 已发货
	StatusCompleted OrderStatus = 3 // 已完成
	StatusExpired   OrderStatus = 4 // 超时关闭
)

// AfterSaleStatus 售后状态，0 表示无售后
type AfterSaleStatus int

const (
	AfterSaleNone          AfterSaleStatus = 0
	AfterSalePendingReview AfterSaleStatus = 5 // 待审核
	AfterSaleProcessing    AfterSaleStatus = 6 // 处理中
	AfterSaleDone          AfterSaleStatus = 7 // 完成
	AfterSaleRejected      AfterSaleStatus = 8 // 拒绝
)

// 售后类型
const (
	AfterSaleTypeRefundOnly   = "refund_only"
	AfterSaleTypeReturnRefund = "return_refund"
	AfterSaleTypeExchange     = "exchange"
)

// ValidHandleStatus 管理端售后处理允许落到的状态。
// 四个状态之间可以任意流转，这是产品侧确认过的灵活处理，不是遗漏。
func ValidHandleStatus(s AfterSaleStatus) bool {
	switch s {
	case AfterSalePendingReview, AfterSaleProcessing, AfterSaleDone, AfterSaleRejected:
		return true
	default:
		return false
	}
}

// OrderItem 下单时的商品快照，之后商品改价、下架都不影响已有订单
type OrderItem struct {
	BraceletID  string  `json:"braceletId,omitempty"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	SnapshotURL string  `json:"snapshotUrl,omitempty"`
	VideoURL    string  `json:"videoUrl,omitempty"`
	RingSize    string  `json:"ringSize,omitempty"`
	BeadSize    string  `json:"beadSize,omitempty"`
	BeadSummary string  `json:"beadSummary,omitempty"`
}

// Address 微信收货地址组件返回的结构
type Address struct {
	UserName     string `json:"userName"`
	TelNumber    string `json:"telNumber"`
	ProvinceName string `json:"provinceName"`
	CityName     string `json:"cityName"`
	CountyName   string `json:"countyName"`
	DetailInfo   string `json:"detailInfo"`
}

// Order 订单模型
type Order struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	OpenID    string    `gorm:"index;column:openid" json:"openid"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Items      []OrderItem `gorm:"serializer:json;type:jsonb" json:"items"`
	TotalPrice float64     `json:"totalPrice"`
	Remark     string      `json:"remark,omitempty"`
	Address    *Address    `gorm:"serializer:json;type:jsonb" json:"address,omitempty"`

	Status    OrderStatus `gorm:"index;default:0" json:"status"`
	ExpiresAt *time.Time  `json:"expiresAt,omitempty"` // 待支付保留截止时间，创建后 1 小时

	// 支付确权字段，仅回调成功后写入
	TransactionID string     `json:"transactionId,omitempty"`
	PaidAmount    *float64   `json:"paidAmount,omitempty"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`

	// 正向物流
	TrackingNumber string `json:"trackingNumber,omitempty"`
	CarrierName    string `json:"carrierName,omitempty"`
	CarrierCode    string `json:"carrierCode,omitempty"`

	// 售后子状态，仅订单完成后有效
	AfterSaleStatus   AfterSaleStatus `gorm:"index;default:0" json:"afterSaleStatus"`
	AfterSaleType     string          `json:"afterSaleType,omitempty"`
	AfterSaleReason   string          `json:"afterSaleReason,omitempty"`
	AfterSaleDesc     string          `json:"afterSaleDesc,omitempty"`
	AfterSaleImages   []string        `gorm:"serializer:json;type:jsonb" json:"afterSaleImages,omitempty"`
	AfterSaleDeadline *time.Time      `json:"afterSaleDeadline,omitempty"`
	AfterSaleRemark   string          `json:"afterSaleRemark,omitempty"` // 管理端处理备注
	RefundAmount      *float64        `json:"refundAmount,omitempty"`

	// 退货物流
	ReturnTrackingNumber string `json:"returnTrackingNumber,omitempty"`
	ReturnCarrierCode    string `json:"returnCarrierCode,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// ReturnInfo 售后寄回地址，管理端维护的单条记录
type ReturnInfo struct {
	pkgmodel.BaseModel
	ReceiverName string `json:"receiverName"`
	TelNumber    string `json:"telNumber"`
	Address      string `json:"address"`
	Note         string `json:"note"`
}

func (ReturnInfo) TableName() string {
	return "after_sale_return_info"
}
