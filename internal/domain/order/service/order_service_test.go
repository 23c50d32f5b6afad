package service

import (
	"testing"
	"time"

	"beadshop/internal/domain/order/logistics"
	"beadshop/internal/domain/order/model"
	"beadshop/internal/domain/order/repository"
	"beadshop/internal/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newOrderServiceForTest(repo repository.OrderRepository) OrderService {
	return NewOrderService(repo, logistics.NewTracker(config.KuaidiConfig{}))
}

func TestCreateOrder(t *testing.T) {
	t.Run("Totals are recomputed from item snapshots", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		svc := newOrderServiceForTest(mockRepo)

		var created *model.Order
		mockRepo.On("Create", mock.AnythingOfType("*model.Order")).Run(func(args mock.Arguments) {
			created = args.Get(0).(*model.Order)
		}).Return(nil)

		order, err := svc.Create("openid-1", CreateOrderInput{
			Items: []model.OrderItem{
				{Name: "紫水晶手串", Price: 100},
				{Name: "玛瑙手串", Price: 28.5},
			},
			TotalPrice: 1, // 客户端报价不可信
		})
		require.NoError(t, err)

		assert.Equal(t, 128.5, order.TotalPrice)
		assert.Equal(t, model.StatusUnpaid, order.Status)
		assert.NotEmpty(t, order.ID)
		require.NotNil(t, created.ExpiresAt)
		// 保留期一小时
		assert.WithinDuration(t, time.Now().Add(time.Hour), *created.ExpiresAt, 5*time.Second)
	})

	t.Run("Empty cart rejected", func(t *testing.T) {
		svc := newOrderServiceForTest(new(MockOrderRepository))

		_, err := svc.Create("openid-1", CreateOrderInput{})

		assert.ErrorIs(t, err, ErrEmptyItems)
	})
}

func TestGetOrder(t *testing.T) {
	t.Run("Lazy expiry closes overdue unpaid order", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		svc := newOrderServiceForTest(mockRepo)

		past := time.Now().Add(-time.Minute)
		order := &model.Order{ID: "order-1", OpenID: "openid-1", Status: model.StatusUnpaid, ExpiresAt: &past}
		mockRepo.On("GetByID", "order-1").Return(order, nil)
		mockRepo.On("UpdateStatusIf", "order-1", model.StatusUnpaid, model.StatusExpired).Return(true, nil)

		got, err := svc.Get("openid-1", "order-1")
		require.NoError(t, err)

		assert.Equal(t, model.StatusExpired, got.Status)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Unexpired order untouched", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		svc := newOrderServiceForTest(mockRepo)

		future := time.Now().Add(time.Minute)
		order := &model.Order{ID: "order-1", OpenID: "openid-1", Status: model.StatusUnpaid, ExpiresAt: &future}
		mockRepo.On("GetByID", "order-1").Return(order, nil)

		got, err := svc.Get("openid-1", "order-1")
		require.NoError(t, err)

		assert.Equal(t, model.StatusUnpaid, got.Status)
		mockRepo.AssertNotCalled(t, "UpdateStatusIf", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Other user's order hidden", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		svc := newOrderServiceForTest(mockRepo)

		order := &model.Order{ID: "order-1", OpenID: "openid-1"}
		mockRepo.On("GetByID", "order-1").Return(order, nil)

		_, err := svc.Get("intruder", "order-1")

		assert.ErrorIs(t, err, ErrNotOwner)
	})
}

func TestSetAddress(t *testing.T) {
	addr := &model.Address{UserName: "张三", TelNumber: "13800138000"}

	t.Run("Allowed while unpaid", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		svc := newOrderServiceForTest(mockRepo)

		mockRepo.On("GetByID", "order-1").Return(&model.Order{ID: "order-1", OpenID: "openid-1", Status: model.StatusUnpaid}, nil)
		mockRepo.On("SetAddress", "order-1", addr).Return(nil)

		assert.NoError(t, svc.SetAddress("openid-1", "order-1", addr))
		mockRepo.AssertExpectations(t)
	})

	t.Run("Rejected after payment", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		svc := newOrderServiceForTest(mockRepo)

		mockRepo.On("GetByID", "order-1").Return(&model.Order{ID: "order-1", OpenID: "openid-1", Status: model.StatusPaid}, nil)

		assert.ErrorIs(t, svc.SetAddress("openid-1", "order-1", addr), ErrStateConflict)
	})
}

func TestShip(t *testing.T) {
	shipment := repository.ShipmentUpdate{TrackingNumber: "SF123", CarrierName: "顺丰速运", CarrierCode: "sf"}

	t.Run("Paid order ships with normalized carrier code", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		svc := newOrderServiceForTest(mockRepo)

		mockRepo.On("GetByID", "order-1").Return(&model.Order{ID: "order-1", Status: model.StatusPaid}, nil)
		mockRepo.On("MarkShipped", "order-1", mock.MatchedBy(func(s repository.ShipmentUpdate) bool {
			return s.CarrierCode == "shunfeng" && s.TrackingNumber == "SF123"
		})).Return(nil)

		assert.NoError(t, svc.Ship("order-1", shipment))
		mockRepo.AssertExpectations(t)
	})

	t.Run("Shipped order allows tracking correction", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		svc := newOrderServiceForTest(mockRepo)

		mockRepo.On("GetByID", "order-1").Return(&model.Order{ID: "order-1", Status: model.StatusShipped}, nil)
		mockRepo.On("MarkShipped", "order-1", mock.Anything).Return(nil)

		assert.NoError(t, svc.Ship("order-1", shipment))
	})

	t.Run("Unpaid order cannot ship", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		svc := newOrderServiceForTest(mockRepo)

		mockRepo.On("GetByID", "order-1").Return(&model.Order{ID: "order-1", Status: model.StatusUnpaid}, nil)

		assert.ErrorIs(t, svc.Ship("order-1", shipment), ErrStateConflict)
	})

	t.Run("Completed order cannot ship", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		svc := newOrderServiceForTest(mockRepo)

		mockRepo.On("GetByID", "order-1").Return(&model.Order{ID: "order-1", Status: model.StatusCompleted}, nil)

		assert.ErrorIs(t, svc.Ship("order-1", shipment), ErrStateConflict)
	})
}

func TestSummarize(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	t.Run("Aggregates across statuses", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		svc := newOrderServiceForTest(mockRepo)

		mockRepo.On("Find", repository.OrderFilter{}).Return([]model.Order{
			{Status: model.StatusUnpaid, TotalPrice: 50},
			{Status: model.StatusPaid, TotalPrice: 100, PaidAmount: f(100)},
			{Status: model.StatusShipped, TotalPrice: 200, PaidAmount: f(199)},
			// 没回填实付金额的老数据按订单总价计
			{Status: model.StatusCompleted, TotalPrice: 300},
			{
				Status: model.StatusCompleted, TotalPrice: 400, PaidAmount: f(400),
				AfterSaleStatus: model.AfterSalePendingReview,
			},
			{
				Status: model.StatusCompleted, TotalPrice: 500, PaidAmount: f(500),
				AfterSaleStatus: model.AfterSaleDone, RefundAmount: f(120),
			},
			{Status: model.StatusExpired, TotalPrice: 999},
		}, nil)

		summary, err := svc.Summarize()
		require.NoError(t, err)

		assert.Equal(t, 7, summary.TotalOrders)
		// 100 + 199 + 300 + 400 + 500；待支付和已关闭不计销售额
		assert.Equal(t, 1499.0, summary.TotalSales)
		assert.Equal(t, 1, summary.PendingPay)
		assert.Equal(t, 1, summary.PendingShip)
		assert.Equal(t, 3, summary.CompletedOrders)
		assert.Equal(t, 2, summary.AfterSaleOrders)
		// 退款额已定的取退款额，未定的取订单总价：400 + 120
		assert.Equal(t, 520.0, summary.AfterSaleTotal)
		assert.Equal(t, 1, summary.AfterSalePending)
	})

	t.Run("Empty store yields zero summary", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		svc := newOrderServiceForTest(mockRepo)

		mockRepo.On("Find", repository.OrderFilter{}).Return([]model.Order{}, nil)

		summary, err := svc.Summarize()
		require.NoError(t, err)

		assert.Equal(t, 0, summary.TotalOrders)
		assert.Equal(t, 0.0, summary.TotalSales)
	})
}

func TestAutoComplete(t *testing.T) {
	t.Run("Shipped order completes", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		svc := newOrderServiceForTest(mockRepo)

		mockRepo.On("UpdateStatusIf", "order-1", model.StatusShipped, model.StatusCompleted).Return(true, nil)

		assert.NoError(t, svc.AutoComplete("order-1"))
		mockRepo.AssertExpectations(t)
	})

	t.Run("Already completed order is a no-op", func(t *testing.T) {
		mockRepo := new(MockOrderRepository)
		svc := newOrderServiceForTest(mockRepo)

		mockRepo.On("UpdateStatusIf", "order-1", model.StatusShipped, model.StatusCompleted).Return(false, nil)

		assert.NoError(t, svc.AutoComplete("order-1"))
	})
}
