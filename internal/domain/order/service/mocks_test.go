package service

import (
	"context"
	"time"

	"beadshop/internal/domain/order/model"
	"beadshop/internal/domain/order/repository"

	"github.com/stretchr/testify/mock"
)

// MockOrderRepository is a mock of repository.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(order *model.Order) error {
	args := m.Called(order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(id string) (*model.Order, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) Find(filter repository.OrderFilter) ([]model.Order, error) {
	args := m.Called(filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(id string, status model.OrderStatus) error {
	args := m.Called(id, status)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdateStatusIf(id string, from, to model.OrderStatus) (bool, error) {
	args := m.Called(id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) MarkPaid(id string, p repository.PaidUpdate) (bool, error) {
	args := m.Called(id, p)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) SetAddress(id string, addr *model.Address) error {
	args := m.Called(id, addr)
	return args.Error(0)
}

func (m *MockOrderRepository) MarkShipped(id string, s repository.ShipmentUpdate) error {
	args := m.Called(id, s)
	return args.Error(0)
}

func (m *MockOrderRepository) ApplyAfterSale(id string, a repository.AfterSaleApplication) error {
	args := m.Called(id, a)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdateAfterSale(id string, h repository.AfterSaleHandling) error {
	args := m.Called(id, h)
	return args.Error(0)
}

func (m *MockOrderRepository) SetReturnLogistics(id string, trackingNumber, carrierCode string) error {
	args := m.Called(id, trackingNumber, carrierCode)
	return args.Error(0)
}

func (m *MockOrderRepository) GetReturnInfo() (*model.ReturnInfo, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReturnInfo), args.Error(1)
}

func (m *MockOrderRepository) SaveReturnInfo(info *model.ReturnInfo) error {
	args := m.Called(info)
	return args.Error(0)
}

// noopLocker 测试用锁：直接放行，记录加锁次数
type noopLocker struct {
	locks int
}

func (l *noopLocker) Lock(ctx context.Context, orderID string, wait time.Duration) (func(), error) {
	l.locks++
	return func() {}, nil
}
