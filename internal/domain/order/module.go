package order

import (
	"beadshop/internal/domain/order/gateway"
	"beadshop/internal/domain/order/handler"
	"beadshop/internal/domain/order/logistics"
	"beadshop/internal/domain/order/repository"
	"beadshop/internal/domain/order/service"
	"beadshop/internal/pkg/config"
	"beadshop/internal/pkg/identity"
	"beadshop/internal/pkg/middleware"
	"beadshop/internal/pkg/registry"
	"beadshop/pkg/lock"

	"golang.org/x/time/rate"
)

func init() {
	registry.Register(&Module{})
}

// Module 订单域：下单、支付、物流、售后
type Module struct{}

func (m *Module) Name() string {
	return "order"
}

func (m *Module) Priority() int {
	return 10
}

func (m *Module) Init(ctx *registry.ModuleContext) error {
	cfg := config.GlobalConfig

	repo := repository.NewOrderRepository(ctx.DB)
	locker := lock.NewOrderLocker(ctx.Redis)
	gw := gateway.NewGateway(cfg.Wechat)
	tracker := logistics.NewTracker(cfg.Kuaidi)
	resolver := identity.NewResolver(cfg.Wechat)

	orderService := service.NewOrderService(repo, tracker)
	// 签收自动完成由物流查询回推订单服务
	tracker.SetCompleter(orderService)
	paymentService := service.NewPaymentService(repo, gw, locker)
	afterSaleService := service.NewAfterSaleService(repo, tracker, locker, cfg.AfterSale.WindowDays)

	orderHandler := handler.NewOrderHandler(orderService, resolver)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	afterSaleHandler := handler.NewAfterSaleHandler(afterSaleService)
	adminHandler := handler.NewAdminHandler(orderService, afterSaleService)

	// 买家侧：无登录态，身份靠 openid；登录接口单独限流防刷
	mobile := ctx.Router.Group("/mobile")
	{
		mobile.POST("/openid", middleware.RateLimitMiddleware(rate.Limit(5), 10), orderHandler.ResolveOpenID)

		mobile.POST("/orders/create", orderHandler.Create)
		mobile.GET("/orders", orderHandler.List)
		mobile.GET("/orders/:id", orderHandler.Get)
		mobile.POST("/orders/address", orderHandler.SetAddress)
		mobile.GET("/orders/logistics", orderHandler.Logistics)

		mobile.POST("/pay", paymentHandler.Initiate)
		mobile.POST("/pay/notify", paymentHandler.Notify)

		mobile.POST("/orders/after-sale/apply", afterSaleHandler.Apply)
		mobile.POST("/orders/after-sale/return", afterSaleHandler.SubmitReturn)
		mobile.GET("/orders/after-sale/return-info", afterSaleHandler.ReturnInfo)
		mobile.GET("/after-sale-config", afterSaleHandler.Config)
	}

	// 管理端：JWT + 管理员角色
	admin := ctx.Router.Group("/admin", middleware.AuthMiddleware(), middleware.AdminMiddleware())
	{
		admin.GET("/orders", adminHandler.ListOrders)
		admin.GET("/orders/summary", adminHandler.Summary)
		admin.POST("/orders/ship", adminHandler.Ship)
		admin.GET("/orders/after-sale", adminHandler.ListAfterSale)
		admin.POST("/orders/after-sale/handle", adminHandler.HandleAfterSale)
		admin.GET("/orders/after-sale/return-info", adminHandler.GetReturnInfo)
		admin.POST("/orders/after-sale/return-info", adminHandler.SaveReturnInfo)
	}

	return nil
}
