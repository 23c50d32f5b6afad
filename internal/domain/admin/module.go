package admin

import (
	"beadshop/internal/domain/admin/handler"
	"beadshop/internal/domain/admin/service"
	"beadshop/internal/pkg/config"
	"beadshop/internal/pkg/middleware"
	"beadshop/internal/pkg/registry"

	"golang.org/x/time/rate"
)

func init() {
	registry.Register(&Module{})
}

// Module 管理后台登录
type Module struct{}

func (m *Module) Name() string {
	return "admin"
}

func (m *Module) Priority() int {
	return 5 // 先于订单域，登录接口不依赖其它模块
}

func (m *Module) Init(ctx *registry.ModuleContext) error {
	authService := service.NewAuthService(config.GlobalConfig.Admin)
	authHandler := handler.NewAuthHandler(authService)

	// 登录口限流防爆破
	ctx.Router.POST("/admin/login", middleware.RateLimitMiddleware(rate.Limit(1), 5), authHandler.Login)
	return nil
}
