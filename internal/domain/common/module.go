package common

import (
	commonHandler "beadshop/internal/domain/common/handler"
	"beadshop/internal/pkg/middleware"
	"beadshop/internal/pkg/registry"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// CommonModule 通用功能模块
type CommonModule struct{}

func init() {
	registry.Register(&CommonModule{})
}

func (m *CommonModule) Name() string {
	return "common"
}

func (m *CommonModule) Priority() int {
	return 100 // 最后初始化
}

func (m *CommonModule) Init(ctx *registry.ModuleContext) error {
	setupRoutes(ctx.Router)
	return nil
}

func setupRoutes(r *gin.Engine) {
	// 小程序端传售后凭证图片用，没有登录态，靠限流兜底
	r.POST("/upload", middleware.RateLimitMiddleware(rate.Limit(2), 5), commonHandler.UploadFile)
}
