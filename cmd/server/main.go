package main

import (
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/time/rate"

	_ "beadshop/docs"
	_ "beadshop/internal/domain/admin"
	_ "beadshop/internal/domain/common"
	_ "beadshop/internal/domain/order"
	"beadshop/internal/pkg/config"
	"beadshop/internal/pkg/middleware"
	"beadshop/internal/pkg/registry"
	"beadshop/internal/pkg/uploader"
	"beadshop/pkg/database"
	"beadshop/pkg/logger"
)

// @title 串珠商城订单服务 API
// @version 1.0
// @description 订单、支付、物流、售后接口
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	config.LoadConfig()

	if err := logger.Init(config.GlobalConfig.App.Env, "info"); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	db := database.InitDatabase()
	rdb := database.InitRedis()

	// OSS 没配就跳过，上传接口会报未初始化
	if config.GlobalConfig.OSS.Endpoint != "" {
		if err := uploader.InitUploader(); err != nil {
			log.Fatalf("Failed to init uploader: %v", err)
		}
	}

	gin.SetMode(config.GlobalConfig.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.RateLimitMiddleware(rate.Limit(50), 100))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	r.Use(cors.New(corsConfig))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if err := registry.InitModules(&registry.ModuleContext{
		DB:     db,
		Redis:  rdb,
		Router: r,
	}); err != nil {
		log.Fatalf("Failed to init modules: %v", err)
	}

	addr := ":" + config.GlobalConfig.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Server exited: %v", err)
	}
}
