package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"beadshop/internal/domain/order/logistics"
	"beadshop/internal/domain/order/model"
	"beadshop/internal/domain/order/service"
	"beadshop/internal/pkg/identity"
	"beadshop/pkg/logger"
	"beadshop/pkg/response"
)

// OrderHandler 买家侧订单接口
type OrderHandler struct {
	orderService service.OrderService
	resolver     *identity.Resolver
}

func NewOrderHandler(orderService service.OrderService, resolver *identity.Resolver) *OrderHandler {
	return &OrderHandler{orderService: orderService, resolver: resolver}
}

type resolveOpenIDRequest struct {
	Code string `json:"code" binding:"required"`
}

// ResolveOpenID 小程序登录 code 换 openid
// @Summary 获取openid
// @Tags mobile
// @Router /mobile/openid [post]
func (h *OrderHandler) ResolveOpenID(c *gin.Context) {
	var req resolveOpenIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "code is required")
		return
	}

	openid, err := h.resolver.Resolve(req.Code)
	if err != nil {
		if errors.Is(err, identity.ErrConfig) {
			response.Error(c, http.StatusInternalServerError, response.ErrGatewayConfig, "wechat login is not configured")
			return
		}
		logger.Get().Warn("resolve openid failed", zap.Error(err))
		response.Error(c, http.StatusBadGateway, response.ErrGatewayUpstream, err.Error())
		return
	}

	response.Success(c, gin.H{"openid": openid})
}

type createOrderRequest struct {
	OpenID     string            `json:"openid" binding:"required"`
	Items      []model.OrderItem `json:"items" binding:"required"`
	TotalPrice float64           `json:"totalPrice"`
	Remark     string            `json:"remark"`
	Address    *model.Address    `json:"address"`
}

// Create 创建订单
// @Summary 创建订单
// @Tags mobile
// @Router /mobile/orders/create [post]
func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "invalid request: "+err.Error())
		return
	}

	order, err := h.orderService.Create(req.OpenID, service.CreateOrderInput{
		Items:      req.Items,
		TotalPrice: req.TotalPrice,
		Remark:     req.Remark,
		Address:    req.Address,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, order)
}

// List 买家订单列表，支持按订单状态和售后状态过滤
// @Summary 订单列表
// @Tags mobile
// @Router /mobile/orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	openid := c.Query("openid")
	if openid == "" {
		response.Error(c, http.StatusBadRequest, response.ErrMissingIdentity, "openid is required")
		return
	}

	var status *model.OrderStatus
	if v := c.Query("status"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s := model.OrderStatus(n)
			status = &s
		}
	}
	var afterSaleStatus *model.AfterSaleStatus
	if v := c.Query("afterSaleStatus"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s := model.AfterSaleStatus(n)
			afterSaleStatus = &s
		}
	}

	orders, err := h.orderService.List(openid, status, afterSaleStatus)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, orders)
}

// Get 订单详情
// @Summary 订单详情
// @Tags mobile
// @Router /mobile/orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	openid := c.Query("openid")
	if openid == "" {
		response.Error(c, http.StatusBadRequest, response.ErrMissingIdentity, "openid is required")
		return
	}

	order, err := h.orderService.Get(openid, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, order)
}

type setAddressRequest struct {
	OpenID  string         `json:"openid" binding:"required"`
	OrderID string         `json:"orderId" binding:"required"`
	Address *model.Address `json:"address" binding:"required"`
}

// SetAddress 填写/修改收货地址，仅待支付订单允许
// @Summary 填写收货地址
// @Tags mobile
// @Router /mobile/orders/address [post]
func (h *OrderHandler) SetAddress(c *gin.Context) {
	var req setAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "invalid request: "+err.Error())
		return
	}

	if err := h.orderService.SetAddress(req.OpenID, req.OrderID, req.Address); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, nil)
}

// Logistics 查询订单物流，type=return 查退货物流
// @Summary 查询物流
// @Tags mobile
// @Router /mobile/orders/logistics [get]
func (h *OrderHandler) Logistics(c *gin.Context) {
	openid := c.Query("openid")
	orderID := c.Query("orderId")
	if openid == "" || orderID == "" {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "openid and orderId are required")
		return
	}

	direction := logistics.DirectionOutbound
	if c.Query("type") == "return" {
		direction = logistics.DirectionReturn
	}

	view, err := h.orderService.Logistics(openid, orderID, direction)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, view)
}
