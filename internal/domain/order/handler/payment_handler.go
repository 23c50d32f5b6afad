package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"beadshop/internal/domain/order/service"
	"beadshop/pkg/logger"
	"beadshop/pkg/response"
)

// PaymentHandler 支付发起与回调接口
type PaymentHandler struct {
	paymentService service.PaymentService
}

func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

type initiatePayRequest struct {
	OpenID  string `json:"openid" binding:"required"`
	OrderID string `json:"orderId" binding:"required"`
}

// Initiate 发起支付，返回小程序收银台参数
// @Summary 发起支付
// @Tags mobile
// @Router /mobile/pay [post]
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req initiatePayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "openid and orderId are required")
		return
	}

	params, err := h.paymentService.Initiate(c.Request.Context(), req.OpenID, req.OrderID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, params)
}

// Notify 微信支付回调。无论处理结果如何都回 HTTP 200，
// 业务结果通过应答报文里的 return_code 告知微信。
// @Summary 支付回调
// @Tags mobile
// @Router /mobile/pay/notify [post]
func (h *PaymentHandler) Notify(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		logger.Get().Warn("notify read body failed", zap.Error(err))
		raw = nil
	}

	ack := h.paymentService.HandleNotify(c.Request.Context(), raw)
	c.Data(http.StatusOK, "text/xml", ack)
}
