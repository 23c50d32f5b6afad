package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"beadshop/internal/domain/order/model"
	"beadshop/internal/domain/order/service"
	"beadshop/pkg/response"
)

// AfterSaleHandler 买家侧售后接口
type AfterSaleHandler struct {
	afterSaleService service.AfterSaleService
}

func NewAfterSaleHandler(afterSaleService service.AfterSaleService) *AfterSaleHandler {
	return &AfterSaleHandler{afterSaleService: afterSaleService}
}

type applyAfterSaleRequest struct {
	OpenID  string   `json:"openid" binding:"required"`
	OrderID string   `json:"orderId" binding:"required"`
	Type    string   `json:"type" binding:"required"`
	Reason  string   `json:"reason" binding:"required"`
	Desc    string   `json:"desc"`
	Images  []string `json:"images"`
}

// Apply 提交售后申请
// @Summary 申请售后
// @Tags mobile
// @Router /mobile/orders/after-sale/apply [post]
func (h *AfterSaleHandler) Apply(c *gin.Context) {
	var req applyAfterSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "invalid request: "+err.Error())
		return
	}

	err := h.afterSaleService.Apply(req.OpenID, req.OrderID, service.ApplyInput{
		Type:   req.Type,
		Reason: req.Reason,
		Desc:   req.Desc,
		Images: req.Images,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, nil)
}

type submitReturnRequest struct {
	OpenID         string `json:"openid" binding:"required"`
	OrderID        string `json:"orderId" binding:"required"`
	TrackingNumber string `json:"trackingNumber" binding:"required"`
	CarrierCode    string `json:"carrierCode"`
}

// SubmitReturn 买家填写退货单号
// @Summary 填写退货物流
// @Tags mobile
// @Router /mobile/orders/after-sale/return [post]
func (h *AfterSaleHandler) SubmitReturn(c *gin.Context) {
	var req submitReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "invalid request: "+err.Error())
		return
	}

	if err := h.afterSaleService.SubmitReturn(req.OpenID, req.OrderID, req.TrackingNumber, req.CarrierCode); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, nil)
}

// ReturnInfo 查询售后寄回地址
// @Summary 售后寄回地址
// @Tags mobile
// @Router /mobile/orders/after-sale/return-info [get]
func (h *AfterSaleHandler) ReturnInfo(c *gin.Context) {
	info, err := h.afterSaleService.GetReturnInfo()
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, info)
}

// Config 售后配置（申请窗口天数等），小程序端据此展示入口
// @Summary 售后配置
// @Tags mobile
// @Router /mobile/after-sale-config [get]
func (h *AfterSaleHandler) Config(c *gin.Context) {
	response.Success(c, gin.H{
		"windowDays": h.afterSaleService.WindowDays(),
		"types": []string{
			model.AfterSaleTypeRefundOnly,
			model.AfterSaleTypeReturnRefund,
			model.AfterSaleTypeExchange,
		},
	})
}
