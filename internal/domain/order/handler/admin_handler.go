package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"beadshop/internal/domain/order/model"
	"beadshop/internal/domain/order/repository"
	"beadshop/internal/domain/order/service"
	"beadshop/pkg/response"
)

// AdminHandler 管理端订单与售后接口
type AdminHandler struct {
	orderService     service.OrderService
	afterSaleService service.AfterSaleService
}

func NewAdminHandler(orderService service.OrderService, afterSaleService service.AfterSaleService) *AdminHandler {
	return &AdminHandler{orderService: orderService, afterSaleService: afterSaleService}
}

type adminListQuery struct {
	Status          *int   `form:"status"`
	AfterSaleStatus *int   `form:"afterSaleStatus"`
	Keyword         string `form:"keyword"`
	From            string `form:"from"` // 2006-01-02
	To              string `form:"to"`
}

func (q *adminListQuery) toFilter() repository.OrderFilter {
	filter := repository.OrderFilter{Keyword: q.Keyword}
	if q.Status != nil {
		s := model.OrderStatus(*q.Status)
		filter.Status = &s
	}
	if q.AfterSaleStatus != nil {
		s := model.AfterSaleStatus(*q.AfterSaleStatus)
		filter.AfterSaleStatus = &s
	}
	if t, err := time.ParseInLocation("2006-01-02", q.From, time.Local); err == nil && q.From != "" {
		filter.CreatedFrom = &t
	}
	if t, err := time.ParseInLocation("2006-01-02", q.To, time.Local); err == nil && q.To != "" {
		// 截止日期按当天末尾算
		end := t.Add(24*time.Hour - time.Second)
		filter.CreatedTo = &end
	}
	return filter
}

// ListOrders 订单列表，支持状态/关键字/时间范围过滤
// @Summary 订单列表
// @Tags admin
// @Security BearerAuth
// @Router /admin/orders [get]
func (h *AdminHandler) ListOrders(c *gin.Context) {
	var q adminListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "invalid query: "+err.Error())
		return
	}

	orders, err := h.orderService.AdminList(q.toFilter())
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, orders)
}

// Summary 看板汇总：订单量、销售额、待处理数
// @Summary 订单汇总
// @Tags admin
// @Security BearerAuth
// @Router /admin/orders/summary [get]
func (h *AdminHandler) Summary(c *gin.Context) {
	summary, err := h.orderService.Summarize()
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, summary)
}

type shipRequest struct {
	OrderID        string `json:"orderId" binding:"required"`
	TrackingNumber string `json:"trackingNumber" binding:"required"`
	CarrierName    string `json:"carrierName"`
	CarrierCode    string `json:"carrierCode"`
}

// Ship 发货，已发货订单允许换单号补录
// @Summary 订单发货
// @Tags admin
// @Security BearerAuth
// @Router /admin/orders/ship [post]
func (h *AdminHandler) Ship(c *gin.Context) {
	var req shipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "invalid request: "+err.Error())
		return
	}

	err := h.orderService.Ship(req.OrderID, repository.ShipmentUpdate{
		TrackingNumber: req.TrackingNumber,
		CarrierName:    req.CarrierName,
		CarrierCode:    req.CarrierCode,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, nil)
}

// ListAfterSale 有售后申请的订单列表
// @Summary 售后列表
// @Tags admin
// @Security BearerAuth
// @Router /admin/orders/after-sale [get]
func (h *AdminHandler) ListAfterSale(c *gin.Context) {
	var q adminListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "invalid query: "+err.Error())
		return
	}

	filter := q.toFilter()
	filter.HasAfterSale = true

	orders, err := h.orderService.AdminList(filter)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, orders)
}

type handleAfterSaleRequest struct {
	OrderID              string   `json:"orderId" binding:"required"`
	Status               int      `json:"status" binding:"required"`
	RefundAmount         *float64 `json:"refundAmount"`
	Remark               *string  `json:"remark"`
	ReturnCarrierCode    *string  `json:"returnCarrierCode"`
	ReturnTrackingNumber *string  `json:"returnTrackingNumber"`
}

// HandleAfterSale 处理售后申请（审核/退款/完结/拒绝）
// @Summary 处理售后
// @Tags admin
// @Security BearerAuth
// @Router /admin/orders/after-sale/handle [post]
func (h *AdminHandler) HandleAfterSale(c *gin.Context) {
	var req handleAfterSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "invalid request: "+err.Error())
		return
	}

	err := h.afterSaleService.Handle(c.Request.Context(), req.OrderID, repository.AfterSaleHandling{
		Status:               model.AfterSaleStatus(req.Status),
		RefundAmount:         req.RefundAmount,
		Remark:               req.Remark,
		ReturnCarrierCode:    req.ReturnCarrierCode,
		ReturnTrackingNumber: req.ReturnTrackingNumber,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, nil)
}

// GetReturnInfo 查看当前配置的售后寄回地址
// @Summary 售后寄回地址
// @Tags admin
// @Security BearerAuth
// @Router /admin/orders/after-sale/return-info [get]
func (h *AdminHandler) GetReturnInfo(c *gin.Context) {
	info, err := h.afterSaleService.GetReturnInfo()
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, info)
}

type returnInfoRequest struct {
	ReceiverName string `json:"receiverName" binding:"required"`
	TelNumber    string `json:"telNumber" binding:"required"`
	Address      string `json:"address" binding:"required"`
	Note         string `json:"note"`
}

// SaveReturnInfo 维护售后寄回地址（全店一条）
// @Summary 保存售后寄回地址
// @Tags admin
// @Security BearerAuth
// @Router /admin/orders/after-sale/return-info [post]
func (h *AdminHandler) SaveReturnInfo(c *gin.Context) {
	var req returnInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "invalid request: "+err.Error())
		return
	}

	err := h.afterSaleService.SaveReturnInfo(&model.ReturnInfo{
		ReceiverName: req.ReceiverName,
		TelNumber:    req.TelNumber,
		Address:      req.Address,
		Note:         req.Note,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, nil)
}
