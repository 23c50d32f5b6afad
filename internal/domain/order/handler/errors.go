package handler

import (
	"errors"
	"net/http"

	"beadshop/internal/domain/order/gateway"
	"beadshop/internal/domain/order/service"
	"beadshop/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeError 把服务层哨兵错误映射为 HTTP 状态和业务码
func writeError(c *gin.Context, err error) {
	var upstream *gateway.UpstreamError

	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		response.Error(c, http.StatusNotFound, response.ErrOrderNotFound, "order not found")
	case errors.Is(err, service.ErrNotOwner):
		response.Error(c, http.StatusForbidden, response.ErrOwnerMismatch, "order does not belong to this user")
	case errors.Is(err, service.ErrOrderExpired):
		// 410：订单已超时关闭，客户端应引导重新下单
		response.Error(c, http.StatusGone, response.ErrOrderExpired, "order has expired")
	case errors.Is(err, service.ErrStateConflict):
		response.Error(c, http.StatusBadRequest, response.ErrStateConflict, "order status does not allow this operation")
	case errors.Is(err, service.ErrEmptyItems):
		response.Error(c, http.StatusBadRequest, response.ErrCartEmpty, "order must contain at least one item")
	case errors.Is(err, service.ErrAfterSaleNotAllowed):
		response.Error(c, http.StatusBadRequest, response.ErrAfterSaleNotAllowed, "order status does not allow after-sale")
	case errors.Is(err, service.ErrWindowExpired):
		response.Error(c, http.StatusBadRequest, response.ErrAfterSaleWindowExpired, "after-sale window has expired")
	case errors.Is(err, service.ErrInvalidType):
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "unknown after-sale type")
	case errors.Is(err, service.ErrInvalidStatus):
		response.Error(c, http.StatusBadRequest, response.ErrAfterSaleInvalidStatus, "invalid after-sale status")
	case errors.Is(err, service.ErrWrongSubState):
		response.Error(c, http.StatusBadRequest, response.ErrAfterSaleWrongSubState, "after-sale status does not allow this operation")
	case errors.Is(err, gateway.ErrConfig):
		response.Error(c, http.StatusInternalServerError, response.ErrGatewayConfig, "payment is not configured")
	case errors.As(err, &upstream):
		response.Error(c, http.StatusBadGateway, response.ErrGatewayUpstream, upstream.Msg)
	default:
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "internal server error")
	}
}
