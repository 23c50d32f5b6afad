package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"beadshop/internal/domain/admin/service"
	"beadshop/pkg/logger"
	"beadshop/pkg/response"
)

// AuthHandler 管理后台登录
type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 管理员登录，签发 JWT
// @Summary 管理员登录
// @Tags admin
// @Router /admin/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "username and password are required")
		return
	}

	result, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrBadCredentials) {
			logger.Get().Warn("admin login rejected",
				zap.String("username", req.Username),
				zap.String("ip", c.ClientIP()))
			response.Error(c, http.StatusUnauthorized, response.ErrAuthFailed, "invalid username or password")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "login failed")
		return
	}

	response.Success(c, result)
}
