package response

// 业务状态码
const (
	CodeSuccess = 0
	CodeError   = 1

	// 订单模块错误 100xx
	ErrOrderNotFound   = 10001
	ErrOrderExpired    = 10002
	ErrOwnerMismatch   = 10003
	ErrStateConflict   = 10004
	ErrCartEmpty       = 10005
	ErrMissingIdentity = 10006

	// 售后模块错误 200xx
	ErrAfterSaleNotAllowed    = 20001
	ErrAfterSaleWindowExpired = 20002
	ErrAfterSaleInvalidStatus = 20003
	ErrAfterSaleWrongSubState = 20004

	// 支付/上游错误 300xx
	ErrGatewayConfig   = 30001
	ErrGatewayUpstream = 30002

	// 认证错误 400xx
	ErrAuthFailed   = 40001
	ErrTokenInvalid = 40002
	ErrNoPermission = 40003

	// 系统错误 500xx
	ErrServerInternal  = 50001
	ErrInvalidParam    = 50002
	ErrTooManyRequests = 50003
)
