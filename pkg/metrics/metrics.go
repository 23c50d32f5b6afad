package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 订单与支付关键指标。
// 回调是异步对账入口，按结果分类计数便于发现验签失败和重复投递。
var (
	OrderTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beadshop",
		Name:      "order_transitions_total",
		Help:      "Order state transitions by target state",
	}, []string{"to"})

	PaymentCallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beadshop",
		Name:      "payment_callbacks_total",
		Help:      "Payment gateway callbacks by outcome",
	}, []string{"outcome"})

	GatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beadshop",
		Name:      "gateway_requests_total",
		Help:      "Outbound payment gateway requests by result",
	}, []string{"result"})

	TrackingQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beadshop",
		Name:      "tracking_queries_total",
		Help:      "Courier tracking queries by result",
	}, []string{"result"})
)
