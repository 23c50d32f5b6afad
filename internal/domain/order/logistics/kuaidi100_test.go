package logistics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"beadshop/internal/domain/order/model"
	"beadshop/internal/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCarrier(t *testing.T) {
	assert.Equal(t, "zhongtong", NormalizeCarrier("zto"))
	assert.Equal(t, "zhongtong", NormalizeCarrier("ZTO"))
	assert.Equal(t, "shunfeng", NormalizeCarrier("sf"))
	assert.Equal(t, "yuantong", NormalizeCarrier("yto"))
	assert.Equal(t, "shentong", NormalizeCarrier("sto"))
	assert.Equal(t, "yunda", NormalizeCarrier("yd"))
	assert.Equal(t, "jd", NormalizeCarrier("jd"))
	// 未知编码转小写透传
	assert.Equal(t, "ems", NormalizeCarrier("EMS"))
	assert.Equal(t, "", NormalizeCarrier("  "))
}

type recordingCompleter struct {
	completed []string
}

func (r *recordingCompleter) AutoComplete(orderID string) error {
	r.completed = append(r.completed, orderID)
	return nil
}

func shippedOrder() *model.Order {
	return &model.Order{
		ID:             "order-1",
		Status:         model.StatusShipped,
		TrackingNumber: "SF123456",
		CarrierCode:    "sf",
		CarrierName:    "顺丰速运",
		Address:        &model.Address{TelNumber: "13800138000"},
	}
}

func TestQueryNeutralViews(t *testing.T) {
	tracker := NewTracker(config.KuaidiConfig{})

	t.Run("Unshipped order", func(t *testing.T) {
		view := tracker.Query(&model.Order{ID: "o", Status: model.StatusPaid}, DirectionOutbound)

		assert.Equal(t, "未发货", view.Status)
		assert.Empty(t, view.Nodes)
	})

	t.Run("Return logistics not submitted", func(t *testing.T) {
		view := tracker.Query(&model.Order{ID: "o"}, DirectionReturn)

		assert.Equal(t, "未填写退货物流", view.Status)
	})

	t.Run("Missing credentials degrades gracefully", func(t *testing.T) {
		view := tracker.Query(shippedOrder(), DirectionOutbound)

		assert.Equal(t, "暂无物流更新", view.Status)
		assert.Equal(t, "SF123456", view.TrackingNumber)
		assert.Equal(t, "8000", view.PhoneTail)
	})
}

func TestQueryUpstream(t *testing.T) {
	newServer := func(state string, handler func(form map[string]string)) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.ParseForm()
			if handler != nil {
				handler(map[string]string{
					"customer": r.PostFormValue("customer"),
					"sign":     r.PostFormValue("sign"),
					"param":    r.PostFormValue("param"),
				})
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "200",
				"state":  state,
				"data": []map[string]string{
					{"time": "2026-08-01 09:00:00", "context": "已揽收", "areaName": "深圳"},
					{"time": "2026-08-02 18:30:00", "context": "派送中", "areaName": "北京"},
				},
			})
		}))
	}

	t.Run("Nodes sorted newest first with state text", func(t *testing.T) {
		var form map[string]string
		server := newServer("0", func(f map[string]string) { form = f })
		defer server.Close()

		tracker := NewTracker(config.KuaidiConfig{Customer: "cust", Key: "key", QueryURL: server.URL})
		view := tracker.Query(shippedOrder(), DirectionOutbound)

		assert.Equal(t, "在途", view.Status)
		require.Len(t, view.Nodes, 2)
		assert.Equal(t, "派送中", view.Nodes[0].Status)
		assert.Equal(t, "已揽收", view.Nodes[1].Status)

		// 请求参数：归一化编码 + 签名
		var param map[string]string
		require.NoError(t, json.Unmarshal([]byte(form["param"]), &param))
		assert.Equal(t, "shunfeng", param["com"])
		assert.Equal(t, "SF123456", param["num"])
		assert.Equal(t, "8000", param["phone"])
		assert.Equal(t, "cust", form["customer"])
		assert.NotEmpty(t, form["sign"])
	})

	t.Run("Delivered triggers auto-complete on outbound", func(t *testing.T) {
		server := newServer("3", nil)
		defer server.Close()

		completer := &recordingCompleter{}
		tracker := NewTracker(config.KuaidiConfig{Customer: "cust", Key: "key", QueryURL: server.URL})
		tracker.SetCompleter(completer)

		view := tracker.Query(shippedOrder(), DirectionOutbound)

		assert.Equal(t, "签收", view.Status)
		assert.Equal(t, []string{"order-1"}, completer.completed)
	})

	t.Run("Delivered return shipment does not complete order", func(t *testing.T) {
		server := newServer("3", nil)
		defer server.Close()

		completer := &recordingCompleter{}
		tracker := NewTracker(config.KuaidiConfig{Customer: "cust", Key: "key", QueryURL: server.URL})
		tracker.SetCompleter(completer)

		order := shippedOrder()
		order.ReturnTrackingNumber = "YT987"
		order.ReturnCarrierCode = "yto"
		tracker.Query(order, DirectionReturn)

		assert.Empty(t, completer.completed)
	})

	t.Run("Upstream error falls back to neutral view", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"status": "408", "message": "查询无结果"})
		}))
		defer server.Close()

		tracker := NewTracker(config.KuaidiConfig{Customer: "cust", Key: "key", QueryURL: server.URL})
		view := tracker.Query(shippedOrder(), DirectionOutbound)

		assert.Equal(t, "暂无物流更新", view.Status)
		assert.Empty(t, view.Nodes)
	})
}

func TestDetectCarrier(t *testing.T) {
	t.Run("First match wins", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "SF123", r.URL.Query().Get("num"))
			json.NewEncoder(w).Encode([]map[string]string{
				{"comCode": "shunfeng"},
				{"comCode": "shentong"},
			})
		}))
		defer server.Close()

		tracker := NewTracker(config.KuaidiConfig{Key: "key", AutoURL: server.URL})
		assert.Equal(t, "shunfeng", tracker.DetectCarrier("SF123"))
	})

	t.Run("No match returns empty", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("[]"))
		}))
		defer server.Close()

		tracker := NewTracker(config.KuaidiConfig{Key: "key", AutoURL: server.URL})
		assert.Equal(t, "", tracker.DetectCarrier("UNKNOWN"))
	})

	t.Run("Missing key skips request", func(t *testing.T) {
		tracker := NewTracker(config.KuaidiConfig{})
		assert.Equal(t, "", tracker.DetectCarrier("SF123"))
	})
}
