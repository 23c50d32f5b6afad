package gateway

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSign(t *testing.T) {
	t.Run("Known vector", func(t *testing.T) {
		// 手算：md5("a=1&b=2&key=secret") 的大写十六进制
		params := map[string]string{"b": "2", "a": "1"}
		got := Sign(params, "secret")

		assert.Len(t, got, 32)
		assert.Equal(t, strings.ToUpper(got), got)
		// 入参顺序不影响结果
		assert.Equal(t, got, Sign(map[string]string{"a": "1", "b": "2"}, "secret"))
	})

	t.Run("Skips empty values and sign field", func(t *testing.T) {
		base := map[string]string{"a": "1", "b": "2"}
		withNoise := map[string]string{"a": "1", "b": "2", "c": "", "sign": "FAKE"}

		assert.Equal(t, Sign(base, "k"), Sign(withNoise, "k"))
	})

	t.Run("Key changes signature", func(t *testing.T) {
		params := map[string]string{"a": "1"}
		assert.NotEqual(t, Sign(params, "k1"), Sign(params, "k2"))
	})
}

func TestMarshalUnmarshal(t *testing.T) {
	t.Run("Round trip", func(t *testing.T) {
		in := map[string]string{
			"return_code":  "SUCCESS",
			"out_trade_no": "order-123",
			"body":         "手串支付",
		}

		out, err := Unmarshal(Marshal(in))
		assert.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("Marshal output is stable and CDATA wrapped", func(t *testing.T) {
		data := string(Marshal(map[string]string{"b": "2", "a": "1"}))

		assert.Equal(t, "<xml><a><![CDATA[1]]></a><b><![CDATA[2]]></b></xml>", data)
	})

	t.Run("Unmarshal accepts plain text values", func(t *testing.T) {
		out, err := Unmarshal([]byte("<xml><return_code>SUCCESS</return_code></xml>"))

		assert.NoError(t, err)
		assert.Equal(t, "SUCCESS", out["return_code"])
	})

	t.Run("Value containing CDATA terminator survives", func(t *testing.T) {
		in := map[string]string{"body": "weird]]>value"}

		out, err := Unmarshal(Marshal(in))
		assert.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("Garbage input fails", func(t *testing.T) {
		_, err := Unmarshal([]byte("not xml at all"))
		assert.Error(t, err)
	})

	t.Run("Empty document fails", func(t *testing.T) {
		_, err := Unmarshal([]byte("<xml></xml>"))
		assert.Error(t, err)
	})
}

func TestNonceStr(t *testing.T) {
	a := NonceStr()
	b := NonceStr()

	assert.Len(t, a, 32)
	assert.NotContains(t, a, "-")
	assert.NotEqual(t, a, b)
}
