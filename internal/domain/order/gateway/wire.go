package gateway

import (
	"bytes"
	"crypto/md5"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// 微信支付 v2 报文编解码。
// 请求和回调都是一层平铺的 <xml><k><![CDATA[v]]></k>...</xml>，
// 签名规则：非空参数按 key 字典序拼成 k=v&...，末尾接 &key=<API密钥>，MD5 后转大写。

// Sign 计算参数签名，跳过空值和 sign 字段本身
func Sign(params map[string]string, apiKey string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == "sign" || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(params[k])
	}
	sb.WriteString("&key=")
	sb.WriteString(apiKey)

	sum := md5.Sum([]byte(sb.String()))
	return strings.ToUpper(fmt.Sprintf("%x", sum))
}

// Marshal 编码为微信报文，字段按 key 排序保证输出稳定
func Marshal(params map[string]string) []byte {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString("<xml>")
	for _, k := range keys {
		buf.WriteString("<" + k + "><![CDATA[")
		// CDATA 内不允许出现 ]]>，拆开续写
		buf.WriteString(strings.ReplaceAll(params[k], "]]>", "]]]]><![CDATA[>"))
		buf.WriteString("]]></" + k + ">")
	}
	buf.WriteString("</xml>")
	return buf.Bytes()
}

// Unmarshal 解析微信报文为平铺字段表，CDATA 和裸文本都接受
func Unmarshal(data []byte) (map[string]string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	fields := make(map[string]string)

	var current string
	var value strings.Builder
	depth := 0

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse wechat payload: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 {
				current = t.Name.Local
				value.Reset()
			}
		case xml.CharData:
			if depth == 2 {
				value.Write(t)
			}
		case xml.EndElement:
			if depth == 2 && current != "" {
				fields[current] = value.String()
				current = ""
			}
			depth--
		}
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("parse wechat payload: no fields")
	}
	return fields, nil
}

// NonceStr 生成 32 位随机串
func NonceStr() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
