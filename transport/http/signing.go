package http

import (
	"bytes"
	"maps"
	"net/url"
	"slices"
)

// SignatureHeader 请求签名默认头，值为 hex 编码的 SM2 签名
const SignatureHeader = "X-Signature"

// SignedParts 参与请求签名的部分，按位组合
type SignedParts uint8

const (
	SignMethod SignedParts = 1 << iota
	SignPath
	SignQuery
	SignBody

	// DefaultSignedParts query 与请求体，方法和路径不参与
	DefaultSignedParts = SignQuery | SignBody
)

// CanonicalRequest 拼接待签名数据，依次为方法、路径、query、请求体。
// query 按 key 排序，同一 key 的多个值保持原顺序，形如 a=1&a=3&b=2；
// 不做 URL 编码，签名方与验签方必须使用同一函数
func CanonicalRequest(parts SignedParts, method, path string, query url.Values, body []byte) []byte {
	var buf bytes.Buffer
	if parts&SignMethod != 0 {
		buf.WriteString(method)
	}
	if parts&SignPath != 0 {
		buf.WriteString(path)
	}
	if parts&SignQuery != 0 {
		first := true
		for _, k := range slices.Sorted(maps.Keys(query)) {
			for _, v := range query[k] {
				if !first {
					buf.WriteByte('&')
				}
				first = false
				buf.WriteString(k)
				buf.WriteByte('=')
				buf.WriteString(v)
			}
		}
	}
	if parts&SignBody != 0 {
		buf.Write(body)
	}
	return buf.Bytes()
}
