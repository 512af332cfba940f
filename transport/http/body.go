package http

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"

	"github.com/kochabx/gmkit/errors"
)

// BodyEncoding 加密请求体在传输时的文本编码，空值按 base64 处理
type BodyEncoding string

const (
	BodyBase64 BodyEncoding = "base64"
	BodyHex    BodyEncoding = "hex"
	BodyRaw    BodyEncoding = "raw"
)

// ContentType 编码后请求体的 Content-Type
func (e BodyEncoding) ContentType() string {
	if e == BodyRaw {
		return "application/octet-stream"
	}
	return "text/plain"
}

func (e BodyEncoding) Encode(ciphertext []byte) []byte {
	switch e {
	case BodyRaw:
		return ciphertext
	case BodyHex:
		return hex.AppendEncode(nil, ciphertext)
	default:
		return base64.StdEncoding.AppendEncode(nil, ciphertext)
	}
}

// Decode 忽略首尾空白，非法输入返回 Decode 错误
func (e BodyEncoding) Decode(body []byte) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch e {
	case BodyRaw:
		return body, nil
	case BodyHex:
		out, err = hex.AppendDecode(nil, bytes.TrimSpace(body))
	default:
		out, err = base64.StdEncoding.AppendDecode(nil, bytes.TrimSpace(body))
	}
	if err != nil {
		return nil, errors.Decode("http: malformed %s body", e.name()).WithCause(err)
	}
	return out, nil
}

func (e BodyEncoding) name() string {
	if e == "" {
		return string(BodyBase64)
	}
	return string(e)
}
