package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/gmkit/errors"
)

const (
	StatusBadRequest   = http.StatusBadRequest
	StatusUnauthorized = http.StatusUnauthorized
)

// RequestIDHeader 由日志中间件写入响应头，响应体同时携带
const RequestIDHeader = "X-Request-Id"

const (
	successMsg  = "success"
	failureMsg  = "operation failed"
	internalMsg = "internal server error"
)

// Response 统一响应结构
type Response struct {
	Code      int    `json:"code"`
	Msg       string `json:"msg,omitempty"`
	Data      any    `json:"data,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func write(c *gin.Context, status int, resp Response) {
	resp.RequestID = c.Writer.Header().Get(RequestIDHeader)
	c.JSON(status, &resp)
}

// GinJSON 写入成功响应: HTTP 200, {"code":200,"msg":"success","data":...}
func GinJSON(c *gin.Context, data any) {
	if c == nil {
		return
	}
	write(c, http.StatusOK, Response{Code: http.StatusOK, Msg: successMsg, Data: data})
}

// GinJSONE 以 HTTP 200 写入业务码 code。data 为 error 时取其消息，
// 为 string 时作为消息，为 nil 时使用默认消息，其他类型放入 data
//
//	GinJSONE(c, errors.CodeIntegrity, sm2.ErrIntegrity)
//	// {"code":4004,"msg":"sm2: ciphertext integrity check failed"}
func GinJSONE(c *gin.Context, code int, data any) {
	if c == nil {
		return
	}
	resp := Response{Code: code}
	switch v := data.(type) {
	case error:
		resp.Msg = message(v)
	case string:
		resp.Msg = v
	case nil:
		resp.Msg = failureMsg
	default:
		resp.Data = v
	}
	write(c, http.StatusOK, resp)
}

// GinError 写入错误响应，HTTP 状态由 errors.HTTPStatus 映射，Metadata 放入 data
//
//	GinError(c, sm2.ErrDecode)
//	// HTTP 400, {"code":4002,"msg":"sm2: malformed input"}
func GinError(c *gin.Context, err error) {
	if c == nil {
		return
	}
	code := errors.Code(err)
	resp := Response{Code: code, Msg: message(err)}
	var ge *errors.Error
	if errors.As(err, &ge) && len(ge.Metadata) > 0 {
		resp.Data = ge.Metadata
	}
	write(c, errors.HTTPStatus(code), resp)
}

// message 返回结构化错误的 Message，不暴露 cause。
// 非结构化错误可能携带解析细节，统一返回通用消息
func message(err error) string {
	if err == nil {
		return failureMsg
	}
	var ge *errors.Error
	if errors.As(err, &ge) {
		return ge.Message
	}
	return internalMsg
}
