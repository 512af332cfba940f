package middleware

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kochabx/gmkit/log"
	transport "github.com/kochabx/gmkit/transport/http"
)

// RequestIDHeader 请求 ID 头，缺失时由 Logger 生成并回写，响应体中的 request_id 取自该头
const RequestIDHeader = transport.RequestIDHeader

// redactedHeaders 记录请求头时替换为 ******
var redactedHeaders = []string{"Authorization", DefaultSignatureHeader, "Cookie"}

// LoggerConfig 日志中间件配置
type LoggerConfig struct {
	RequestBody  bool // 记录请求体，经 Logger 的脱敏钩子处理
	ResponseBody bool
	MaxBodySize  int  // 默认 4096
	Header       bool // 记录请求头，凭证类头部被替换
	HandlerName  bool
	SkipPaths    []string
	SkipFunc     func(*gin.Context) bool
	Logger       *log.Logger
}

// responseWriter 捕获响应体
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Logger 记录访问日志，级别按状态码: 5xx error，4xx warn，其余 info
func Logger(cfgs ...LoggerConfig) gin.HandlerFunc {
	cfg := LoggerConfig{}
	if len(cfgs) > 0 {
		cfg = cfgs[0]
	}
	if cfg.Logger == nil {
		cfg.Logger = log.G
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = 4096
	}

	matcher := NewPathMatcher(cfg.SkipPaths)

	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		if shouldSkip(c, matcher, cfg.SkipFunc) {
			c.Next()
			return
		}

		start := time.Now()

		var requestBody []byte
		if cfg.RequestBody {
			if body, err := c.GetRawData(); err == nil {
				requestBody = body
				c.Request.Body = io.NopCloser(bytes.NewReader(body))
			}
		}

		var rw *responseWriter
		if cfg.ResponseBody {
			rw = &responseWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
			c.Writer = rw
		}

		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			event = cfg.Logger.Error()
		case status >= http.StatusBadRequest:
			event = cfg.Logger.Warn()
		default:
			event = cfg.Logger.Info()
		}

		event = event.
			Str("request_id", requestID).
			Int("status", status).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Bool("signed", c.GetHeader(DefaultSignatureHeader) != "").
			Bool("signature_verified", c.GetBool(SignatureVerifiedKey))

		if query := c.Request.URL.RawQuery; query != "" {
			event = event.Str("query", query)
		}
		if cfg.HandlerName {
			event = event.Str("handler", c.HandlerName())
		}
		if cfg.Header {
			event = event.Any("headers", redactHeaders(c.Request.Header))
		}
		if len(requestBody) > 0 {
			event = event.Bytes("request_body", truncate(requestBody, cfg.MaxBodySize))
		}
		if rw != nil {
			event = event.Bytes("response_body", truncate(rw.body.Bytes(), cfg.MaxBodySize))
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.ByType(gin.ErrorTypePrivate).String())
		}

		event.Msg("request")
	}
}

func redactHeaders(h http.Header) http.Header {
	out := h.Clone()
	for _, name := range redactedHeaders {
		if out.Get(name) != "" {
			out.Set(name, "******")
		}
	}
	return out
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
