package logger

import (
	"bytes"
	"io"
	log "log/slog"
	"net/http"
	"strings"
	"time"
)

const bodyLogLimit = 1000

// HTTPTransport 记录后端 REST 调用，慢请求告警，请求体/响应体截断
type HTTPTransport struct {
	Transport http.RoundTripper
	Slow      time.Duration
}

func NewHTTPTransport(next http.RoundTripper) *HTTPTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &HTTPTransport{Transport: next, Slow: 500 * time.Millisecond}
}

func (t *HTTPTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	var reqBody []byte
	if req.Body != nil && isTextual(req.Header.Get("Content-Type")) {
		reqBody, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewBuffer(reqBody))
	}

	resp, err := t.Transport.RoundTrip(req)
	elapsed := time.Since(start)

	fields := []any{
		log.String("method", req.Method),
		log.String("url", req.URL.String()),
		log.Duration("latency", elapsed),
		log.String("req_body", truncate(reqBody)),
	}

	if err != nil {
		log.ErrorContext(req.Context(), "REST_CALL_ERROR", append(fields, log.Any("err", err))...)
		return nil, err
	}

	var resBody []byte
	if resp.Body != nil {
		resBody, _ = io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		resp.Body = io.NopCloser(bytes.NewBuffer(resBody))
	}
	fields = append(fields, log.Int("status", resp.StatusCode), log.String("res_body", truncate(resBody)))

	switch {
	case resp.StatusCode >= http.StatusBadRequest:
		log.WarnContext(req.Context(), "REST_CALL_FAILED", fields...)
	case t.Slow > 0 && elapsed > t.Slow:
		log.WarnContext(req.Context(), "REST_CALL_SLOW", fields...)
	default:
		log.DebugContext(req.Context(), "REST_CALL", fields...)
	}

	return resp, nil
}

func isTextual(contentType string) bool {
	return contentType == "" || strings.Contains(contentType, "json") || strings.HasPrefix(contentType, "text/")
}

func truncate(b []byte) string {
	s := string(b)
	if len(s) > bodyLogLimit {
		return s[:bodyLogLimit] + "...[truncated]"
	}
	return s
}
