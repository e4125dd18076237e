package restapi

import (
	"Vibeshare/internal/api/config"
	"Vibeshare/internal/pkg/consts"
	"Vibeshare/internal/pkg/logger"
	"Vibeshare/internal/pkg/metrics"
	"Vibeshare/internal/pkg/security"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// APIError 后端返回的非 2xx 响应
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend %d: %s", e.Status, e.Message)
}

// IsStatus 判断 err 是否为指定状态码的 APIError
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == status
	}
	return false
}

// Client 后端 REST 客户端
type Client struct {
	http   *resty.Client
	tokens security.TokenProvider
}

func NewClient(cfg config.BackendConfig, tokens security.TokenProvider) *Client {
	r := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal).
		SetTransport(logger.NewHTTPTransport(nil))

	if cfg.Timeout > 0 {
		r.SetTimeout(time.Duration(cfg.Timeout) * time.Second)
	}
	if cfg.RetryCount > 0 {
		r.SetRetryCount(cfg.RetryCount).
			AddRetryCondition(func(resp *resty.Response, err error) bool {
				return err != nil || resp.StatusCode() >= http.StatusInternalServerError
			})
	}

	c := &Client{http: r, tokens: tokens}
	r.OnBeforeRequest(c.authorize)
	return c
}

func (c *Client) authorize(_ *resty.Client, req *resty.Request) error {
	ctx := req.Context()
	if c.tokens != nil {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return errors.Wrap(err, "access token")
		}
		req.SetAuthToken(token)
	}
	if traceID := logger.TraceID(ctx); traceID != "" {
		req.SetHeader("X-Trace-ID", traceID)
	}
	return nil
}

// do 执行请求；成功且响应体非空时解码到 out
func (c *Client) do(ctx context.Context, op string, req *resty.Request, method, url string, out any) error {
	resp, err := req.SetContext(ctx).Execute(method, url)
	if err != nil {
		metrics.IncRestFailure(op)
		return errors.Wrapf(err, "%s %s", method, url)
	}

	if resp.IsError() {
		metrics.IncRestFailure(op)
		return newAPIError(resp)
	}

	body := resp.Body()
	if out == nil || len(body) == 0 {
		return nil
	}
	if err = json.Unmarshal(body, out); err != nil {
		metrics.IncRestFailure(op)
		return errors.Wrapf(err, "decode %s %s", method, url)
	}
	return nil
}

func (c *Client) request() *resty.Request {
	return c.http.R().SetHeader("Content-Type", "application/json")
}

func newAPIError(resp *resty.Response) *APIError {
	msg := consts.DefaultRequestFailedMessage
	var body struct {
		Message *string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Message != nil && *body.Message != "" {
		msg = *body.Message
	}
	return &APIError{Status: resp.StatusCode(), Message: msg}
}
