package feequote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dujiao-next/foodcart/internal/models"
)

const defaultTimeout = 10 * time.Second

// HTTPService 通过 HTTP 调用远端报价服务
type HTTPService struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// NewHTTPService 创建 HTTP 报价服务；client 为空时使用 http.DefaultClient
func NewHTTPService(baseURL string, timeout time.Duration, client *http.Client) *HTTPService {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPService{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		timeout: timeout,
		client:  client,
	}
}

// QuoteSingle 单餐厅报价
func (s *HTTPService) QuoteSingle(ctx context.Context, req SingleRequest) (*SingleQuote, error) {
	if req.RestaurantID == 0 {
		return nil, fmt.Errorf("%w: restaurant_id is required", ErrRequestInvalid)
	}
	var quote SingleQuote
	if err := s.call(ctx, http.MethodPost, PathSingle, req, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// QuoteMulti 多餐厅报价
func (s *HTTPService) QuoteMulti(ctx context.Context, req MultiRequest) (*MultiQuote, error) {
	if len(req.RestaurantIDs) == 0 {
		return nil, fmt.Errorf("%w: restaurant_ids is required", ErrRequestInvalid)
	}
	var quote MultiQuote
	if err := s.call(ctx, http.MethodPost, PathMulti, req, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// PublicSettings 公共配送设置
func (s *HTTPService) PublicSettings(ctx context.Context) (models.JSON, error) {
	settings := models.JSON{}
	if err := s.call(ctx, http.MethodGet, PathPublicSettings, nil, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *HTTPService) call(ctx context.Context, method, path string, payload, dest interface{}) error {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%w: encode request failed", ErrRequestInvalid)
		}
		body = encoded
	}
	respBody, status, err := s.doJSONRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("%w: %s status %d", ErrRequestFailed, path, status)
	}
	data, err := unwrapEnvelope(respBody)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: decode %s failed", ErrResponseInvalid, path)
	}
	return nil
}

func (s *HTTPService) doJSONRequest(ctx context.Context, method, path string, body []byte) ([]byte, int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := s.withDefaultTimeout(ctx)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrRequestFailed, ctxErr)
		}
		return nil, 0, fmt.Errorf("%w: http request failed", ErrRequestFailed)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read response failed", ErrRequestFailed)
	}
	return respBody, resp.StatusCode, nil
}

func (s *HTTPService) withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// unwrapEnvelope 兼容 {"status_code","msg","data"} 包装与裸响应体
func unwrapEnvelope(body []byte) ([]byte, error) {
	var envelope struct {
		StatusCode *int            `json:"status_code"`
		Msg        string          `json:"msg"`
		Data       json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: body is not json", ErrResponseInvalid)
	}
	if envelope.StatusCode == nil {
		return body, nil
	}
	if *envelope.StatusCode != 0 {
		return nil, fmt.Errorf("%w: status_code=%d msg=%s", ErrRequestFailed, *envelope.StatusCode, envelope.Msg)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil, fmt.Errorf("%w: empty data", ErrResponseInvalid)
	}
	return envelope.Data, nil
}
