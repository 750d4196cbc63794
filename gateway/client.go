package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// GMO Coin API 端点。
const (
	PublicRESTURL  = "https://api.coin.z.com/public"
	PrivateRESTURL = "https://api.coin.z.com/private"
	PrivateWSURL   = "wss://api.coin.z.com/ws/private/v1"
)

// Client 交易所查询/下单接口。对账、报告、K线轮询只依赖该接口。
type Client interface {
	GetOrder(ctx context.Context, venueOrderID string) ([]OrderData, error)
	GetActiveOrders(ctx context.Context, symbol string) ([]OrderData, error)
	GetExecutions(ctx context.Context, venueOrderID string) ([]ExecutionData, error)
	GetLatestExecutions(ctx context.Context, symbol string) ([]ExecutionData, error)
	GetAssets(ctx context.Context) ([]AssetData, error)
	GetOpenPositions(ctx context.Context, symbol string) ([]PositionData, error)
	GetKlines(ctx context.Context, symbol, interval, date string) ([]KlineData, error)
	GetSymbols(ctx context.Context) ([]SymbolData, error)
	SubmitOrder(ctx context.Context, req SubmitOrderRequest) (string, error)
	CancelOrder(ctx context.Context, venueOrderID string) error
	ChangeOrder(ctx context.Context, venueOrderID string, price decimal.Decimal) error
}

// RESTClient 一个可签名的简化客户端；HTTPClient 可注入 httptest，不强依赖真实网络。
type RESTClient struct {
	PublicBaseURL  string
	PrivateBaseURL string
	APIKey         string
	Secret         string
	HTTPClient     *http.Client
	Limiter        RateLimiter

	// 测试用时间源
	Now func() time.Time
}

// envelope GMO 统一响应包装：{"status":0,"data":...,"responsetime":"..."}。
type envelope struct {
	Status       int             `json:"status"`
	Data         json.RawMessage `json:"data"`
	Messages     json.RawMessage `json:"messages"`
	ResponseTime string          `json:"responsetime"`
}

// listData 私有查询端点把列表包在 {"list": [...]} 里。
type listData[T any] struct {
	List []T `json:"list"`
}

func (c *RESTClient) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *RESTClient) wait(ctx context.Context) error {
	if c.Limiter == nil {
		return nil
	}
	return c.Limiter.Wait(ctx)
}

// sign GMO 签名：HMAC-SHA256(timestamp + method + path + body)，path 不含查询串。
func (c *RESTClient) sign(timestamp, method, path, body string) string {
	mac := hmac.New(sha256.New, []byte(c.Secret))
	mac.Write([]byte(timestamp + method + path + body))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *RESTClient) do(ctx context.Context, method, base, path string, query url.Values, body []byte, private bool) (json.RawMessage, error) {
	if c == nil || c.HTTPClient == nil {
		return nil, fmt.Errorf("http client not set")
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	endpoint := base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if private {
		ts := strconv.FormatInt(c.now().UnixMilli(), 10)
		req.Header.Set("API-KEY", c.APIKey)
		req.Header.Set("API-TIMESTAMP", ts)
		req.Header.Set("API-SIGN", c.sign(ts, method, path, string(body)))
	}
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s status %d", method, path, resp.StatusCode)
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if env.Status != 0 {
		return nil, fmt.Errorf("%s api status %d: %s", path, env.Status, string(env.Messages))
	}
	return env.Data, nil
}

func (c *RESTClient) privateBase() string {
	if c.PrivateBaseURL != "" {
		return c.PrivateBaseURL
	}
	return PrivateRESTURL
}

func (c *RESTClient) publicBase() string {
	if c.PublicBaseURL != "" {
		return c.PublicBaseURL
	}
	return PublicRESTURL
}

func decodeList[T any](data json.RawMessage, path string) ([]T, error) {
	// 端点在空结果时可能返回裸数组或 {"list": ...}，两者都接受。
	var wrapped listData[T]
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.List != nil {
		return wrapped.List, nil
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode %s list: %w", path, err)
	}
	return items, nil
}

func (c *RESTClient) GetOrder(ctx context.Context, venueOrderID string) ([]OrderData, error) {
	q := url.Values{"orderId": {venueOrderID}}
	data, err := c.do(ctx, http.MethodGet, c.privateBase(), "/v1/orders", q, nil, true)
	if err != nil {
		return nil, err
	}
	return decodeList[OrderData](data, "/v1/orders")
}

func (c *RESTClient) GetActiveOrders(ctx context.Context, symbol string) ([]OrderData, error) {
	q := url.Values{"symbol": {symbol}}
	data, err := c.do(ctx, http.MethodGet, c.privateBase(), "/v1/activeOrders", q, nil, true)
	if err != nil {
		return nil, err
	}
	return decodeList[OrderData](data, "/v1/activeOrders")
}

func (c *RESTClient) GetExecutions(ctx context.Context, venueOrderID string) ([]ExecutionData, error) {
	q := url.Values{"orderId": {venueOrderID}}
	data, err := c.do(ctx, http.MethodGet, c.privateBase(), "/v1/executions", q, nil, true)
	if err != nil {
		return nil, err
	}
	return decodeList[ExecutionData](data, "/v1/executions")
}

func (c *RESTClient) GetLatestExecutions(ctx context.Context, symbol string) ([]ExecutionData, error) {
	q := url.Values{"symbol": {symbol}}
	data, err := c.do(ctx, http.MethodGet, c.privateBase(), "/v1/latestExecutions", q, nil, true)
	if err != nil {
		return nil, err
	}
	return decodeList[ExecutionData](data, "/v1/latestExecutions")
}

func (c *RESTClient) GetAssets(ctx context.Context) ([]AssetData, error) {
	data, err := c.do(ctx, http.MethodGet, c.privateBase(), "/v1/account/assets", nil, nil, true)
	if err != nil {
		return nil, err
	}
	var assets []AssetData
	if err := json.Unmarshal(data, &assets); err != nil {
		return nil, fmt.Errorf("decode assets: %w", err)
	}
	return assets, nil
}

func (c *RESTClient) GetOpenPositions(ctx context.Context, symbol string) ([]PositionData, error) {
	q := url.Values{"symbol": {symbol}}
	data, err := c.do(ctx, http.MethodGet, c.privateBase(), "/v1/openPositions", q, nil, true)
	if err != nil {
		return nil, err
	}
	return decodeList[PositionData](data, "/v1/openPositions")
}

func (c *RESTClient) GetKlines(ctx context.Context, symbol, interval, date string) ([]KlineData, error) {
	q := url.Values{"symbol": {symbol}, "interval": {interval}, "date": {date}}
	data, err := c.do(ctx, http.MethodGet, c.publicBase(), "/v1/klines", q, nil, false)
	if err != nil {
		return nil, err
	}
	var klines []KlineData
	if err := json.Unmarshal(data, &klines); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}
	return klines, nil
}

func (c *RESTClient) GetSymbols(ctx context.Context) ([]SymbolData, error) {
	data, err := c.do(ctx, http.MethodGet, c.publicBase(), "/v1/symbols", nil, nil, false)
	if err != nil {
		return nil, err
	}
	var symbols []SymbolData
	if err := json.Unmarshal(data, &symbols); err != nil {
		return nil, fmt.Errorf("decode symbols: %w", err)
	}
	return symbols, nil
}

func (c *RESTClient) SubmitOrder(ctx context.Context, req SubmitOrderRequest) (string, error) {
	body, err := buildSubmitBody(req)
	if err != nil {
		return "", err
	}
	data, err := c.do(ctx, http.MethodPost, c.privateBase(), "/v1/order", nil, body, true)
	if err != nil {
		return "", err
	}
	var orderID ID
	if err := json.Unmarshal(data, &orderID); err != nil {
		return "", fmt.Errorf("decode order id: %w", err)
	}
	if orderID == "" {
		return "", fmt.Errorf("empty orderId")
	}
	return orderID.String(), nil
}

func (c *RESTClient) CancelOrder(ctx context.Context, venueOrderID string) error {
	body, err := json.Marshal(map[string]string{"orderId": venueOrderID})
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, c.privateBase(), "/v1/cancelOrder", nil, body, true)
	return err
}

func (c *RESTClient) ChangeOrder(ctx context.Context, venueOrderID string, price decimal.Decimal) error {
	body, err := json.Marshal(map[string]string{
		"orderId": venueOrderID,
		"price":   price.String(),
	})
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, c.privateBase(), "/v1/changeOrder", nil, body, true)
	return err
}

// NewDefaultHTTPClient 提供一个带超时的 http.Client。
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
