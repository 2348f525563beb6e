package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fundarb/internal/application/port"
	"fundarb/internal/domain/model"
)

// Client 交易引擎 REST 客户端，实现 port.Backend
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) ListOpportunities(ctx context.Context, q port.OpportunityQuery) ([]*model.Opportunity, error) {
	params := url.Values{}
	if q.Status != "" {
		params.Set("status", q.Status)
	}
	if q.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", q.Limit))
	}

	body, err := c.get(ctx, "/api/opportunities", params)
	if err != nil {
		return nil, err
	}

	var dtos []opportunityDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		return nil, fmt.Errorf("decode opportunities: %w", err)
	}

	out := make([]*model.Opportunity, 0, len(dtos))
	for i := range dtos {
		out = append(out, dtos[i].toModel())
	}
	return out, nil
}

func (c *Client) GetOpportunity(ctx context.Context, id string) (*model.Opportunity, error) {
	body, err := c.get(ctx, "/api/opportunities/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var dto opportunityDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, fmt.Errorf("decode opportunity: %w", err)
	}
	return dto.toModel(), nil
}

// ExecuteOpportunity 调用执行端点。成功形状里内嵌失败标志的响应
// 与 HTTP 级错误一样返回 error（错误文案原样透传）
func (c *Client) ExecuteOpportunity(ctx context.Context, id string, capitalUsd float64) (*port.ExecutionResult, error) {
	payload, _ := json.Marshal(map[string]interface{}{
		"opportunity_id": id,
		"capital_usd":    capitalUsd,
	})

	body, err := c.post(ctx, "/api/opportunities/"+url.PathEscape(id)+"/execute", payload)
	if err != nil {
		return nil, err
	}

	var dto executionRespDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, fmt.Errorf("decode execution response: %w", err)
	}
	if msg, failed := dto.failureMessage(); failed {
		return nil, errors.New(msg)
	}
	return dto.toResult(), nil
}

func (c *Client) ListPositions(ctx context.Context, q port.PositionQuery) ([]*model.Position, error) {
	params := url.Values{}
	if q.Status != "" {
		params.Set("status", q.Status)
	}

	body, err := c.get(ctx, "/api/positions", params)
	if err != nil {
		return nil, err
	}

	var dtos []positionDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		return nil, fmt.Errorf("decode positions: %w", err)
	}

	out := make([]*model.Position, 0, len(dtos))
	for i := range dtos {
		out = append(out, dtos[i].toModel())
	}
	return out, nil
}

func (c *Client) ClosePosition(ctx context.Context, id string) error {
	_, err := c.post(ctx, "/api/positions/"+url.PathEscape(id)+"/close", nil)
	return err
}

func (c *Client) ListExchanges(ctx context.Context) ([]model.Exchange, error) {
	body, err := c.get(ctx, "/api/exchanges", nil)
	if err != nil {
		return nil, err
	}

	var dtos []exchangeDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		return nil, fmt.Errorf("decode exchanges: %w", err)
	}

	out := make([]model.Exchange, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, model.Exchange(d))
	}
	return out, nil
}

func (c *Client) ListFundingRates(ctx context.Context) ([]model.FundingRow, error) {
	body, err := c.get(ctx, "/api/funding-rates", nil)
	if err != nil {
		return nil, err
	}

	var dtos []fundingRowDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		return nil, fmt.Errorf("decode funding rates: %w", err)
	}

	out := make([]model.FundingRow, 0, len(dtos))
	for i := range dtos {
		out = append(out, dtos[i].toModel())
	}
	return out, nil
}

func (c *Client) GetSystemStatus(ctx context.Context) (*model.BotStatus, error) {
	body, err := c.get(ctx, "/api/system/status", nil)
	if err != nil {
		return nil, err
	}

	var dto statusDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, fmt.Errorf("decode system status: %w", err)
	}
	return dto.toModel(), nil
}

func (c *Client) StartBot(ctx context.Context) error {
	_, err := c.post(ctx, "/api/system/start", nil)
	return err
}

func (c *Client) StopBot(ctx context.Context) error {
	_, err := c.post(ctx, "/api/system/stop", nil)
	return err
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, path string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// 错误响应优先取后端给出的文案，原样向上透传
		var errDTO struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &errDTO) == nil {
			if errDTO.Error != "" {
				return nil, errors.New(errDTO.Error)
			}
			if errDTO.Message != "" {
				return nil, errors.New(errDTO.Message)
			}
		}
		return nil, fmt.Errorf("backend http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

var _ port.Backend = (*Client)(nil)
