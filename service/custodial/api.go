// Package custodial implements the wallet capability set for managed
// custodial accounts (Coinbase-style): balance, transfer and signing are
// mediated by a wallet service API rather than a raw key.
package custodial

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WalletInfo describes a managed wallet as reported by the service.
type WalletInfo struct {
	ID             string `json:"id"`
	DefaultAddress string `json:"default_address"`
	Network        string `json:"network"`
}

// BalanceInfo is the service-reported balance for one asset. Amount is a
// decimal string in the asset's display unit.
type BalanceInfo struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

// TransferRequest is the payload for creating a transfer.
type TransferRequest struct {
	ToAddress string `json:"to_address"`
	Amount    string `json:"amount"`
	Asset     string `json:"asset"`
}

// TransferInfo is the service's view of a submitted transfer.
type TransferInfo struct {
	TransferID string `json:"transfer_id"`
	TxHash     string `json:"tx_hash,omitempty"`
	Status     string `json:"status"`
}

// SignInfo is the result of a payload signing request.
type SignInfo struct {
	Signature string `json:"signature"`
}

// APIClient is an interface for the custodial wallet service operations we
// need. This allows us to mock the API layer in tests.
type APIClient interface {
	GetWallet(ctx context.Context, walletID string) (*WalletInfo, error)
	GetBalance(ctx context.Context, walletID, asset string) (*BalanceInfo, error)
	CreateTransfer(ctx context.Context, walletID string, req TransferRequest) (*TransferInfo, error)
	SignPayload(ctx context.Context, walletID, payload string) (*SignInfo, error)
}

// restClient talks to the custodial wallet service over HTTPS with
// HMAC-SHA256 request signing (key/secret pair, Coinbase API convention).
type restClient struct {
	client    *fasthttp.Client
	baseURL   string
	apiKey    string
	apiSecret string
	timeout   time.Duration
	logger    *slog.Logger
}

// NewAPIClient creates a client for the custodial wallet service.
func NewAPIClient(baseURL, apiKey, apiSecret string, timeout time.Duration, logger *slog.Logger) APIClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &restClient{
		client:    &fasthttp.Client{},
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		timeout:   timeout,
		logger:    logger,
	}
}

func (c *restClient) GetWallet(ctx context.Context, walletID string) (*WalletInfo, error) {
	var out WalletInfo
	path := fmt.Sprintf("/v1/wallets/%s", walletID)
	if err := c.do(ctx, fasthttp.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *restClient) GetBalance(ctx context.Context, walletID, asset string) (*BalanceInfo, error) {
	var out BalanceInfo
	path := fmt.Sprintf("/v1/wallets/%s/balances/%s", walletID, asset)
	if err := c.do(ctx, fasthttp.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *restClient) CreateTransfer(ctx context.Context, walletID string, req TransferRequest) (*TransferInfo, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transfer request: %w", err)
	}
	var out TransferInfo
	path := fmt.Sprintf("/v1/wallets/%s/transfers", walletID)
	if err := c.do(ctx, fasthttp.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *restClient) SignPayload(ctx context.Context, walletID, payload string) (*SignInfo, error) {
	body, err := json.Marshal(map[string]string{"payload": payload})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sign request: %w", err)
	}
	var out SignInfo
	path := fmt.Sprintf("/v1/wallets/%s/sign", walletID)
	if err := c.do(ctx, fasthttp.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do executes one signed request and decodes the JSON response into out.
func (c *restClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	if body != nil {
		req.SetBody(body)
	}

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set("CB-ACCESS-KEY", c.apiKey)
	req.Header.Set("CB-ACCESS-TIMESTAMP", ts)
	req.Header.Set("CB-ACCESS-SIGN", c.sign(ts, method, path, body))

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.DoTimeout(req, resp, c.timeout)
	}
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		c.logger.Error("custodial API request failed",
			"path", path,
			"status", resp.StatusCode(),
			"body", string(resp.Body()),
		)
		return fmt.Errorf("custodial API %s returned status %d: %s", path, resp.StatusCode(), string(resp.Body()))
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

// sign produces the HMAC-SHA256 request signature over
// timestamp + method + path + body, hex-encoded.
func (c *restClient) sign(timestamp, method, path string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte(method))
	mac.Write([]byte(path))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
