package momo

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/thanhhuy/storefront-backend/pkg/config"
)

// ResultCodeSuccess is the gateway's code for a settled payment.
const ResultCodeSuccess = 0

const requestType = "payWithMethod"

var (
	errPartnerCodeRequired = errors.New("momo partner code is required")
	errAccessKeyRequired   = errors.New("momo access key is required")
	errSecretKeyRequired   = errors.New("momo secret key is required")
)

// Client talks to the MoMo-style wallet gateway over its HTTP API. Every
// request is signed with an HMAC-SHA256 over the gateway's canonical
// parameter string.
type Client struct {
	cfg  config.MomoConfig
	http *http.Client
}

// NewClient validates the wallet credentials and builds a client.
func NewClient(cfg config.MomoConfig) (*Client, error) {
	if strings.TrimSpace(cfg.PartnerCode) == "" {
		return nil, errPartnerCodeRequired
	}
	if strings.TrimSpace(cfg.AccessKey) == "" {
		return nil, errAccessKeyRequired
	}
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errSecretKeyRequired
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// CreatePaymentInput carries the order-side data for a payment request.
// OrderID doubles as the gateway request id, which makes retries idempotent
// on the gateway side.
type CreatePaymentInput struct {
	OrderID   string
	Amount    int64
	OrderInfo string
	ExtraData string
}

// CreatePaymentResult is the subset of the gateway response the core uses.
type CreatePaymentResult struct {
	PayURL     string
	ResultCode int
	Message    string
}

type createRequest struct {
	PartnerCode string `json:"partnerCode"`
	RequestID   string `json:"requestId"`
	Amount      string `json:"amount"`
	OrderID     string `json:"orderId"`
	OrderInfo   string `json:"orderInfo"`
	RedirectURL string `json:"redirectUrl"`
	IPNURL      string `json:"ipnUrl"`
	Lang        string `json:"lang"`
	RequestType string `json:"requestType"`
	AutoCapture bool   `json:"autoCapture"`
	ExtraData   string `json:"extraData"`
	Signature   string `json:"signature"`
}

type createResponse struct {
	ResultCode int    `json:"resultCode"`
	Message    string `json:"message"`
	PayURL     string `json:"payUrl"`
}

// CreatePayment signs and posts a payment request, returning the shopper
// redirect URL. A non-zero gateway result code is surfaced as an error.
func (c *Client) CreatePayment(ctx context.Context, input CreatePaymentInput) (*CreatePaymentResult, error) {
	if input.OrderID == "" {
		return nil, errors.New("order id is required")
	}
	if input.Amount <= 0 {
		return nil, errors.New("amount must be positive")
	}

	amount := strconv.FormatInt(input.Amount, 10)
	rawSignature := fmt.Sprintf(
		"accessKey=%s&amount=%s&extraData=%s&ipnUrl=%s&orderId=%s&orderInfo=%s&partnerCode=%s&redirectUrl=%s&requestId=%s&requestType=%s",
		c.cfg.AccessKey, amount, input.ExtraData, c.cfg.IPNURL, input.OrderID,
		input.OrderInfo, c.cfg.PartnerCode, c.cfg.RedirectURL, input.OrderID, requestType,
	)

	payload := createRequest{
		PartnerCode: c.cfg.PartnerCode,
		RequestID:   input.OrderID,
		Amount:      amount,
		OrderID:     input.OrderID,
		OrderInfo:   input.OrderInfo,
		RedirectURL: c.cfg.RedirectURL,
		IPNURL:      c.cfg.IPNURL,
		Lang:        "vi",
		RequestType: requestType,
		AutoCapture: true,
		ExtraData:   input.ExtraData,
		Signature:   c.sign(rawSignature),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call wallet gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("wallet gateway returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %w", err)
	}

	var decoded createResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}
	if decoded.ResultCode != ResultCodeSuccess {
		return nil, fmt.Errorf("wallet gateway rejected payment: %s (code %d)", decoded.Message, decoded.ResultCode)
	}

	return &CreatePaymentResult{
		PayURL:     decoded.PayURL,
		ResultCode: decoded.ResultCode,
		Message:    decoded.Message,
	}, nil
}

// CallbackPayload is the IPN body the gateway posts back after the shopper
// pays (or fails to).
type CallbackPayload struct {
	PartnerCode  string `json:"partnerCode"`
	OrderID      string `json:"orderId"`
	RequestID    string `json:"requestId"`
	Amount       int64  `json:"amount"`
	OrderInfo    string `json:"orderInfo"`
	OrderType    string `json:"orderType"`
	TransID      int64  `json:"transId"`
	ResultCode   int    `json:"resultCode"`
	Message      string `json:"message"`
	PayType      string `json:"payType"`
	ResponseTime int64  `json:"responseTime"`
	ExtraData    string `json:"extraData"`
	Signature    string `json:"signature"`
}

// VerifyCallback recomputes the callback HMAC over the gateway's canonical
// field order and compares in constant time.
func (c *Client) VerifyCallback(payload CallbackPayload) bool {
	return VerifyCallback(c.cfg.AccessKey, c.cfg.SecretKey, payload)
}

// VerifyCallback is the credential-parameterized form used by tests and the
// webhook service.
func VerifyCallback(accessKey, secretKey string, payload CallbackPayload) bool {
	if payload.Signature == "" {
		return false
	}
	expected := signString(secretKey, callbackSignatureString(accessKey, payload))
	return hmac.Equal([]byte(expected), []byte(payload.Signature))
}

func callbackSignatureString(accessKey string, p CallbackPayload) string {
	// Field order mandated by the gateway's signature spec.
	return fmt.Sprintf(
		"accessKey=%s&amount=%d&extraData=%s&message=%s&orderId=%s&orderInfo=%s&orderType=%s&partnerCode=%s&payType=%s&requestId=%s&responseTime=%d&resultCode=%d&transId=%d",
		accessKey, p.Amount, p.ExtraData, p.Message, p.OrderID, p.OrderInfo,
		p.OrderType, p.PartnerCode, p.PayType, p.RequestID, p.ResponseTime,
		p.ResultCode, p.TransID,
	)
}

// SignCallback produces a valid callback signature; used by tests to build
// authentic payloads.
func SignCallback(accessKey, secretKey string, payload CallbackPayload) string {
	return signString(secretKey, callbackSignatureString(accessKey, payload))
}

func (c *Client) sign(raw string) string {
	return signString(c.cfg.SecretKey, raw)
}

func signString(secret, raw string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}
