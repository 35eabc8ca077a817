// Package vnpay builds signed VNPay payment URLs and verifies return callbacks.
package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brewhouse/cafe-backend/pkg/config"
)

const (
	// Gateway is the name used for replay keys, metrics and payment info.
	Gateway = "vnpay"

	dateLayout       = "20060102150405"
	responseCodeOK   = "00"
	paramSecureHash  = "vnp_SecureHash"
	paramHashType    = "vnp_SecureHashType"
	defaultOrderType = "other"
	currencyVND      = "VND"
)

// ErrInvalidSignature is returned when a callback's vnp_SecureHash does not match.
var ErrInvalidSignature = errors.New("vnpay: invalid signature")

// VNPay timestamps are always Vietnam local time.
var vietnam = time.FixedZone("ICT", 7*60*60)

// PaymentRequest is one order's payment initiation.
type PaymentRequest struct {
	OrderID   uuid.UUID
	Amount    int64
	BankCode  string
	IPAddr    string
	OrderInfo string
}

// ReturnResult is a verified callback.
type ReturnResult struct {
	OrderID           uuid.UUID
	TxnRef            string
	Amount            int64
	ResponseCode      string
	TransactionStatus string
	TransactionNo     string
	BankCode          string
	PayDate           string
}

// Success reports whether the gateway settled the payment.
func (r ReturnResult) Success() bool {
	if r.ResponseCode != responseCodeOK {
		return false
	}
	return r.TransactionStatus == "" || r.TransactionStatus == responseCodeOK
}

// Client signs and verifies VNPay requests.
type Client struct {
	cfg   config.VNPayConfig
	clock func() time.Time
}

// NewClient requires the merchant code and hash secret. A nil clock uses time.Now.
func NewClient(cfg config.VNPayConfig, clock func() time.Time) (*Client, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("vnpay tmn code and hash secret required")
	}
	if strings.TrimSpace(cfg.PayURL) == "" {
		return nil, fmt.Errorf("vnpay pay url required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &Client{cfg: cfg, clock: clock}, nil
}

// BuildPaymentURL returns the gateway URL the browser should be redirected to.
// Amounts are whole VND; VNPay expects them multiplied by 100.
func (c *Client) BuildPaymentURL(req PaymentRequest) (string, error) {
	if req.OrderID == uuid.Nil {
		return "", fmt.Errorf("order id required")
	}
	if req.Amount <= 0 {
		return "", fmt.Errorf("amount must be positive")
	}

	now := c.clock().In(vietnam)
	ip := strings.TrimSpace(req.IPAddr)
	if ip == "" {
		ip = c.cfg.DefaultIPAddr
	}
	info := strings.TrimSpace(req.OrderInfo)
	if info == "" {
		info = fmt.Sprintf("%s %s", c.cfg.OrderInfoLabel, req.OrderID)
	}

	params := url.Values{}
	params.Set("vnp_Version", c.cfg.Version)
	params.Set("vnp_Command", "pay")
	params.Set("vnp_TmnCode", c.cfg.TmnCode)
	params.Set("vnp_Amount", strconv.FormatInt(req.Amount*100, 10))
	params.Set("vnp_CurrCode", currencyVND)
	params.Set("vnp_TxnRef", req.OrderID.String())
	params.Set("vnp_OrderInfo", info)
	params.Set("vnp_OrderType", defaultOrderType)
	params.Set("vnp_Locale", c.cfg.Locale)
	params.Set("vnp_ReturnUrl", c.cfg.ReturnURL)
	params.Set("vnp_IpAddr", ip)
	params.Set("vnp_CreateDate", now.Format(dateLayout))
	if c.cfg.ExpireAfter > 0 {
		params.Set("vnp_ExpireDate", now.Add(c.cfg.ExpireAfter).Format(dateLayout))
	}
	if code := strings.TrimSpace(req.BankCode); code != "" {
		params.Set("vnp_BankCode", code)
	}

	query := canonicalQuery(params)
	return fmt.Sprintf("%s?%s&%s=%s", c.cfg.PayURL, query, paramSecureHash, Sign(c.cfg.HashSecret, query)), nil
}

// VerifyReturn checks the callback signature and decodes its fields.
func (c *Client) VerifyReturn(query url.Values) (*ReturnResult, error) {
	provided := query.Get(paramSecureHash)
	if provided == "" {
		return nil, ErrInvalidSignature
	}

	signed := url.Values{}
	for key, values := range query {
		if key == paramSecureHash || key == paramHashType || !strings.HasPrefix(key, "vnp_") {
			continue
		}
		if len(values) > 0 && values[0] != "" {
			signed.Set(key, values[0])
		}
	}
	expected := Sign(c.cfg.HashSecret, canonicalQuery(signed))
	if !hmac.Equal([]byte(strings.ToLower(provided)), []byte(expected)) {
		return nil, ErrInvalidSignature
	}

	result := &ReturnResult{
		TxnRef:            query.Get("vnp_TxnRef"),
		ResponseCode:      query.Get("vnp_ResponseCode"),
		TransactionStatus: query.Get("vnp_TransactionStatus"),
		TransactionNo:     query.Get("vnp_TransactionNo"),
		BankCode:          query.Get("vnp_BankCode"),
		PayDate:           query.Get("vnp_PayDate"),
	}
	if raw := query.Get("vnp_Amount"); raw != "" {
		minor, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("vnpay: invalid amount %q: %w", raw, err)
		}
		result.Amount = minor / 100
	}
	if id, err := uuid.Parse(result.TxnRef); err == nil {
		result.OrderID = id
	}
	return result, nil
}

// Sign returns the lowercase hex HMAC-SHA512 of data.
func Sign(secret, data string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// canonicalQuery sorts keys and form-encodes values the way VNPay hashes them.
func canonicalQuery(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(params.Get(k)))
	}
	return strings.Join(parts, "&")
}
