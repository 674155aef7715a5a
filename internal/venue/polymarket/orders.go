package polymarket

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/goccy/go-json"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"
	"go.uber.org/zap"

	"github.com/mselser95/crossmarket-arb/pkg/types"
)

// zeroTaker is the public-order taker address.
const zeroTaker = "0x0000000000000000000000000000000000000000"

// polygonChainID is the chain the CLOB settles on.
var polygonChainID = big.NewInt(137)

// Trader places orders on venue A. Two paths exist: direct EIP-712 signed
// submission to the CLOB, or a geo proxy that signs server-side. The proxy
// wins when both are configured.
type Trader struct {
	clobURL    string
	proxyURL   string
	proxyToken string

	apiKey        string
	secret        string
	passphrase    string
	privateKey    *ecdsa.PrivateKey
	address       string
	funderAddress string
	signatureType model.SignatureType
	orderBuilder  builder.ExchangeOrderBuilder

	httpClient *http.Client
	logger     *zap.Logger
}

// TraderConfig holds venue A trading configuration. Leaving both the proxy
// and the direct credentials empty yields a read-only trader.
type TraderConfig struct {
	ClobURL    string
	ProxyURL   string
	ProxyToken string

	PrivateKey    string // hex, direct path
	APIKey        string
	Secret        string
	Passphrase    string
	FunderAddress string // proxy wallet funding orders; empty means the EOA
	SignatureType int

	Logger *zap.Logger
}

// NewTrader creates a venue A trader. An invalid private key is an error;
// absent credentials are not.
func NewTrader(cfg TraderConfig) (*Trader, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	t := &Trader{
		clobURL:       cfg.ClobURL,
		proxyURL:      cfg.ProxyURL,
		proxyToken:    cfg.ProxyToken,
		apiKey:        cfg.APIKey,
		secret:        cfg.Secret,
		passphrase:    cfg.Passphrase,
		funderAddress: cfg.FunderAddress,
		signatureType: model.SignatureType(cfg.SignatureType),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: cfg.Logger,
	}

	if cfg.PrivateKey != "" {
		privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}

		publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("derive public key")
		}

		t.privateKey = privateKey
		t.address = crypto.PubkeyToAddress(*publicKey).Hex()
		t.orderBuilder = builder.NewExchangeOrderBuilderImpl(polygonChainID, nil)
	}

	return t, nil
}

// CanTrade reports whether a placement path is configured.
func (t *Trader) CanTrade() bool {
	if t.proxyURL != "" {
		return true
	}

	return t.privateKey != nil && t.apiKey != "" && t.secret != "" && t.passphrase != ""
}

// PlaceOrder submits one taker leg. Returns ErrNotConfigured when no
// placement path exists and ErrOrderRejected (via OrderError) on 4xx.
func (t *Trader) PlaceOrder(ctx context.Context, req types.OrderRequest) (*types.OrderConfirmation, error) {
	if t.proxyURL != "" {
		return t.placeViaProxy(ctx, req)
	}

	if !t.CanTrade() {
		return nil, types.ErrNotConfigured
	}

	return t.placeDirect(ctx, req)
}

// proxyOrder is the order body the geo proxy forwards to the CLOB.
type proxyOrder struct {
	TokenID    string  `json:"tokenID"`
	Price      float64 `json:"price"`
	Side       string  `json:"side"`
	Size       float64 `json:"size"`
	FeeRateBps int     `json:"feeRateBps"`
	TickSize   string  `json:"tickSize"`
}

// proxyRequest wraps the order with the proxy action discriminator.
type proxyRequest struct {
	Action string     `json:"action"`
	Order  proxyOrder `json:"order"`
}

// proxyResponse is the proxy's passthrough of the CLOB submission response.
type proxyResponse struct {
	Success  bool   `json:"success"`
	ErrorMsg string `json:"errorMsg"`
	OrderID  string `json:"orderId"`
	Status   string `json:"status"`
}

// placeViaProxy submits through the geo proxy with bearer auth.
func (t *Trader) placeViaProxy(ctx context.Context, req types.OrderRequest) (*types.OrderConfirmation, error) {
	payload := proxyRequest{
		Action: "polymarket_order",
		Order: proxyOrder{
			TokenID:    req.TokenID,
			Price:      types.CentsToDecimal(req.PriceCents),
			Side:       string(req.Action),
			Size:       float64(req.Contracts),
			FeeRateBps: 0,
			TickSize:   "0.01",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal proxy order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.proxyURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create proxy request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if t.proxyToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.proxyToken)
	}

	t.logger.Info("placing-order-via-proxy",
		zap.String("token-id", req.TokenID),
		zap.String("side", string(req.Side)),
		zap.Int("price-cents", req.PriceCents),
		zap.Int("contracts", req.Contracts))

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		OrdersPlacedTotal.WithLabelValues("proxy", "error").Inc()
		return nil, fmt.Errorf("send proxy request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read proxy response: %w", err)
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		OrdersPlacedTotal.WithLabelValues("proxy", "rejected").Inc()
		return nil, &types.OrderError{
			Venue:   types.VenueA,
			Code:    fmt.Sprintf("http_%d", resp.StatusCode),
			Message: string(respBody),
			Side:    req.Side,
		}
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		OrdersPlacedTotal.WithLabelValues("proxy", "error").Inc()
		return nil, fmt.Errorf("proxy status %d: %s", resp.StatusCode, string(respBody))
	}

	var proxyResp proxyResponse
	err = json.Unmarshal(respBody, &proxyResp)
	if err != nil {
		return nil, fmt.Errorf("parse proxy response: %w", err)
	}

	if !proxyResp.Success && proxyResp.ErrorMsg != "" {
		OrdersPlacedTotal.WithLabelValues("proxy", "rejected").Inc()
		return nil, &types.OrderError{
			Venue:   types.VenueA,
			Code:    "proxy_reject",
			Message: proxyResp.ErrorMsg,
			Side:    req.Side,
		}
	}

	OrdersPlacedTotal.WithLabelValues("proxy", "ok").Inc()

	return &types.OrderConfirmation{
		Venue:    types.VenueA,
		OrderID:  proxyResp.OrderID,
		Status:   proxyResp.Status,
		PlacedAt: time.Now(),
	}, nil
}

// signedOrderJSON is the wire shape of a signed EIP-712 order. Salt and
// signatureType are integers; every amount field is a decimal string.
type signedOrderJSON struct {
	Salt          int64  `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Side          string `json:"side"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

// submissionResponse is the CLOB POST /order response.
type submissionResponse struct {
	Success  bool   `json:"success"`
	ErrorMsg string `json:"errorMsg"`
	OrderID  string `json:"orderId"`
	Status   string `json:"status"`
}

// placeDirect builds, signs and submits an order straight to the CLOB.
func (t *Trader) placeDirect(ctx context.Context, req types.OrderRequest) (*types.OrderConfirmation, error) {
	maker := t.address
	if t.funderAddress != "" {
		maker = t.funderAddress
	}

	price := types.CentsToDecimal(req.PriceCents)
	notional := price * float64(req.Contracts)

	// BUY: makerAmount is USDC in, takerAmount is tokens out.
	orderData := &model.OrderData{
		Maker:         maker,
		Taker:         zeroTaker,
		TokenId:       req.TokenID,
		MakerAmount:   usdToRawAmount(notional),
		TakerAmount:   usdToRawAmount(float64(req.Contracts)),
		Side:          model.BUY,
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        t.address,
		Expiration:    "0",
		SignatureType: t.signatureType,
	}

	signedOrder, err := t.orderBuilder.BuildSignedOrder(t.privateKey, orderData, model.CTFExchange)
	if err != nil {
		return nil, fmt.Errorf("build signed order: %w", err)
	}

	return t.submitSigned(ctx, signedOrder, req)
}

// submitSigned POSTs a signed order with L2 HMAC auth headers.
func (t *Trader) submitSigned(ctx context.Context, order *model.SignedOrder, req types.OrderRequest) (*types.OrderConfirmation, error) {
	sideStr := "BUY"
	if order.Side.Uint64() == uint64(model.SELL) {
		sideStr = "SELL"
	}

	jsonOrder := signedOrderJSON{
		Salt:          order.Salt.Int64(),
		Maker:         order.Maker.Hex(),
		Signer:        order.Signer.Hex(),
		Taker:         order.Taker.Hex(),
		TokenID:       order.TokenId.String(),
		MakerAmount:   order.MakerAmount.String(),
		TakerAmount:   order.TakerAmount.String(),
		Side:          sideStr,
		Expiration:    order.Expiration.String(),
		Nonce:         order.Nonce.String(),
		FeeRateBps:    order.FeeRateBps.String(),
		SignatureType: int(order.SignatureType.Int64()),
		Signature:     "0x" + common.Bytes2Hex(order.Signature),
	}

	// Owner is the API key, not the maker address.
	body, err := json.Marshal(map[string]interface{}{
		"order":     jsonOrder,
		"owner":     t.apiKey,
		"orderType": "GTC",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}

	const requestPath = "/order"

	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	signature, err := t.hmacSignature(timestamp, http.MethodPost, requestPath, string(body))
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.clobURL+requestPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("POLY_API_KEY", t.apiKey)
	httpReq.Header.Set("POLY_SIGNATURE", signature)
	httpReq.Header.Set("POLY_TIMESTAMP", timestamp)
	httpReq.Header.Set("POLY_PASSPHRASE", t.passphrase)
	httpReq.Header.Set("POLY_ADDRESS", t.address)

	t.logger.Info("placing-order-direct",
		zap.String("token-id", req.TokenID),
		zap.String("side", string(req.Side)),
		zap.Int("price-cents", req.PriceCents),
		zap.Int("contracts", req.Contracts))

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		OrdersPlacedTotal.WithLabelValues("direct", "error").Inc()
		return nil, fmt.Errorf("send order: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read order response: %w", err)
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		OrdersPlacedTotal.WithLabelValues("direct", "rejected").Inc()
		return nil, &types.OrderError{
			Venue:   types.VenueA,
			Code:    fmt.Sprintf("http_%d", resp.StatusCode),
			Message: string(respBody),
			Side:    req.Side,
		}
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		OrdersPlacedTotal.WithLabelValues("direct", "error").Inc()
		return nil, fmt.Errorf("clob status %d: %s", resp.StatusCode, string(respBody))
	}

	var subResp submissionResponse
	err = json.Unmarshal(respBody, &subResp)
	if err != nil {
		return nil, fmt.Errorf("parse order response: %w", err)
	}

	if !subResp.Success && subResp.ErrorMsg != "" {
		OrdersPlacedTotal.WithLabelValues("direct", "rejected").Inc()
		return nil, &types.OrderError{
			Venue:   types.VenueA,
			Code:    "clob_reject",
			Message: subResp.ErrorMsg,
			OrderID: subResp.OrderID,
			Side:    req.Side,
		}
	}

	OrdersPlacedTotal.WithLabelValues("direct", "ok").Inc()

	return &types.OrderConfirmation{
		Venue:    types.VenueA,
		OrderID:  subResp.OrderID,
		Status:   subResp.Status,
		PlacedAt: time.Now(),
	}, nil
}

// orderQueryResponse is the CLOB GET /data/order/{id} response.
type orderQueryResponse struct {
	OrderID     string  `json:"id"`
	Status      string  `json:"status"`
	Size        float64 `json:"original_size,string"`
	SizeMatched float64 `json:"size_matched,string"`
}

// OrderStatus reads back one order for fill verification. Works on both
// placement paths since the data endpoint only needs the HMAC credentials.
func (t *Trader) OrderStatus(ctx context.Context, orderID string) (*types.OrderConfirmation, error) {
	if t.apiKey == "" || t.secret == "" {
		return nil, types.ErrNotConfigured
	}

	requestPath := "/data/order/" + orderID

	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	signature, err := t.hmacSignature(timestamp, http.MethodGet, requestPath, "")
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.clobURL+requestPath, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("POLY_API_KEY", t.apiKey)
	req.Header.Set("POLY_SIGNATURE", signature)
	req.Header.Set("POLY_TIMESTAMP", timestamp)
	req.Header.Set("POLY_PASSPHRASE", t.passphrase)
	req.Header.Set("POLY_ADDRESS", t.address)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch order status: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read order status: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("order status %d: %s", resp.StatusCode, string(body))
	}

	var query orderQueryResponse
	err = json.Unmarshal(body, &query)
	if err != nil {
		return nil, fmt.Errorf("parse order status: %w", err)
	}

	return &types.OrderConfirmation{
		Venue:   types.VenueA,
		OrderID: query.OrderID,
		Status:  query.Status,
		Filled:  int(query.SizeMatched),
	}, nil
}

// hmacSignature builds the URL-safe base64 HMAC over
// timestamp+method+path+body with the URL-safe-decoded secret.
func (t *Trader) hmacSignature(timestamp, method, path, body string) (string, error) {
	secretBytes, err := base64.URLEncoding.DecodeString(t.secret)
	if err != nil {
		return "", fmt.Errorf("decode api secret: %w", err)
	}

	h := hmac.New(sha256.New, secretBytes)
	h.Write([]byte(timestamp + method + path + body))

	return base64.URLEncoding.EncodeToString(h.Sum(nil)), nil
}

// usdToRawAmount converts dollars to the 6-decimal raw integer string the
// exchange contract expects.
func usdToRawAmount(usd float64) string {
	return fmt.Sprintf("%d", int64(usd*1e6))
}
