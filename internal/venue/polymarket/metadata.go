package polymarket

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mselser95/crossmarket-arb/pkg/cache"
)

// metadataTTL bounds how long tick sizes and neg-risk flags stay cached.
// These change rarely; an hour keeps catalog churn off the CLOB.
const metadataTTL = time.Hour

// TokenMetadata is the per-token trading metadata the order path needs.
type TokenMetadata struct {
	TickSize string
	NegRisk  bool
}

// MetadataFetcher reads per-token trading metadata with a Ristretto cache
// in front of the CLOB endpoints.
type MetadataFetcher struct {
	client *Client
	cache  cache.Cache
	logger *zap.Logger
}

// NewMetadataFetcher creates a metadata fetcher backed by the given cache.
func NewMetadataFetcher(client *Client, c cache.Cache, logger *zap.Logger) *MetadataFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MetadataFetcher{
		client: client,
		cache:  c,
		logger: logger,
	}
}

// tickSizeResponse is the CLOB GET /tick-size response.
type tickSizeResponse struct {
	MinimumTickSize string `json:"minimum_tick_size"`
}

// negRiskResponse is the CLOB GET /neg-risk response.
type negRiskResponse struct {
	NegRisk bool `json:"neg_risk"`
}

// TokenMetadata returns cached trading metadata for a token, fetching on
// miss. Failures fall back to the standard 0.01 tick so order placement
// never blocks on metadata.
func (m *MetadataFetcher) TokenMetadata(ctx context.Context, tokenID string) TokenMetadata {
	key := "meta:" + tokenID

	if cached, found := m.cache.Get(key); found {
		MetadataCacheHitsTotal.WithLabelValues("hit").Inc()
		if meta, ok := cached.(TokenMetadata); ok {
			return meta
		}
	}

	MetadataCacheHitsTotal.WithLabelValues("miss").Inc()

	meta := TokenMetadata{TickSize: "0.01"}

	tickSize, err := m.fetchTickSize(ctx, tokenID)
	if err != nil {
		m.logger.Warn("tick-size-fetch-failed",
			zap.String("token-id", tokenID),
			zap.Error(err))
	} else if tickSize != "" {
		meta.TickSize = tickSize
	}

	negRisk, err := m.fetchNegRisk(ctx, tokenID)
	if err != nil {
		m.logger.Warn("neg-risk-fetch-failed",
			zap.String("token-id", tokenID),
			zap.Error(err))
	} else {
		meta.NegRisk = negRisk
	}

	m.cache.Set(key, meta, metadataTTL)

	return meta
}

func (m *MetadataFetcher) fetchTickSize(ctx context.Context, tokenID string) (string, error) {
	requestURL := fmt.Sprintf("%s/tick-size?token_id=%s", m.client.clobURL, url.QueryEscape(tokenID))

	body, err := m.client.get(ctx, requestURL, "tick_size")
	if err != nil {
		return "", err
	}

	var resp tickSizeResponse
	err = json.Unmarshal(body, &resp)
	if err != nil {
		return "", fmt.Errorf("unmarshal tick size: %w", err)
	}

	return resp.MinimumTickSize, nil
}

func (m *MetadataFetcher) fetchNegRisk(ctx context.Context, tokenID string) (bool, error) {
	requestURL := fmt.Sprintf("%s/neg-risk?token_id=%s", m.client.clobURL, url.QueryEscape(tokenID))

	body, err := m.client.get(ctx, requestURL, "neg_risk")
	if err != nil {
		return false, err
	}

	var resp negRiskResponse
	err = json.Unmarshal(body, &resp)
	if err != nil {
		return false, fmt.Errorf("unmarshal neg risk: %w", err)
	}

	return resp.NegRisk, nil
}
