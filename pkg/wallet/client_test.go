package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNewClient(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name    string
		rpcURL  string
		logger  *zap.Logger
		wantErr bool
	}{
		{
			name:    "valid_config",
			rpcURL:  "https://polygon-rpc.com",
			logger:  logger,
			wantErr: false,
		},
		{
			name:    "empty_rpc_url",
			rpcURL:  "",
			logger:  logger,
			wantErr: true,
		},
		{
			name:    "nil_logger",
			rpcURL:  "https://polygon-rpc.com",
			logger:  nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.rpcURL, tt.logger)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewClient() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if client == nil {
				t.Fatal("NewClient() returned nil client")
			}
			if client.rpcURL != tt.rpcURL {
				t.Errorf("NewClient() rpcURL = %v, want %v", client.rpcURL, tt.rpcURL)
			}
			if client.httpClient == nil {
				t.Error("NewClient() httpClient is nil")
			}
			if client.dataAPIURL == "" {
				t.Error("NewClient() dataAPIURL not defaulted")
			}
		})
	}
}

func positionsClient(t *testing.T, serverURL string) *Client {
	t.Helper()

	client, err := NewClient("https://polygon-rpc.com", zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}
	client.dataAPIURL = serverURL

	return client
}

func TestGetPositions(t *testing.T) {
	tests := []struct {
		name           string
		mockResponse   []dataAPIPosition
		mockStatusCode int
		wantErr        bool
		wantCount      int
	}{
		{
			name:           "successful_fetch_with_positions",
			mockStatusCode: http.StatusOK,
			mockResponse: []dataAPIPosition{
				{
					Size:         100.5,
					AvgPrice:     0.52,
					InitialValue: 52.26,
					CurrentValue: 55.00,
					CashPnL:      2.74,
					Slug:         "will-x-happen",
					Outcome:      "YES",
				},
				{
					Size:         50.0,
					CurrentValue: 26.00,
					Slug:         "will-y-happen",
					Outcome:      "NO",
				},
			},
			wantCount: 2,
		},
		{
			name:           "empty_positions",
			mockStatusCode: http.StatusOK,
			mockResponse:   []dataAPIPosition{},
			wantCount:      0,
		},
		{
			name:           "filters_zero_and_negative_sizes",
			mockStatusCode: http.StatusOK,
			mockResponse: []dataAPIPosition{
				{Size: 100.5, Slug: "valid-position", Outcome: "YES"},
				{Size: 0, Slug: "zero-position", Outcome: "NO"},
				{Size: -10, Slug: "negative-position", Outcome: "YES"},
			},
			wantCount: 1,
		},
		{
			name:           "api_error_500",
			mockStatusCode: http.StatusInternalServerError,
			wantErr:        true,
		},
		{
			name:           "api_error_404",
			mockStatusCode: http.StatusNotFound,
			wantErr:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET request, got %s", r.Method)
				}
				if !strings.Contains(r.URL.RawQuery, "user=") {
					t.Error("expected user parameter in query")
				}

				w.WriteHeader(tt.mockStatusCode)
				if tt.mockResponse != nil {
					_ = json.NewEncoder(w).Encode(tt.mockResponse)
				}
			}))
			defer server.Close()

			client := positionsClient(t, server.URL)

			positions, err := client.GetPositions(context.Background(), "0x1234")
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetPositions() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(positions) != tt.wantCount {
				t.Errorf("GetPositions() returned %d positions, want %d", len(positions), tt.wantCount)
			}
		})
	}
}

func TestGetPositions_ResponseParsing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]dataAPIPosition{
			{
				Asset:        "71321045679252212594626385532706912750332728571942532289631379312455583992563",
				ConditionID:  "0x123abc",
				Size:         100.5,
				AvgPrice:     0.52,
				InitialValue: 52.26,
				CurrentValue: 55.00,
				CashPnL:      2.74,
				PercentPnL:   5.24,
				Title:        "Will Bitcoin hit $100K?",
				Slug:         "will-bitcoin-hit-100k",
				Outcome:      "YES",
			},
		})
	}))
	defer server.Close()

	client := positionsClient(t, server.URL)

	positions, err := client.GetPositions(context.Background(), "0x1234")
	if err != nil {
		t.Fatalf("GetPositions() failed: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("got %d positions, want 1", len(positions))
	}

	pos := positions[0]
	if pos.MarketSlug != "will-bitcoin-hit-100k" {
		t.Errorf("MarketSlug = %s", pos.MarketSlug)
	}
	if pos.Outcome != "YES" {
		t.Errorf("Outcome = %s", pos.Outcome)
	}
	if pos.Value != 55.00 {
		t.Errorf("Value = %f, want 55.00", pos.Value)
	}
	if pos.CashPnL != 2.74 {
		t.Errorf("CashPnL = %f, want 2.74", pos.CashPnL)
	}
}

func TestGetPositions_ContextCancellation(t *testing.T) {
	client, err := NewClient("https://polygon-rpc.com", zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.GetPositions(ctx, "0x1234567890123456789012345678901234567890")
	if err == nil {
		t.Error("expected error with cancelled context, got nil")
	}
}
