// Package purchasesale talks to the upstream purchase-sale and vehicle
// inventory services and flattens their records into transactions for the
// forecasting core.
package purchasesale

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const headerInternalKey = "X-Internal-Service-Key"

const contractPageSize = 200

// Contract mirrors the upstream purchase-sale search payload.
type Contract struct {
	ID             int64           `json:"id"`
	ContractType   string          `json:"contractType"`
	ContractStatus string          `json:"contractStatus"`
	ClientID       int64           `json:"clientId"`
	UserID         int64           `json:"userId"`
	VehicleID      int64           `json:"vehicleId"`
	PurchasePrice  float64         `json:"purchasePrice"`
	SalePrice      float64         `json:"salePrice"`
	PaymentMethod  string          `json:"paymentMethod"`
	CreatedAt      string          `json:"createdAt"`
	VehicleSummary *VehicleSummary `json:"vehicleSummary"`
}

type VehicleSummary struct {
	Type   string `json:"type"`
	Brand  string `json:"brand"`
	Model  string `json:"model"`
	Status string `json:"status"`
}

type contractPage struct {
	Content    []Contract `json:"content"`
	TotalPages *int       `json:"totalPages"`
}

// ContractClient pages through the purchase-sale search endpoint.
type ContractClient struct {
	httpClient  *http.Client
	baseURL     string
	internalKey string
}

func NewContractClient(baseURL string, timeout time.Duration, internalKey string) *ContractClient {
	return &ContractClient{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(baseURL, "/"),
		internalKey: internalKey,
	}
}

// FetchContracts drains every result page for the optional date range.
func (c *ContractClient) FetchContracts(ctx context.Context, start, end *time.Time) ([]Contract, error) {
	var results []Contract

	for page := 0; ; page++ {
		params := url.Values{}
		params.Set("page", strconv.Itoa(page))
		params.Set("size", strconv.Itoa(contractPageSize))
		params.Set("detailed", "false")
		if start != nil {
			params.Set("startDate", start.Format("2006-01-02"))
		}
		if end != nil {
			params.Set("endDate", end.Format("2006-01-02"))
		}

		reqURL := fmt.Sprintf("%s/v1/purchase-sales/search?%s", c.baseURL, params.Encode())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create contract request: %w", err)
		}
		c.setHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch contracts page %d: %w", page, err)
		}

		var payload contractPage
		err = decodeBody(resp, &payload)
		if err != nil {
			return nil, fmt.Errorf("decode contracts page %d: %w", page, err)
		}

		if len(payload.Content) == 0 {
			break
		}
		results = append(results, payload.Content...)

		if payload.TotalPages == nil || page >= *payload.TotalPages-1 {
			break
		}
	}

	log.WithField("count", len(results)).Info("retrieved purchase/sale contracts")
	return results, nil
}

func (c *ContractClient) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.internalKey != "" {
		req.Header.Set(headerInternalKey, c.internalKey)
	}
}

func decodeBody(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
