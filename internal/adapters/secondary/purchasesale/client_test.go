package purchasesale

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func contractServer(t *testing.T, pages [][]Contract, wantKey string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/purchase-sales/search", r.URL.Path)
		if wantKey != "" {
			assert.Equal(t, wantKey, r.Header.Get(headerInternalKey))
		}

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		payload := contractPage{TotalPages: intPtr(len(pages))}
		if page < len(pages) {
			payload.Content = pages[page]
		}
		json.NewEncoder(w).Encode(payload)
	}))
}

func TestFetchContracts_DrainsAllPages(t *testing.T) {
	pages := [][]Contract{
		{{ID: 1, ContractType: "SALE"}, {ID: 2, ContractType: "PURCHASE"}},
		{{ID: 3, ContractType: "SALE"}},
	}
	server := contractServer(t, pages, "secret")
	defer server.Close()

	client := NewContractClient(server.URL, 5*time.Second, "secret")
	contracts, err := client.FetchContracts(context.Background(), nil, nil)

	assert.NoError(t, err)
	assert.Len(t, contracts, 3)
	assert.Equal(t, int64(1), contracts[0].ID)
	assert.Equal(t, int64(3), contracts[2].ID)
}

func TestFetchContracts_PassesDateRange(t *testing.T) {
	var gotStart, gotEnd string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotStart = r.URL.Query().Get("startDate")
		gotEnd = r.URL.Query().Get("endDate")
		json.NewEncoder(w).Encode(contractPage{TotalPages: intPtr(1)})
	}))
	defer server.Close()

	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	client := NewContractClient(server.URL, 5*time.Second, "")
	_, err := client.FetchContracts(context.Background(), &start, &end)

	assert.NoError(t, err)
	assert.Equal(t, "2024-01-15", gotStart)
	assert.Equal(t, "2024-06-30", gotEnd)
}

func TestFetchContracts_StopsOnEmptyPage(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		// Claims more pages than it serves; the empty page ends the loop.
		json.NewEncoder(w).Encode(contractPage{TotalPages: intPtr(10)})
	}))
	defer server.Close()

	client := NewContractClient(server.URL, 5*time.Second, "")
	contracts, err := client.FetchContracts(context.Background(), nil, nil)

	assert.NoError(t, err)
	assert.Empty(t, contracts)
	assert.Equal(t, 1, calls)
}

func TestFetchContracts_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewContractClient(server.URL, 5*time.Second, "")
	_, err := client.FetchContracts(context.Background(), nil, nil)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func vehicleServer(t *testing.T, cars, motorcycles map[int64]Vehicle) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	serve := func(pool map[int64]Vehicle) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
			vehicle, ok := pool[id]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(vehicle)
		}
	}
	mux.HandleFunc("/v1/cars/{id}", serve(cars))
	mux.HandleFunc("/v1/motorcycles/{id}", serve(motorcycles))
	return httptest.NewServer(mux)
}

func TestFetchVehicle_FallsBackToMotorcycles(t *testing.T) {
	server := vehicleServer(t,
		map[int64]Vehicle{1: {ID: 1, VehicleType: "CAR", Brand: "PEUGEOT", Line: "GT"}},
		map[int64]Vehicle{2: {ID: 2, VehicleType: "MOTORCYCLE", Brand: "YAMAHA", Line: "R"}},
	)
	defer server.Close()

	client := NewVehicleClient(server.URL, 5*time.Second, "")

	car, err := client.FetchVehicle(context.Background(), 1, "")
	assert.NoError(t, err)
	assert.Equal(t, "PEUGEOT", car.Brand)

	// Not a car, so the probe falls through to motorcycles.
	moto, err := client.FetchVehicle(context.Background(), 2, "")
	assert.NoError(t, err)
	assert.Equal(t, "YAMAHA", moto.Brand)

	missing, err := client.FetchVehicle(context.Background(), 99, "")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFetchVehicle_InfersTypeFromEndpoint(t *testing.T) {
	server := vehicleServer(t,
		map[int64]Vehicle{1: {ID: 1, Brand: "PEUGEOT"}}, // no type fields in payload
		nil,
	)
	defer server.Close()

	client := NewVehicleClient(server.URL, 5*time.Second, "")
	vehicle, err := client.FetchVehicle(context.Background(), 1, "")

	assert.NoError(t, err)
	assert.Equal(t, "CAR", vehicle.ResolvedType())
}

func TestFetchBulk_SkipsFailedLookups(t *testing.T) {
	server := vehicleServer(t,
		map[int64]Vehicle{1: {ID: 1, VehicleType: "CAR"}, 3: {ID: 3, VehicleType: "CAR"}},
		nil,
	)
	defer server.Close()

	client := NewVehicleClient(server.URL, 5*time.Second, "")
	resolved := client.FetchBulk(context.Background(), []VehicleHint{
		{ID: 1, Type: "CAR"},
		{ID: 2, Type: "CAR"}, // 404s, skipped
		{ID: 3, Type: "CAR"},
		{ID: 0}, // no id, skipped
	})

	assert.Len(t, resolved, 2)
	assert.Contains(t, resolved, int64(1))
	assert.Contains(t, resolved, int64(3))
}

func TestLoader_FlattensContractsWithVehicleDetails(t *testing.T) {
	contractSrv := contractServer(t, [][]Contract{{
		{
			ID:           10,
			ContractType: "SALE",
			VehicleID:    1,
			SalePrice:    95000,
			CreatedAt:    "2024-03-05T14:30:00",
			VehicleSummary: &VehicleSummary{
				Type:  "CAR",
				Brand: "PEUGEOT",
				Model: "208",
			},
		},
		{
			ID:           11,
			ContractType: "PURCHASE",
			VehicleID:    2,
			CreatedAt:    "2024-03-06",
		},
		{
			ID:           12,
			ContractType: "SALE",
			VehicleID:    1,
			CreatedAt:    "not-a-date", // dropped
		},
	}}, "")
	defer contractSrv.Close()

	vehicleSrv := vehicleServer(t,
		map[int64]Vehicle{1: {ID: 1, VehicleType: "CAR", Brand: "PEUGEOT", Model: "208", Line: "GT", Year: 2021, Mileage: 30000}},
		map[int64]Vehicle{2: {ID: 2, VehicleType: "MOTORCYCLE", Brand: "YAMAHA", Model: "MT", Line: "07", Year: 2022}},
	)
	defer vehicleSrv.Close()

	loader := NewLoader(
		NewContractClient(contractSrv.URL, 5*time.Second, ""),
		NewVehicleClient(vehicleSrv.URL, 5*time.Second, ""),
	)
	txs, err := loader.LoadTransactions(context.Background(), nil, nil)

	assert.NoError(t, err)
	assert.Len(t, txs, 2)

	sale := txs[0]
	assert.Equal(t, int64(10), sale.ContractID)
	assert.True(t, sale.IsSale())
	assert.Equal(t, "CAR", sale.VehicleType)
	assert.Equal(t, "PEUGEOT", sale.Brand)
	assert.Equal(t, "GT", sale.Line) // line only comes from the detail lookup
	assert.Equal(t, 2021, sale.Year)
	assert.Equal(t, time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC), sale.CreatedAt)

	purchase := txs[1]
	assert.True(t, purchase.IsPurchase())
	assert.Equal(t, "MOTORCYCLE", purchase.VehicleType) // resolved without a summary
	assert.Equal(t, "07", purchase.Line)
}

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-03-05T14:30:00Z", time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC), true},
		{"2024-03-05T14:30:00", time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC), true},
		{"2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"05/03/2024", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tc := range cases {
		got, ok := parseTimestamp(tc.in)
		assert.Equal(t, tc.ok, ok, "parse %q", tc.in)
		if tc.ok {
			assert.Equal(t, tc.want, got)
		}
	}
}

func TestLoader_EmptyUpstream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(contractPage{TotalPages: intPtr(0)})
	}))
	defer server.Close()

	loader := NewLoader(
		NewContractClient(server.URL, 5*time.Second, ""),
		NewVehicleClient(server.URL, 5*time.Second, ""),
	)
	txs, err := loader.LoadTransactions(context.Background(), nil, nil)

	assert.NoError(t, err)
	assert.Empty(t, txs)
}
