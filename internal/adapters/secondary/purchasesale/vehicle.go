package purchasesale

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const defaultVehicleConcurrency = 10

// Vehicle mirrors the inventory service's car/motorcycle detail payload.
type Vehicle struct {
	ID            int64  `json:"id"`
	VehicleType   string `json:"vehicleType"`
	Type          string `json:"type"`
	Brand         string `json:"brand"`
	Model         string `json:"model"`
	Line          string `json:"line"`
	Year          int    `json:"year"`
	Mileage       int    `json:"mileage"`
	Status        string `json:"status"`
	VehicleStatus string `json:"vehicleStatus"`
}

// ResolvedType prefers the explicit type fields over nothing.
func (v Vehicle) ResolvedType() string {
	if v.VehicleType != "" {
		return v.VehicleType
	}
	return v.Type
}

// VehicleHint pairs a vehicle id with the contract's type hint, which lets
// the client skip probing the wrong endpoint.
type VehicleHint struct {
	ID   int64
	Type string
}

// VehicleClient looks up vehicle details in the inventory service.
type VehicleClient struct {
	httpClient  *http.Client
	baseURL     string
	internalKey string
	concurrency int
}

func NewVehicleClient(baseURL string, timeout time.Duration, internalKey string) *VehicleClient {
	return &VehicleClient{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(baseURL, "/"),
		internalKey: internalKey,
		concurrency: defaultVehicleConcurrency,
	}
}

// FetchVehicle probes the cars endpoint, then motorcycles, unless the type
// hint narrows it down. A 404 on one endpoint falls through to the next;
// (nil, nil) means the vehicle is not in inventory at all.
func (c *VehicleClient) FetchVehicle(ctx context.Context, id int64, vehicleType string) (*Vehicle, error) {
	endpoints := []string{"cars", "motorcycles"}
	switch vehicleType {
	case "CAR":
		endpoints = []string{"cars"}
	case "MOTORCYCLE":
		endpoints = []string{"motorcycles"}
	}

	for _, endpoint := range endpoints {
		reqURL := fmt.Sprintf("%s/v1/%s/%d", c.baseURL, endpoint, id)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create vehicle request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.internalKey != "" {
			req.Header.Set(headerInternalKey, c.internalKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch vehicle %d: %w", id, err)
		}
		if resp.StatusCode == http.StatusNotFound {
			resp.Body.Close()
			continue
		}

		var vehicle Vehicle
		if err := decodeBody(resp, &vehicle); err != nil {
			return nil, fmt.Errorf("decode vehicle %d: %w", id, err)
		}
		if vehicle.VehicleType == "" && vehicle.Type == "" {
			if vehicleType != "" {
				vehicle.VehicleType = vehicleType
			} else if endpoint == "cars" {
				vehicle.VehicleType = "CAR"
			} else {
				vehicle.VehicleType = "MOTORCYCLE"
			}
		}
		return &vehicle, nil
	}

	log.WithField("vehicle_id", id).Warn("vehicle not found in inventory")
	return nil, nil
}

// FetchBulk resolves many vehicles with bounded concurrency. Individual
// lookup failures are logged and skipped so one flaky vehicle does not sink
// a whole dataset load.
func (c *VehicleClient) FetchBulk(ctx context.Context, hints []VehicleHint) map[int64]*Vehicle {
	resolved := make(map[int64]*Vehicle, len(hints))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, hint := range hints {
		if hint.ID == 0 {
			continue
		}
		g.Go(func() error {
			vehicle, err := c.FetchVehicle(gctx, hint.ID, hint.Type)
			if err != nil {
				log.WithError(err).WithField("vehicle_id", hint.ID).Error("vehicle lookup failed")
				return nil
			}
			if vehicle == nil {
				return nil
			}
			mu.Lock()
			resolved[hint.ID] = vehicle
			mu.Unlock()
			return nil
		})
	}

	g.Wait()
	return resolved
}
