package domain

import (
	"sort"
	"time"
)

// Segment identifies one demand series. All four labels are canonical
// (see CanonicalLabel); two segments are the same series iff the structs
// are equal.
type Segment struct {
	VehicleType string `json:"vehicle_type"`
	Brand       string `json:"brand"`
	Model       string `json:"model"`
	Line        string `json:"line"`
}

// Canonicalize returns the segment with every label passed through
// CanonicalLabel.
func (s Segment) Canonicalize() Segment {
	return Segment{
		VehicleType: CanonicalLabel(s.VehicleType),
		Brand:       CanonicalLabel(s.Brand),
		Model:       CanonicalLabel(s.Model),
		Line:        CanonicalLabel(s.Line),
	}
}

// FeatureRow is one (segment, calendar month) observation of engineered
// model inputs. EventMonth is the first day of the month in UTC.
type FeatureRow struct {
	Segment
	EventMonth        time.Time `json:"event_month"`
	SalesCount        float64   `json:"sales_count"`
	PurchasesCount    float64   `json:"purchases_count"`
	AvgMargin         float64   `json:"avg_margin"`
	AvgSalePrice      float64   `json:"avg_sale_price"`
	AvgPurchasePrice  float64   `json:"avg_purchase_price"`
	AvgDaysInventory  float64   `json:"avg_days_inventory"`
	InventoryRotation float64   `json:"inventory_rotation"`
	Lag1              float64   `json:"lag_1"`
	Lag3              float64   `json:"lag_3"`
	Lag6              float64   `json:"lag_6"`
	RollingMean3      float64   `json:"rolling_mean_3"`
	RollingMean6      float64   `json:"rolling_mean_6"`
	Month             int       `json:"month"`
	Year              int       `json:"year"`
	MonthSin          float64   `json:"month_sin"`
	MonthCos          float64   `json:"month_cos"`
}

// Feature column names as persisted and as referenced in model metadata.
const (
	ColSalesCount        = "sales_count"
	ColPurchasesCount    = "purchases_count"
	ColAvgMargin         = "avg_margin"
	ColAvgSalePrice      = "avg_sale_price"
	ColAvgPurchasePrice  = "avg_purchase_price"
	ColAvgDaysInventory  = "avg_days_inventory"
	ColInventoryRotation = "inventory_rotation"
	ColLag1              = "lag_1"
	ColLag3              = "lag_3"
	ColLag6              = "lag_6"
	ColRollingMean3      = "rolling_mean_3"
	ColRollingMean6      = "rolling_mean_6"
	ColMonth             = "month"
	ColYear              = "year"
	ColMonthSin          = "month_sin"
	ColMonthCos          = "month_cos"

	ColVehicleType = "vehicle_type"
	ColBrand       = "brand"
	ColModel       = "model"
	ColLine        = "line"
)

// CategoryColumns lists the fixed categorical model inputs.
func CategoryColumns() []string {
	return []string{ColVehicleType, ColBrand, ColModel, ColLine}
}

// NumericColumns lists the engineered numeric model inputs. The target
// (sales_count) is deliberately excluded.
func NumericColumns() []string {
	return []string{
		ColPurchasesCount, ColAvgMargin, ColAvgSalePrice, ColAvgPurchasePrice,
		ColAvgDaysInventory, ColInventoryRotation,
		ColLag1, ColLag3, ColLag6, ColRollingMean3, ColRollingMean6,
		ColMonth, ColYear, ColMonthSin, ColMonthCos,
	}
}

// CategoryValue returns the row's value for a categorical column.
func (r FeatureRow) CategoryValue(col string) string {
	switch col {
	case ColVehicleType:
		return r.VehicleType
	case ColBrand:
		return r.Brand
	case ColModel:
		return r.Model
	case ColLine:
		return r.Line
	}
	return ""
}

// NumericValue returns the row's value for a numeric column.
func (r FeatureRow) NumericValue(col string) float64 {
	switch col {
	case ColSalesCount:
		return r.SalesCount
	case ColPurchasesCount:
		return r.PurchasesCount
	case ColAvgMargin:
		return r.AvgMargin
	case ColAvgSalePrice:
		return r.AvgSalePrice
	case ColAvgPurchasePrice:
		return r.AvgPurchasePrice
	case ColAvgDaysInventory:
		return r.AvgDaysInventory
	case ColInventoryRotation:
		return r.InventoryRotation
	case ColLag1:
		return r.Lag1
	case ColLag3:
		return r.Lag3
	case ColLag6:
		return r.Lag6
	case ColRollingMean3:
		return r.RollingMean3
	case ColRollingMean6:
		return r.RollingMean6
	case ColMonth:
		return float64(r.Month)
	case ColYear:
		return float64(r.Year)
	case ColMonthSin:
		return r.MonthSin
	case ColMonthCos:
		return r.MonthCos
	}
	return 0
}

// MonthOf truncates a timestamp to the first day of its calendar month, UTC.
func MonthOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths advances a month marker by n calendar months.
func AddMonths(month time.Time, n int) time.Time {
	return month.AddDate(0, n, 0)
}

// SortFeatureRows orders rows chronologically, segments tie-broken
// lexicographically so the order is total and stable across runs.
func SortFeatureRows(rows []FeatureRow) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].EventMonth.Equal(rows[j].EventMonth) {
			return rows[i].EventMonth.Before(rows[j].EventMonth)
		}
		if rows[i].VehicleType != rows[j].VehicleType {
			return rows[i].VehicleType < rows[j].VehicleType
		}
		if rows[i].Brand != rows[j].Brand {
			return rows[i].Brand < rows[j].Brand
		}
		if rows[i].Model != rows[j].Model {
			return rows[i].Model < rows[j].Model
		}
		return rows[i].Line < rows[j].Line
	})
}
