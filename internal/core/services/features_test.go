package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"demand-forecast-service/internal/core/domain"
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func saleTx(at time.Time, line string, salePrice, purchasePrice float64) domain.Transaction {
	return domain.Transaction{
		ContractType:  domain.ContractTypeSale,
		VehicleType:   "CAR",
		Brand:         "Yamaha",
		Model:         "MT",
		Line:          line,
		SalePrice:     salePrice,
		PurchasePrice: purchasePrice,
		CreatedAt:     at,
	}
}

func purchaseTx(at time.Time, line string, purchasePrice float64) domain.Transaction {
	return domain.Transaction{
		ContractType:  domain.ContractTypePurchase,
		VehicleType:   "CAR",
		Brand:         "Yamaha",
		Model:         "MT",
		Line:          line,
		PurchasePrice: purchasePrice,
		CreatedAt:     at,
	}
}

// monthlySales emits n sale transactions per month for a run of months.
func monthlySales(start time.Time, counts []int) []domain.Transaction {
	var txs []domain.Transaction
	for i, n := range counts {
		at := domain.AddMonths(start, i).Add(36 * time.Hour)
		for j := 0; j < n; j++ {
			txs = append(txs, saleTx(at, "R", 100, 80))
		}
	}
	return txs
}

func TestBuildFeatureTable_OneRowPerSegmentMonth(t *testing.T) {
	builder := NewFeatureBuilder()
	at := month(2024, time.March).Add(24 * time.Hour)

	txs := []domain.Transaction{
		saleTx(at, "R", 100, 80),
		saleTx(at.Add(time.Hour), "R", 120, 90),
		purchaseTx(at.Add(2*time.Hour), "R", 70),
		saleTx(at, "S", 100, 80), // different line, own row
	}

	rows := builder.BuildFeatureTable(txs)
	assert.Len(t, rows, 2)

	type key struct {
		segment domain.Segment
		month   time.Time
	}
	seen := make(map[key]bool)
	for _, row := range rows {
		k := key{row.Segment, row.EventMonth}
		assert.False(t, seen[k], "duplicate (segment, month) pair: %+v", k)
		seen[k] = true
	}

	var rLine domain.FeatureRow
	for _, row := range rows {
		if row.Line == "R" {
			rLine = row
		}
	}
	assert.Equal(t, 2.0, rLine.SalesCount)
	assert.Equal(t, 1.0, rLine.PurchasesCount)
	assert.Equal(t, month(2024, time.March), rLine.EventMonth)
}

func TestBuildFeatureTable_DropsRowsWithoutLine(t *testing.T) {
	builder := NewFeatureBuilder()
	at := month(2024, time.March)

	txs := []domain.Transaction{
		saleTx(at, "", 100, 80),
		saleTx(at, " -- ", 100, 80), // normalizes to empty
		saleTx(at, "R", 100, 80),
	}

	rows := builder.BuildFeatureTable(txs)
	assert.Len(t, rows, 1)
	assert.Equal(t, "R", rows[0].Line)
}

func TestBuildFeatureTable_SegmentLabelsCanonical(t *testing.T) {
	builder := NewFeatureBuilder()
	at := month(2024, time.March)

	// Two spellings of the same segment land in one bucket.
	txs := []domain.Transaction{
		saleTx(at, "gt-line", 100, 80),
		saleTx(at, " GT  LINE ", 100, 80),
	}

	rows := builder.BuildFeatureTable(txs)
	assert.Len(t, rows, 1)
	assert.Equal(t, "GT LINE", rows[0].Line)
	assert.Equal(t, "YAMAHA", rows[0].Brand)
	assert.Equal(t, 2.0, rows[0].SalesCount)
}

func TestBuildFeatureTable_LagAndRollingFeatures(t *testing.T) {
	builder := NewFeatureBuilder()
	rows := builder.BuildFeatureTable(monthlySales(month(2024, time.January), []int{1, 2, 3, 4, 5, 6}))
	assert.Len(t, rows, 6)

	june := rows[5]
	assert.Equal(t, month(2024, time.June), june.EventMonth)
	assert.Equal(t, 6.0, june.SalesCount)
	assert.Equal(t, 5.0, june.Lag1)
	assert.Equal(t, 3.0, june.Lag3)
	assert.Equal(t, 0.0, june.Lag6, "lag beyond available history falls back to zero")
	assert.InDelta(t, 5.0, june.RollingMean3, 1e-9)  // (4+5+6)/3
	assert.InDelta(t, 3.5, june.RollingMean6, 1e-9)  // (1+..+6)/6
	assert.InDelta(t, 1.0, rows[0].RollingMean3, 1e-9) // only itself in window

	assert.Equal(t, 6, june.Month)
	assert.Equal(t, 2024, june.Year)
	assert.InDelta(t, 0.0, june.MonthSin, 1e-9) // sin(2π·6/12) = sin(π)
	assert.InDelta(t, -1.0, june.MonthCos, 1e-9)
}

func TestBuildFeatureTable_NoLookAhead(t *testing.T) {
	builder := NewFeatureBuilder()
	base := monthlySales(month(2024, time.January), []int{2, 2, 2, 2, 2, 2})
	spiked := monthlySales(month(2024, time.January), []int{2, 2, 2, 2, 2, 2, 50})

	baseRows := builder.BuildFeatureTable(base)
	spikedRows := builder.BuildFeatureTable(spiked)

	// A future spike must not leak into any earlier row.
	for i, row := range baseRows {
		assert.Equal(t, row, spikedRows[i], "row for %s changed by a later spike", row.EventMonth)
	}
}

func TestBuildFeatureTable_MarginAndRotationFormulas(t *testing.T) {
	builder := NewFeatureBuilder()
	at := month(2024, time.May)

	txs := []domain.Transaction{
		saleTx(at, "R", 100, 80),  // margin 0.20
		saleTx(at, "R", 200, 100), // margin 0.50
		saleTx(at, "R", 300, 0),   // no recorded cost, no margin sample
		purchaseTx(at, "R", 90),
	}
	rows := builder.BuildFeatureTable(txs)
	assert.Len(t, rows, 1)

	assert.InDelta(t, 0.35, rows[0].AvgMargin, 1e-9)
	assert.InDelta(t, 200.0, rows[0].AvgSalePrice, 1e-9)
	assert.InDelta(t, 90.0, rows[0].AvgPurchasePrice, 1e-9)
	assert.InDelta(t, 3.0, rows[0].InventoryRotation, 1e-9) // 3 sales / 1 purchase
	assert.Equal(t, 3.0, rows[0].SalesCount)
}

func TestBuildFeatureTable_RotationWithoutPurchases(t *testing.T) {
	builder := NewFeatureBuilder()
	rows := builder.BuildFeatureTable([]domain.Transaction{
		saleTx(month(2024, time.May), "R", 100, 80),
		saleTx(month(2024, time.May), "R", 100, 80),
	})
	assert.Len(t, rows, 1)
	assert.Equal(t, 2.0, rows[0].InventoryRotation)
}

func TestBuildFeatureTable_CustomFormulas(t *testing.T) {
	builder := NewFeatureBuilder(
		WithMarginFormula(func(sale, purchase float64) float64 { return sale - purchase }),
		WithRotationFormula(func(sales, purchases float64) float64 { return sales / (purchases + 1) }),
	)
	rows := builder.BuildFeatureTable([]domain.Transaction{
		saleTx(month(2024, time.May), "R", 100, 80),
		purchaseTx(month(2024, time.May), "R", 90),
	})
	assert.Len(t, rows, 1)
	assert.InDelta(t, 20.0, rows[0].AvgMargin, 1e-9)
	assert.InDelta(t, 0.5, rows[0].InventoryRotation, 1e-9)
}

func TestBuildFeatureTable_DaysInInventory(t *testing.T) {
	builder := NewFeatureBuilder()
	purchase := purchaseTx(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), "R", 80)
	purchase.VehicleID = 7
	sale := saleTx(time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC), "R", 100, 80)
	sale.VehicleID = 7

	rows := builder.BuildFeatureTable([]domain.Transaction{purchase, sale})

	var feb domain.FeatureRow
	for _, row := range rows {
		if row.EventMonth.Equal(month(2024, time.February)) {
			feb = row
		}
	}
	assert.InDelta(t, 30.0, feb.AvgDaysInventory, 1e-9)
}

func TestBuildFutureRow(t *testing.T) {
	builder := NewFeatureBuilder()
	history := builder.BuildFeatureTable(monthlySales(month(2024, time.January), []int{1, 2, 3, 4, 5, 6}))

	target := month(2024, time.July)
	row := builder.BuildFutureRow(history, target)

	assert.Equal(t, target, row.EventMonth)
	assert.Equal(t, history[5].Segment, row.Segment)
	assert.Equal(t, 6.0, row.Lag1)
	assert.Equal(t, 4.0, row.Lag3)
	assert.Equal(t, 1.0, row.Lag6)
	assert.InDelta(t, 5.5, row.RollingMean3, 1e-9) // (5+6)/2, target month unknown
	assert.Equal(t, 0.0, row.SalesCount)
	assert.Equal(t, 7, row.Month)

	// Slow-moving aggregates carry forward from the last known row.
	assert.Equal(t, history[5].AvgSalePrice, row.AvgSalePrice)
	assert.Equal(t, history[5].InventoryRotation, row.InventoryRotation)
}

func TestBuildFutureRow_SeesForecastRows(t *testing.T) {
	builder := NewFeatureBuilder()
	history := builder.BuildFeatureTable(monthlySales(month(2024, time.January), []int{1, 2, 3}))

	synthetic := builder.BuildFutureRow(history, month(2024, time.April))
	synthetic.SalesCount = 9
	history = append(history, synthetic)

	row := builder.BuildFutureRow(history, month(2024, time.May))
	assert.Equal(t, 9.0, row.Lag1, "previously forecast rows feed later lags")
}
