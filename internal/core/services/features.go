package services

import (
	"math"
	"sort"
	"time"

	"demand-forecast-service/internal/core/domain"
)

// FeatureBuilder turns raw transactions into the monthly per-segment
// feature table and synthesizes future rows for the forecast loop.
//
// The margin and rotation ratios have no single canonical definition, so
// both are injectable. Defaults:
//
//	margin   = (sale_price - purchase_price) / sale_price, per sale;
//	           sales missing either price contribute no margin sample
//	rotation = sales_count / purchases_count (sales_count when no purchases)
type FeatureBuilder struct {
	margin   func(salePrice, purchasePrice float64) float64
	rotation func(sales, purchases float64) float64
}

type FeatureBuilderOption func(*FeatureBuilder)

func WithMarginFormula(fn func(salePrice, purchasePrice float64) float64) FeatureBuilderOption {
	return func(b *FeatureBuilder) { b.margin = fn }
}

func WithRotationFormula(fn func(sales, purchases float64) float64) FeatureBuilderOption {
	return func(b *FeatureBuilder) { b.rotation = fn }
}

func NewFeatureBuilder(opts ...FeatureBuilderOption) *FeatureBuilder {
	b := &FeatureBuilder{
		margin: func(salePrice, purchasePrice float64) float64 {
			return (salePrice - purchasePrice) / salePrice
		},
		rotation: func(sales, purchases float64) float64 {
			if purchases <= 0 {
				return sales
			}
			return sales / purchases
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type monthlyBucket struct {
	segment   domain.Segment
	month     time.Time
	sales     float64
	purchases float64

	saleSum, saleN     float64
	purchSum, purchN   float64
	marginSum, marginN float64
	daysSum, daysN     float64
}

// BuildFeatureTable aggregates transactions into one row per (segment,
// month). Rows whose line normalizes to empty are dropped; every numeric
// without data is zero, never NaN. The output is sorted chronologically and
// contains no duplicate (segment, month) pairs.
func (b *FeatureBuilder) BuildFeatureTable(txs []domain.Transaction) []domain.FeatureRow {
	// Purchase dates per vehicle, for days-in-inventory matching. Indexed
	// before segment filtering: a purchase with an unusable line still puts
	// the vehicle in stock.
	purchaseDates := make(map[int64][]time.Time)
	for _, tx := range txs {
		if tx.IsPurchase() && tx.VehicleID != 0 {
			purchaseDates[tx.VehicleID] = append(purchaseDates[tx.VehicleID], tx.CreatedAt.UTC())
		}
	}
	for _, dates := range purchaseDates {
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	}

	type bucketKey struct {
		segment domain.Segment
		month   time.Time
	}
	buckets := make(map[bucketKey]*monthlyBucket)

	for _, tx := range txs {
		segment := domain.Segment{
			VehicleType: tx.VehicleType,
			Brand:       tx.Brand,
			Model:       tx.Model,
			Line:        tx.Line,
		}.Canonicalize()
		if segment.Line == "" {
			continue
		}

		month := domain.MonthOf(tx.CreatedAt)
		key := bucketKey{segment: segment, month: month}
		bucket := buckets[key]
		if bucket == nil {
			bucket = &monthlyBucket{segment: segment, month: month}
			buckets[key] = bucket
		}

		switch {
		case tx.IsSale():
			bucket.sales++
			if tx.SalePrice > 0 {
				bucket.saleSum += tx.SalePrice
				bucket.saleN++
				if tx.PurchasePrice > 0 {
					bucket.marginSum += b.margin(tx.SalePrice, tx.PurchasePrice)
					bucket.marginN++
				}
			}
			if days, ok := daysInInventory(purchaseDates[tx.VehicleID], tx.CreatedAt.UTC()); ok {
				bucket.daysSum += days
				bucket.daysN++
			}
		case tx.IsPurchase():
			bucket.purchases++
			if tx.PurchasePrice > 0 {
				bucket.purchSum += tx.PurchasePrice
				bucket.purchN++
			}
		}
	}

	// Group by segment so lags and rolling means stay within one series.
	bySegment := make(map[domain.Segment][]*monthlyBucket)
	for _, bucket := range buckets {
		bySegment[bucket.segment] = append(bySegment[bucket.segment], bucket)
	}

	rows := make([]domain.FeatureRow, 0, len(buckets))
	for segment, series := range bySegment {
		sort.Slice(series, func(i, j int) bool { return series[i].month.Before(series[j].month) })

		salesAt := make(map[time.Time]float64, len(series))
		for _, bucket := range series {
			salesAt[bucket.month] = bucket.sales
		}

		for _, bucket := range series {
			row := domain.FeatureRow{
				Segment:           segment,
				EventMonth:        bucket.month,
				SalesCount:        bucket.sales,
				PurchasesCount:    bucket.purchases,
				AvgMargin:         safeMean(bucket.marginSum, bucket.marginN),
				AvgSalePrice:      safeMean(bucket.saleSum, bucket.saleN),
				AvgPurchasePrice:  safeMean(bucket.purchSum, bucket.purchN),
				AvgDaysInventory:  safeMean(bucket.daysSum, bucket.daysN),
				InventoryRotation: b.rotation(bucket.sales, bucket.purchases),
			}
			applyLagFeatures(&row, salesAt, bucket.month, true)
			applyCalendarFeatures(&row, bucket.month)
			rows = append(rows, row)
		}
	}

	domain.SortFeatureRows(rows)
	return rows
}

// BuildFutureRow synthesizes the feature row describing targetMonth before
// its sales count is known. Lags and rolling means come from history (real
// rows plus any previously forecast ones); the slow-moving aggregates carry
// forward from the most recent row; calendar encodings are fresh.
func (b *FeatureBuilder) BuildFutureRow(history []domain.FeatureRow, targetMonth time.Time) domain.FeatureRow {
	last := history[len(history)-1]

	salesAt := make(map[time.Time]float64, len(history))
	for _, row := range history {
		salesAt[row.EventMonth] = row.SalesCount
	}

	row := domain.FeatureRow{
		Segment:           last.Segment,
		EventMonth:        targetMonth,
		PurchasesCount:    last.PurchasesCount,
		AvgMargin:         last.AvgMargin,
		AvgSalePrice:      last.AvgSalePrice,
		AvgPurchasePrice:  last.AvgPurchasePrice,
		AvgDaysInventory:  last.AvgDaysInventory,
		InventoryRotation: last.InventoryRotation,
	}
	applyLagFeatures(&row, salesAt, targetMonth, false)
	applyCalendarFeatures(&row, targetMonth)
	return row
}

// applyLagFeatures fills lag and rolling-mean features from the sales
// series. Lags are calendar-offset lookups with a zero fallback when the
// month has no observation. Rolling means average the rows present inside
// the trailing k-calendar-month window ending at month; includeSelf is true
// when month itself has a known sales count.
func applyLagFeatures(row *domain.FeatureRow, salesAt map[time.Time]float64, month time.Time, includeSelf bool) {
	row.Lag1 = salesAt[domain.AddMonths(month, -1)]
	row.Lag3 = salesAt[domain.AddMonths(month, -3)]
	row.Lag6 = salesAt[domain.AddMonths(month, -6)]
	row.RollingMean3 = rollingMean(salesAt, month, 3, includeSelf)
	row.RollingMean6 = rollingMean(salesAt, month, 6, includeSelf)
}

func rollingMean(salesAt map[time.Time]float64, month time.Time, window int, includeSelf bool) float64 {
	var sum, n float64
	for i := 0; i < window; i++ {
		if i == 0 && !includeSelf {
			continue
		}
		if v, ok := salesAt[domain.AddMonths(month, -i)]; ok {
			sum += v
			n++
		}
	}
	return safeMean(sum, n)
}

func applyCalendarFeatures(row *domain.FeatureRow, month time.Time) {
	row.Month = int(month.Month())
	row.Year = month.Year()
	angle := 2 * math.Pi * float64(row.Month) / 12
	row.MonthSin = math.Sin(angle)
	row.MonthCos = math.Cos(angle)
}

func safeMean(sum, n float64) float64 {
	if n <= 0 {
		return 0
	}
	return sum / n
}

// daysInInventory matches a sale against the most recent purchase of the
// same vehicle at or before the sale date.
func daysInInventory(purchases []time.Time, saleAt time.Time) (float64, bool) {
	idx := sort.Search(len(purchases), func(i int) bool { return purchases[i].After(saleAt) })
	if idx == 0 {
		return 0, false
	}
	return saleAt.Sub(purchases[idx-1]).Hours() / 24, true
}
