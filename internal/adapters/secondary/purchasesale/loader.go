package purchasesale

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"demand-forecast-service/internal/core/domain"
	ports "demand-forecast-service/internal/core/ports/output"
)

// Loader joins contracts with vehicle details into the flat transaction
// table the trainer consumes.
type Loader struct {
	contracts *ContractClient
	vehicles  *VehicleClient
}

func NewLoader(contracts *ContractClient, vehicles *VehicleClient) ports.TransactionSource {
	return &Loader{contracts: contracts, vehicles: vehicles}
}

func (l *Loader) LoadTransactions(ctx context.Context, start, end *time.Time) ([]domain.Transaction, error) {
	contracts, err := l.contracts.FetchContracts(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if len(contracts) == 0 {
		return nil, nil
	}

	hints := make([]VehicleHint, 0, len(contracts))
	for _, contract := range contracts {
		if contract.VehicleID == 0 {
			continue
		}
		hint := VehicleHint{ID: contract.VehicleID}
		if contract.VehicleSummary != nil {
			hint.Type = contract.VehicleSummary.Type
		}
		hints = append(hints, hint)
	}
	vehicleMap := l.vehicles.FetchBulk(ctx, hints)

	txs := make([]domain.Transaction, 0, len(contracts))
	for _, contract := range contracts {
		createdAt, ok := parseTimestamp(contract.CreatedAt)
		if !ok {
			log.WithFields(log.Fields{"contract_id": contract.ID, "created_at": contract.CreatedAt}).
				Warn("skipping contract with unparseable timestamp")
			continue
		}

		summary := contract.VehicleSummary
		details := vehicleMap[contract.VehicleID]

		tx := domain.Transaction{
			ContractID:     contract.ID,
			ContractType:   domain.ContractType(contract.ContractType),
			ContractStatus: contract.ContractStatus,
			ClientID:       contract.ClientID,
			UserID:         contract.UserID,
			VehicleID:      contract.VehicleID,
			PurchasePrice:  contract.PurchasePrice,
			SalePrice:      contract.SalePrice,
			PaymentMethod:  contract.PaymentMethod,
			CreatedAt:      createdAt,
		}

		// Summary fields win for type, details win for the rest; the line
		// only ever comes from the detail lookup.
		if summary != nil {
			tx.VehicleType = summary.Type
			tx.Brand = summary.Brand
			tx.Model = summary.Model
			tx.VehicleStatus = summary.Status
		}
		if details != nil {
			if tx.VehicleType == "" {
				tx.VehicleType = details.ResolvedType()
			}
			if details.Brand != "" {
				tx.Brand = details.Brand
			}
			if details.Model != "" {
				tx.Model = details.Model
			}
			tx.Line = details.Line
			tx.Year = details.Year
			tx.Mileage = details.Mileage
			if tx.VehicleStatus == "" {
				if details.Status != "" {
					tx.VehicleStatus = details.Status
				} else {
					tx.VehicleStatus = details.VehicleStatus
				}
			}
		}

		txs = append(txs, tx)
	}

	return txs, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(value string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
