package domain

import "time"

type ContractType string

const (
	ContractTypePurchase ContractType = "PURCHASE"
	ContractTypeSale     ContractType = "SALE"
)

// Transaction is one purchase or sale contract flattened together with the
// details of the vehicle it concerns. Rows are produced by the upstream
// loader and are immutable once loaded.
type Transaction struct {
	ContractID     int64        `json:"contract_id"`
	ContractType   ContractType `json:"contract_type"`
	ContractStatus string       `json:"contract_status"`
	ClientID       int64        `json:"client_id"`
	UserID         int64        `json:"user_id"`
	VehicleID      int64        `json:"vehicle_id"`
	PurchasePrice  float64      `json:"purchase_price"`
	SalePrice      float64      `json:"sale_price"`
	PaymentMethod  string       `json:"payment_method"`
	VehicleType    string       `json:"vehicle_type"`
	Brand          string       `json:"brand"`
	Model          string       `json:"model"`
	Line           string       `json:"line"`
	Year           int          `json:"year"`
	Mileage        int          `json:"mileage"`
	VehicleStatus  string       `json:"vehicle_status"`
	CreatedAt      time.Time    `json:"created_at"`
}

func (t Transaction) IsSale() bool {
	return t.ContractType == ContractTypeSale
}

func (t Transaction) IsPurchase() bool {
	return t.ContractType == ContractTypePurchase
}
