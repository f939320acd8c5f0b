package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ArrivalStatus is the state of a recorded fund arrival.
type ArrivalStatus string

const (
	ArrivalPending   ArrivalStatus = "pending"
	ArrivalConfirmed ArrivalStatus = "confirmed"
)

// FundArrival records an installment of project funding actually arriving.
// Arrivals never exceed the project's total budget in aggregate.
type FundArrival struct {
	ArrivalID     string          `json:"arrivalID"`
	ProjectID     string          `json:"projectID"`
	ProjectName   string          `json:"projectName"`
	Amount        decimal.Decimal `json:"amount"`
	Year          string          `json:"year"`
	ArrivalDate   time.Time       `json:"arrivalDate"`
	VoucherPath   string          `json:"voucherPath,omitempty"`
	Remark        string          `json:"remark,omitempty"`
	Status        ArrivalStatus   `json:"status"`
	ApplyUserID   string          `json:"applyUserID"`
	ApplyUserName string          `json:"applyUserName"`
	AuditFields
}

// Editable reports whether the arrival record may still be changed or removed.
func (a *FundArrival) Editable() bool {
	return a.Status == ArrivalPending
}
