package sqlstore

import (
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-order-verify/core"
)

type verificationRecord struct {
	bun.BaseModel `bun:"table:order_verifications,alias:ov"`

	ID             string    `bun:"id,pk"`
	SourceOrderID  string    `bun:"source_order_id,notnull,unique"`
	AdminGraphqlID string    `bun:"admin_graphql_id"`
	OrderNumber    string    `bun:"order_number"`
	CustomerName   string    `bun:"customer_name"`
	ContactEmail   string    `bun:"contact_email"`
	Phone          string    `bun:"phone,notnull"`
	TotalAmount    float64   `bun:"total_amount,notnull"`
	Currency       string    `bun:"currency"`
	PaymentMethod  string    `bun:"payment_method,notnull"`
	ItemsSummary   string    `bun:"items_summary"`
	City           string    `bun:"city"`
	State          string    `bun:"state"`
	PostalCode     string    `bun:"postal_code"`
	Address        string    `bun:"address"`
	Country        string    `bun:"country"`
	Status         string    `bun:"status,notnull"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newVerificationRecord(in core.CreateVerificationInput, id string, now time.Time) *verificationRecord {
	return &verificationRecord{
		ID:             id,
		SourceOrderID:  strings.TrimSpace(in.SourceOrderID),
		AdminGraphqlID: strings.TrimSpace(in.AdminGraphqlID),
		OrderNumber:    strings.TrimSpace(in.OrderNumber),
		CustomerName:   strings.TrimSpace(in.CustomerName),
		ContactEmail:   strings.TrimSpace(in.ContactEmail),
		Phone:          strings.TrimSpace(in.Phone),
		TotalAmount:    in.TotalAmount,
		Currency:       strings.TrimSpace(in.Currency),
		PaymentMethod:  strings.TrimSpace(in.PaymentMethod),
		ItemsSummary:   strings.TrimSpace(in.ItemsSummary),
		City:           strings.TrimSpace(in.City),
		State:          strings.TrimSpace(in.State),
		PostalCode:     strings.TrimSpace(in.PostalCode),
		Address:        strings.TrimSpace(in.Address),
		Country:        strings.TrimSpace(in.Country),
		Status:         string(core.VerificationStatusPending),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (r *verificationRecord) toDomain() core.VerificationRecord {
	if r == nil {
		return core.VerificationRecord{}
	}
	return core.VerificationRecord{
		ID:             r.ID,
		SourceOrderID:  r.SourceOrderID,
		AdminGraphqlID: r.AdminGraphqlID,
		OrderNumber:    r.OrderNumber,
		CustomerName:   r.CustomerName,
		ContactEmail:   r.ContactEmail,
		Phone:          r.Phone,
		TotalAmount:    r.TotalAmount,
		Currency:       r.Currency,
		PaymentMethod:  r.PaymentMethod,
		ItemsSummary:   r.ItemsSummary,
		City:           r.City,
		State:          r.State,
		PostalCode:     r.PostalCode,
		Address:        r.Address,
		Country:        r.Country,
		Status:         core.VerificationStatus(r.Status),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}
