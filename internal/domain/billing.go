package domain

import (
	"time"

	"github.com/google/uuid"
)

type InvoiceStatus string

const (
	InvoicePosted InvoiceStatus = "POSTED"
	InvoiceVoid   InvoiceStatus = "VOID"
)

type Invoice struct {
	ID            int64             `json:"id"`
	InvoiceNumber string            `json:"invoice_number"`
	CompanyID     int64             `json:"company_id"`
	SessionID     int64             `json:"session_id"`
	HoldUUID      uuid.UUID         `json:"hold_uuid"`
	InvoiceDate   time.Time         `json:"invoice_date"`
	Status        InvoiceStatus     `json:"status"`
	TotalCents    int64             `json:"total_cents"`
	LineItems     []InvoiceLineItem `json:"line_items"`
}

type InvoiceLineItem struct {
	Description    string  `json:"description"`
	Quantity       int     `json:"quantity"`
	UnitPriceCents int64   `json:"unit_price_cents"`
	LineTotalCents int64   `json:"line_total_cents"`
	DiscountCode   *string `json:"discount_code,omitempty"`
}

type CreditMemo struct {
	ID         int64             `json:"id"`
	InvoiceID  int64             `json:"invoice_id"`
	MemoDate   time.Time         `json:"memo_date"`
	Status     InvoiceStatus     `json:"status"`
	Reason     string            `json:"reason"`
	CreatedBy  int64             `json:"created_by"`
	TotalCents int64             `json:"total_cents"`
	LineItems  []InvoiceLineItem `json:"line_items"`
}

// Payment records one gateway attempt, successful or not.
type Payment struct {
	ID            int64     `json:"id"`
	HoldUUID      uuid.UUID `json:"hold_uuid"`
	InvoiceID     *int64    `json:"invoice_id,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	AmountCents   int64     `json:"amount_cents"`
	CardType      string    `json:"card_type,omitempty"`
	CardLast4     string    `json:"card_last4,omitempty"`
	ErrorCode     *string   `json:"error_code,omitempty"`
	ErrorMessage  *string   `json:"error_message,omitempty"`
	CreatedBy     int64     `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// Succeeded reports whether the gateway accepted the charge.
func (p *Payment) Succeeded() bool {
	return p.ErrorCode == nil
}

type DiscountType string

const (
	DiscountPercentage  DiscountType = "percentage"
	DiscountFixedAmount DiscountType = "fixed_amount"
)

// Discount is a redeemable code. Value is basis points for percentage
// discounts and cents for fixed amounts.
type Discount struct {
	ID                   int64        `json:"id"`
	Code                 string       `json:"code"`
	Type                 DiscountType `json:"type"`
	Value                int64        `json:"value"`
	IsActive             bool         `json:"is_active"`
	StartDate            *time.Time   `json:"start_date,omitempty"`
	EndDate              *time.Time   `json:"end_date,omitempty"`
	MaximumUses          *int         `json:"maximum_uses,omitempty"`
	MinimumPurchaseCents *int64       `json:"minimum_purchase_cents,omitempty"`
	SessionIDs           []int64      `json:"session_ids,omitempty"`
}

// AppliesTo reports whether the code may be used for the session. An empty
// session list means every session.
func (d *Discount) AppliesTo(sessionID int64) bool {
	if len(d.SessionIDs) == 0 {
		return true
	}
	for _, id := range d.SessionIDs {
		if id == sessionID {
			return true
		}
	}
	return false
}

// AdminDiscount is a manual reduction entered by staff at checkout.
type AdminDiscount struct {
	Type   DiscountType `json:"type"`
	Value  int64        `json:"value"`
	Reason string       `json:"reason"`
}
