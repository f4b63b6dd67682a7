package httpgin

import (
	"time"

	"github.com/kirinyoku/seatflow/internal/domain"
)

type AttendeeInput struct {
	FirstName       string `json:"first_name" binding:"required,notblank"`
	LastName        string `json:"last_name" binding:"required,notblank"`
	Email           string `json:"email" binding:"required,email"`
	SpecialRequests string `json:"special_requests"`
	IsSelected      bool   `json:"is_selected"`
	IsWaitlist      bool   `json:"is_waitlist"`
}

func (a AttendeeInput) toDomain() domain.Attendee {
	return domain.Attendee{
		FirstName:       a.FirstName,
		LastName:        a.LastName,
		Email:           a.Email,
		SpecialRequests: a.SpecialRequests,
		IsSelected:      a.IsSelected,
		IsWaitlist:      a.IsWaitlist,
	}
}

func attendees(in []AttendeeInput) []domain.Attendee {
	out := make([]domain.Attendee, 0, len(in))
	for _, a := range in {
		out = append(out, a.toDomain())
	}
	return out
}

type CreateHoldRequest struct {
	CompanyID int64           `json:"company_id" binding:"required,gt=0"`
	CreatedBy int64           `json:"created_by" binding:"required,gt=0"`
	Attendees []AttendeeInput `json:"attendees" binding:"required,min=1,dive"`
}

type UpdateAttendeesRequest struct {
	Attendees []AttendeeInput `json:"attendees" binding:"required,min=1,dive"`
}

type AdminDiscountInput struct {
	Type   domain.DiscountType `json:"type" binding:"required,oneof=percentage fixed_amount"`
	Value  int64               `json:"value" binding:"gte=0"`
	Reason string              `json:"reason" binding:"required,notblank"`
}

func (a *AdminDiscountInput) toDomain() *domain.AdminDiscount {
	if a == nil {
		return nil
	}
	return &domain.AdminDiscount{Type: a.Type, Value: a.Value, Reason: a.Reason}
}

type PaymentRequest struct {
	CompanyID     int64               `json:"company_id" binding:"required,gt=0"`
	UserID        int64               `json:"user_id" binding:"required,gt=0"`
	CardToken     string              `json:"card_token"`
	Descriptor    string              `json:"descriptor" binding:"max=22"`
	DiscountCode  string              `json:"discount_code"`
	AdminDiscount *AdminDiscountInput `json:"admin_discount"`
}

type QuoteRequest struct {
	Attendees     []AttendeeInput     `json:"attendees" binding:"required,min=1,dive"`
	DiscountCode  string              `json:"discount_code"`
	AdminDiscount *AdminDiscountInput `json:"admin_discount"`
}

type RefundRequest struct {
	UserID int64  `json:"user_id" binding:"required,gt=0"`
	Reason string `json:"reason" binding:"required,notblank"`
}

type UpdatePositionRequest struct {
	Position int `json:"position" binding:"required,gt=0"`
}

type CreateSessionRequest struct {
	Name           string    `json:"name" binding:"required,notblank"`
	MaxEnrollments int       `json:"max_enrollments" binding:"gte=0"`
	SeatPriceCents int64     `json:"seat_price_cents" binding:"gte=0"`
	StartDate      time.Time `json:"start_date" binding:"required"`
	Timezone       string    `json:"timezone"`
}

type CreateDiscountRequest struct {
	Code                 string              `json:"code" binding:"required,notblank,max=64"`
	Type                 domain.DiscountType `json:"type" binding:"required,oneof=percentage fixed_amount"`
	Value                int64               `json:"value" binding:"gte=0"`
	IsActive             bool                `json:"is_active"`
	StartDate            *time.Time          `json:"start_date"`
	EndDate              *time.Time          `json:"end_date"`
	MaximumUses          *int                `json:"maximum_uses" binding:"omitempty,gt=0"`
	MinimumPurchaseCents *int64              `json:"minimum_purchase_cents" binding:"omitempty,gte=0"`
	SessionIDs           []int64             `json:"session_ids" binding:"omitempty,dive,gt=0"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type ResetExpirationResponse struct {
	ExpiresAt time.Time `json:"expires_at"`
}

type SweepResponse struct {
	Expired int `json:"expired"`
}

type PromoteResponse struct {
	Promoted int `json:"promoted"`
}
