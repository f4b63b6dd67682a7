package httpgin

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kirinyoku/seatflow/internal/domain"
	redisrepo "github.com/kirinyoku/seatflow/internal/repository/redis"
	"github.com/kirinyoku/seatflow/internal/service"
	"github.com/kirinyoku/seatflow/internal/service/checkout"
	"github.com/kirinyoku/seatflow/internal/service/hold"
)

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	registerValidators()

	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	sessions := r.Group("/sessions/:id")
	{
		sessions.GET("", handleGetSession(svcs))
		sessions.GET("/availability", handleGetAvailability(svcs))
		sessions.GET("/enrollments", handleListEnrollments(svcs))
		sessions.POST("/quote", handleQuote(svcs))
		sessions.POST("/holds", handleCreateHold(svcs, idem))
		sessions.GET("/waitlist", handleListWaitlist(svcs))
		sessions.POST("/waitlist", handleAddToWaitlist(svcs))
	}

	holds := r.Group("/holds/:uuid")
	{
		holds.GET("", handleGetHold(svcs))
		holds.PUT("/attendees", handleUpdateAttendees(svcs))
		holds.POST("/reset", handleResetExpiration(svcs))
		holds.DELETE("", handleCancelHold(svcs))
		holds.POST("/payments", handleProcessPayment(svcs, idem))
		holds.GET("/payments", handleListPayments(svcs))
	}

	r.GET("/invoices/:id", handleGetInvoice(svcs))
	r.POST("/invoices/:id/refund", handleRefundInvoice(svcs))

	r.DELETE("/waitlist/:id", handleRemoveFromWaitlist(svcs))
	r.PATCH("/waitlist/:id/position", handleUpdatePosition(svcs))
	r.POST("/waitlist/:id/enroll", handleMoveToEnrollment(svcs))
	r.POST("/enrollments/:id/waitlist", handleMoveToWaitlist(svcs))

	// TODO: put the admin group behind staff authentication once the identity service exposes it
	admin := r.Group("/admin")
	{
		admin.POST("/sessions", handleCreateSession(svcs))
		admin.POST("/discounts", handleCreateDiscount(svcs))
		admin.POST("/sessions/:id/promote", handlePromote(svcs))
		admin.POST("/sweep", handleSweep(svcs))
	}

	return r
}

// --- Sessions ---

// @Summary  Get session
// @Param    id  path  int  true  "Session ID"
// @Success  200  {object}  domain.EventSession
// @Failure  404  {object}  ErrorResponse
// @Router   /sessions/{id} [get]
func handleGetSession(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		s, err := svcs.Query.GetSession(c.Request.Context(), sessionID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, s, "public, max-age=60", true)
	}
}

// @Summary  Get seat counts
// @Param    id  path  int  true  "Session ID"
// @Success  200  {object}  domain.SeatCounts
// @Failure  404  {object}  ErrorResponse
// @Router   /sessions/{id}/availability [get]
func handleGetAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		counts, err := svcs.Query.Availability(c.Request.Context(), sessionID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, counts, "public, max-age=15", true)
	}
}

// @Summary  List enrollments
// @Param    id  path  int  true  "Session ID"
// @Success  200  {array}  domain.Enrollment
// @Router   /sessions/{id}/enrollments [get]
func handleListEnrollments(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		out, err := svcs.Query.ListEnrollments(c.Request.Context(), sessionID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Price attendees without holding seats
// @Param    id   path  int           true  "Session ID"
// @Param    req  body  QuoteRequest  true  "payload"
// @Success  200  {object}  pricing.Quote
// @Failure  422  {object}  ErrorResponse  "discount not redeemable"
// @Router   /sessions/{id}/quote [post]
func handleQuote(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req QuoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		q, err := svcs.Pricing.Preview(
			c.Request.Context(),
			sessionID,
			attendees(req.Attendees),
			req.DiscountCode,
			req.AdminDiscount.toDomain(),
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, q)
	}
}

// --- Holds ---

// @Summary  Create hold (idempotent)
// @Param    id   path  int                true  "Session ID"
// @Param    req  body  CreateHoldRequest  true  "payload"
// @Header   201  {string}  Idempotency-Key  "echo"
// @Success  201  {object}  domain.CheckoutHold
// @Failure  400  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse  "seats unavailable / idem in progress"
// @Failure  429  {object}  ErrorResponse  "rate limited"
// @Router   /sessions/{id}/holds [post]
func handleCreateHold(svcs *service.Services, idem *redisrepo.IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req CreateHoldRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		key := idempotencyKey(c, func(k string) string { return redisrepo.KeyIdemHold(sessionID, k) })
		runIdempotent(c, idem, key, http.StatusCreated, func() (any, error) {
			return svcs.Holds.CreateHold(c.Request.Context(), hold.CreateHoldInput{
				SessionID:    sessionID,
				CompanyID:    req.CompanyID,
				CreatedBy:    req.CreatedBy,
				Attendees:    attendees(req.Attendees),
				RateLimitKey: "company:" + strconv.FormatInt(req.CompanyID, 10),
			})
		})
	}
}

// @Summary  Get hold
// @Param    uuid  path  string  true  "Hold UUID"
// @Success  200  {object}  domain.CheckoutHold
// @Failure  404  {object}  ErrorResponse
// @Router   /holds/{uuid} [get]
func handleGetHold(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "uuid")
		if !ok {
			return
		}
		h, err := svcs.Holds.GetHold(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, h)
	}
}

// @Summary  Replace the attendees of a hold
// @Param    uuid  path  string                  true  "Hold UUID"
// @Param    req   body  UpdateAttendeesRequest  true  "payload"
// @Success  200  {object}  domain.CheckoutHold
// @Failure  409  {object}  ErrorResponse
// @Router   /holds/{uuid}/attendees [put]
func handleUpdateAttendees(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "uuid")
		if !ok {
			return
		}
		var req UpdateAttendeesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		h, err := svcs.Holds.UpdateAttendees(c.Request.Context(), id, attendees(req.Attendees))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, h)
	}
}

// @Summary  Restart the hold's expiry window
// @Param    uuid  path  string  true  "Hold UUID"
// @Success  200  {object}  ResetExpirationResponse
// @Failure  409  {object}  ErrorResponse
// @Router   /holds/{uuid}/reset [post]
func handleResetExpiration(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "uuid")
		if !ok {
			return
		}
		expiresAt, err := svcs.Holds.ResetExpiration(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, ResetExpirationResponse{ExpiresAt: expiresAt})
	}
}

// @Summary  Cancel hold
// @Param    uuid  path  string  true  "Hold UUID"
// @Success  204
// @Failure  409  {object}  ErrorResponse
// @Router   /holds/{uuid} [delete]
func handleCancelHold(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "uuid")
		if !ok {
			return
		}
		if err := svcs.Holds.CancelHold(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// --- Checkout ---

// @Summary  Pay for a hold (idempotent)
// @Param    uuid  path  string          true  "Hold UUID"
// @Param    req   body  PaymentRequest  true  "payload"
// @Success  200  {object}  checkout.PaymentResult
// @Failure  402  {object}  checkout.PaymentResult  "declined"
// @Failure  409  {object}  ErrorResponse
// @Failure  422  {object}  ErrorResponse  "discount not redeemable"
// @Router   /holds/{uuid}/payments [post]
func handleProcessPayment(svcs *service.Services, idem *redisrepo.IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "uuid")
		if !ok {
			return
		}
		var req PaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		key := idempotencyKey(c, func(k string) string { return redisrepo.KeyIdemPayment(id.String(), k) })
		runIdempotent(c, idem, key, http.StatusOK, func() (any, error) {
			res, err := svcs.Checkout.ProcessPayment(c.Request.Context(), checkout.PaymentInput{
				HoldUUID:      id,
				CompanyID:     req.CompanyID,
				ActingUserID:  req.UserID,
				CardToken:     req.CardToken,
				Descriptor:    req.Descriptor,
				DiscountCode:  req.DiscountCode,
				AdminDiscount: req.AdminDiscount.toDomain(),
			})
			if err != nil {
				return nil, err
			}
			if !res.Success {
				return nil, &declinedError{result: res}
			}
			return res, nil
		})
	}
}

// @Summary  List payment attempts of a hold
// @Param    uuid  path  string  true  "Hold UUID"
// @Success  200  {array}  domain.Payment
// @Router   /holds/{uuid}/payments [get]
func handleListPayments(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "uuid")
		if !ok {
			return
		}
		out, err := svcs.Query.ListPayments(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Get invoice with its credit memo
// @Param    id  path  int  true  "Invoice ID"
// @Success  200  {object}  query.InvoiceView
// @Failure  404  {object}  ErrorResponse
// @Router   /invoices/{id} [get]
func handleGetInvoice(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		invoiceID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		v, err := svcs.Query.GetInvoice(c.Request.Context(), invoiceID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

// @Summary  Refund invoice
// @Param    id   path  int            true  "Invoice ID"
// @Param    req  body  RefundRequest  true  "payload"
// @Success  201  {object}  domain.CreditMemo
// @Failure  409  {object}  ErrorResponse  "already credited"
// @Router   /invoices/{id}/refund [post]
func handleRefundInvoice(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		invoiceID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req RefundRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		memo, err := svcs.Checkout.RefundInvoice(c.Request.Context(), checkout.RefundInput{
			InvoiceID:    invoiceID,
			Reason:       req.Reason,
			ActingUserID: req.UserID,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, memo)
	}
}

// --- Waitlist ---

// @Summary  List waitlist
// @Param    id  path  int  true  "Session ID"
// @Success  200  {array}  domain.WaitlistEntry
// @Router   /sessions/{id}/waitlist [get]
func handleListWaitlist(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		out, err := svcs.Query.Waitlist(c.Request.Context(), sessionID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Add attendee to the waitlist
// @Param    id   path  int            true  "Session ID"
// @Param    req  body  AttendeeInput  true  "payload"
// @Success  201  {object}  domain.WaitlistEntry
// @Failure  409  {object}  ErrorResponse
// @Router   /sessions/{id}/waitlist [post]
func handleAddToWaitlist(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req AttendeeInput
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		e, err := svcs.Waitlist.AddToWaitlist(c.Request.Context(), sessionID, req.toDomain())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, e)
	}
}

// @Summary  Remove waitlist entry
// @Param    id  path  int  true  "Entry ID"
// @Success  204
// @Router   /waitlist/{id} [delete]
func handleRemoveFromWaitlist(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		entryID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svcs.Waitlist.RemoveFromWaitlist(c.Request.Context(), entryID); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Move waitlist entry
// @Param    id   path  int                    true  "Entry ID"
// @Param    req  body  UpdatePositionRequest  true  "payload"
// @Success  200  {object}  domain.WaitlistEntry
// @Router   /waitlist/{id}/position [patch]
func handleUpdatePosition(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		entryID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req UpdatePositionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		e, err := svcs.Waitlist.UpdateWaitlistPosition(c.Request.Context(), entryID, req.Position)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, e)
	}
}

// @Summary  Enroll a waitlisted attendee
// @Param    id  path  int  true  "Entry ID"
// @Success  201  {object}  domain.Enrollment
// @Failure  409  {object}  ErrorResponse  "no seat available"
// @Router   /waitlist/{id}/enroll [post]
func handleMoveToEnrollment(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		entryID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		e, err := svcs.Waitlist.MoveWaitlistToEnrollment(c.Request.Context(), entryID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, e)
	}
}

// @Summary  Move an enrollment to the waitlist
// @Param    id  path  int  true  "Enrollment ID"
// @Success  201  {object}  domain.WaitlistEntry
// @Router   /enrollments/{id}/waitlist [post]
func handleMoveToWaitlist(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		enrollmentID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		e, err := svcs.Waitlist.MoveEnrollmentToWaitlist(c.Request.Context(), enrollmentID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, e)
	}
}

// --- Admin ---

// @Summary  Create session
// @Param    req  body  CreateSessionRequest  true  "payload"
// @Success  201  {object}  domain.EventSession
// @Router   /admin/sessions [post]
func handleCreateSession(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		s, err := svcs.Admin.CreateSession(c.Request.Context(), domain.EventSession{
			Name:           req.Name,
			MaxEnrollments: req.MaxEnrollments,
			SeatPriceCents: req.SeatPriceCents,
			StartDate:      req.StartDate,
			Timezone:       req.Timezone,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, s)
	}
}

// @Summary  Create discount code
// @Param    req  body  CreateDiscountRequest  true  "payload"
// @Success  201  {object}  domain.Discount
// @Failure  409  {object}  ErrorResponse  "code exists"
// @Router   /admin/discounts [post]
func handleCreateDiscount(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateDiscountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		d, err := svcs.Admin.CreateDiscount(c.Request.Context(), domain.Discount{
			Code:                 req.Code,
			Type:                 req.Type,
			Value:                req.Value,
			IsActive:             req.IsActive,
			StartDate:            req.StartDate,
			EndDate:              req.EndDate,
			MaximumUses:          req.MaximumUses,
			MinimumPurchaseCents: req.MinimumPurchaseCents,
			SessionIDs:           req.SessionIDs,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, d)
	}
}

// @Summary  Offer free seats to the waitlist
// @Param    id  path  int  true  "Session ID"
// @Success  200  {object}  PromoteResponse
// @Router   /admin/sessions/{id}/promote [post]
func handlePromote(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		n, err := svcs.Waitlist.Promote(c.Request.Context(), sessionID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, PromoteResponse{Promoted: n})
	}
}

// @Summary  Expire lapsed holds now
// @Success  200  {object}  SweepResponse
// @Router   /admin/sweep [post]
func handleSweep(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := svcs.Holds.ExpireStaleHolds(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, SweepResponse{Expired: n})
	}
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	v, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return v, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// declinedError carries a failed payment result to the response writer.
type declinedError struct {
	result *checkout.PaymentResult
}

func (e *declinedError) Error() string { return "payment declined: " + e.result.ErrorCode }

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var (
		declined *declinedError
		limited  *hold.RateLimitedError
	)

	switch {
	case errors.As(err, &declined):
		c.JSON(http.StatusPaymentRequired, declined.result)

	case errors.As(err, &limited):
		c.Header("Retry-After", strconv.Itoa(int(limited.RetryAfter.Seconds())+1))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: err.Error()})

	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrHoldNotFound),
		errors.Is(err, domain.ErrEnrollmentNotFound),
		errors.Is(err, domain.ErrWaitlistEntryNotFound),
		errors.Is(err, domain.ErrInvoiceNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: rootMessage(err)})

	case errors.Is(err, domain.ErrInsufficientSeats),
		errors.Is(err, domain.ErrNoSeatAvailable),
		errors.Is(err, domain.ErrHoldNotActive),
		errors.Is(err, domain.ErrHoldExpired),
		errors.Is(err, domain.ErrAttendeeAlreadyEnrolled),
		errors.Is(err, domain.ErrAttendeeAlreadyWaitlisted),
		errors.Is(err, domain.ErrInvoiceAlreadyCredited),
		errors.Is(err, domain.ErrDiscountExists),
		errors.Is(err, domain.ErrConcurrentModification):
		c.JSON(http.StatusConflict, ErrorResponse{Error: rootMessage(err), Code: checkout.FailureCode(err)})

	case errors.Is(err, domain.ErrNoAttendees),
		errors.Is(err, domain.ErrDuplicateAttendee),
		errors.Is(err, domain.ErrInvalidSession):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: rootMessage(err)})

	case errors.Is(err, domain.ErrInvalidDiscountCode),
		errors.Is(err, domain.ErrDiscountInactive),
		errors.Is(err, domain.ErrDiscountNotYetActive),
		errors.Is(err, domain.ErrDiscountExpired),
		errors.Is(err, domain.ErrDiscountNotValidForSession),
		errors.Is(err, domain.ErrDiscountMaxUsage),
		errors.Is(err, domain.ErrMinimumPurchaseNotMet),
		errors.Is(err, domain.ErrAdminReasonRequired),
		errors.Is(err, domain.ErrInvalidDiscountValue):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: rootMessage(err), Code: checkout.FailureCode(err)})

	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

// rootMessage strips the "op:" prefixes services add while wrapping.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
