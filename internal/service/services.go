package service

import (
	"log/slog"

	"github.com/kirinyoku/seatflow/internal/clock"
	"github.com/kirinyoku/seatflow/internal/events"
	"github.com/kirinyoku/seatflow/internal/payment"
	"github.com/kirinyoku/seatflow/internal/repository"
	redisrepo "github.com/kirinyoku/seatflow/internal/repository/redis"
	"github.com/kirinyoku/seatflow/internal/service/admin"
	"github.com/kirinyoku/seatflow/internal/service/checkout"
	"github.com/kirinyoku/seatflow/internal/service/hold"
	"github.com/kirinyoku/seatflow/internal/service/ledger"
	"github.com/kirinyoku/seatflow/internal/service/pricing"
	"github.com/kirinyoku/seatflow/internal/service/query"
	"github.com/kirinyoku/seatflow/internal/service/waitlist"
	"github.com/kirinyoku/seatflow/internal/uow"
)

type Services struct {
	Ledger   *ledger.Service
	Holds    *hold.Service
	Waitlist *waitlist.Service
	Pricing  *pricing.Service
	Checkout *checkout.Service
	Query    *query.Service
	Admin    *admin.Service
}

type Config struct {
	UoW      uow.Config
	Hold     hold.Config
	Checkout checkout.Config
	Query    query.Config
}

// Deps are the collaborators shared by every service. Cache, Limiter and
// Publisher may be nil.
type Deps struct {
	Store     repository.Store
	Cache     *redisrepo.Cache
	Limiter   hold.RateLimiter
	Publisher events.Publisher
	Gateway   payment.Gateway
	Clock     clock.Clock
	Logger    *slog.Logger
}

func NewServices(deps Deps, cfg Config) *Services {
	if deps.Clock == nil {
		deps.Clock = clock.NewSystem()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.Nop{}
	}

	u := uow.New(deps.Store, cfg.UoW, deps.Logger)

	l := ledger.New(u, deps.Logger.With(slog.String("service", "ledger")))
	wl := waitlist.New(u, l, deps.Publisher, deps.Clock, deps.Logger.With(slog.String("service", "waitlist")))
	p := pricing.New(u, deps.Clock)

	return &Services{
		Ledger:   l,
		Holds:    hold.New(u, l, wl, deps.Limiter, deps.Publisher, deps.Clock, deps.Logger.With(slog.String("service", "hold")), cfg.Hold),
		Waitlist: wl,
		Pricing:  p,
		Checkout: checkout.New(u, l, p, deps.Gateway, wl, deps.Publisher, deps.Clock, deps.Logger.With(slog.String("service", "checkout")), cfg.Checkout),
		Query:    query.New(u, l, deps.Cache, cfg.Query),
		Admin:    admin.New(u, deps.Publisher, deps.Clock, deps.Logger.With(slog.String("service", "admin"))),
	}
}
