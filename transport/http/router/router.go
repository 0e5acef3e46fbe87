package router

import (
	"github.com/go-chi/chi/v5"

	"carhive/internal/handlers/booking"
	"carhive/internal/handlers/payment"
	"carhive/internal/handlers/vehicle"
)

type DomainHandlers struct {
	Vehicle vehicle.Handler
	Booking booking.Handler
	Payment payment.Handler
}

type Router struct {
	DomainHandlers DomainHandlers
}

func (r *Router) SetupRoutes(router chi.Router) {
	router.Route("/v1", func(routerGroup chi.Router) {
		r.DomainHandlers.Vehicle.Router(routerGroup)
		r.DomainHandlers.Booking.Router(routerGroup)
		r.DomainHandlers.Payment.Router(routerGroup)
	})
}

func New(domainHandlers DomainHandlers) Router {
	return Router{
		DomainHandlers: domainHandlers,
	}
}
