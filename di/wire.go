//go:build wireinject
// +build wireinject

package di

import (
	"carhive/config"
	"carhive/infras/jwt"
	"carhive/infras/kafka"
	"carhive/infras/otel"
	"carhive/infras/postgres"
	"carhive/infras/redis"
	"carhive/infras/stripe"
	"carhive/internal/events"
	bookingHandler "carhive/internal/handlers/booking"
	paymentHandler "carhive/internal/handlers/payment"
	vehicleHandler "carhive/internal/handlers/vehicle"
	"carhive/shared/cache"
	"carhive/transport/http"
	"carhive/transport/http/middleware"
	"carhive/transport/http/router"

	bookingRepository "carhive/internal/domains/booking/repository"
	bookingService "carhive/internal/domains/booking/service"
	paymentRepository "carhive/internal/domains/payment/repository"
	paymentService "carhive/internal/domains/payment/service"
	vehicleRepository "carhive/internal/domains/vehicle/repository"
	vehicleService "carhive/internal/domains/vehicle/service"

	"github.com/google/wire"
)

var configurations = wire.NewSet(
	config.Get,
)

var infrastructures = wire.NewSet(
	postgres.New,
	otel.New,
	redis.New,
	jwt.New,
	kafka.New,
	stripe.New,
)

var middlewares = wire.NewSet(
	middleware.NewAppMiddleware,
	middleware.NewAuthentication,
)

var sharedHelpers = wire.NewSet(
	cache.NewRedisCache,
	events.NewPublisher,
)

var vehicleDomain = wire.NewSet(
	vehicleRepository.New,
	vehicleService.New,
)

var bookingDomain = wire.NewSet(
	bookingRepository.New,
	bookingService.New,
)

var paymentDomain = wire.NewSet(
	paymentRepository.New,
	paymentService.New,
)

var domains = wire.NewSet(
	vehicleDomain,
	bookingDomain,
	paymentDomain,
)

var routing = wire.NewSet(
	wire.Struct(new(router.DomainHandlers), "*"),
	vehicleHandler.New,
	bookingHandler.New,
	paymentHandler.New,
	router.New,
)

func InitializeService() *http.HTTP {
	wire.Build(
		configurations,
		infrastructures,
		middlewares,
		sharedHelpers,
		domains,
		routing,
		http.New,
	)

	return &http.HTTP{}
}
