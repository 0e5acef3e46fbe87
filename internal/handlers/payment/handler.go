package payment

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"carhive/infras/otel"
	"carhive/internal/domains/payment/model"
	"carhive/internal/domains/payment/model/dto"
	"carhive/internal/domains/payment/service"
	"carhive/shared/constant"
	gDto "carhive/shared/dto"
	"carhive/shared/failure"
	"carhive/shared/validator"
	"carhive/transport/http/middleware"
	"carhive/transport/http/response"
)

type Handler struct {
	service service.Payment
	auth    *middleware.Authentication
	otel    otel.Otel
}

func New(service service.Payment, auth *middleware.Authentication, otel otel.Otel) Handler {
	return Handler{
		service: service,
		auth:    auth,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/payments", func(routerGroup chi.Router) {
		// The webhook authenticates by signature, not by bearer token.
		routerGroup.Post("/webhook", handler.Webhook)

		routerGroup.Group(func(authenticated chi.Router) {
			authenticated.Use(handler.auth.Authenticated)
			authenticated.Post("/checkout", handler.Checkout)
			authenticated.Get("/history", handler.History)

			authenticated.Group(func(admin chi.Router) {
				admin.Use(handler.auth.RequireRole(constant.RoleAdmin))
				admin.Post("/refund", handler.RefundPayment)
			})
		})
	})
}

// Checkout opens a payment attempt for a booking.
// @Summary Checkout a booking
// @Description Create a gateway payment intent for a booking awaiting payment and return the client secret.
// @Tags Payment
// @Accept json
// @Produce json
// @Param request body dto.CheckoutRequest true "Checkout Request"
// @Success 201 {object} response.Data[dto.CheckoutResponse] "Payment attempt opened"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error "Booking is not awaiting payment"
// @Failure 500 {object} response.Error
// @Router /v1/payments/checkout [post]
// @Security BearerAuth
func (handler *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".Checkout")
	defer scope.End()

	req := dto.CheckoutRequest{}

	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	checkout, err := handler.service.Checkout(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to checkout booking")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Payment attempt opened for booking " + req.BookingID)

	response.WithJSON(w, http.StatusCreated, checkout)
}

// Webhook receives gateway callbacks.
// @Summary Payment gateway webhook
// @Description Apply a signed gateway event. Unverified payloads are rejected; duplicates are acknowledged without effect.
// @Tags Payment
// @Accept json
// @Produce json
// @Success 200 {object} response.Message "Event processed"
// @Failure 400 {object} response.Error "Signature verification failed"
// @Failure 500 {object} response.Error
// @Router /v1/payments/webhook [post]
func (handler *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".Webhook")
	defer scope.End()

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to read webhook payload")

		response.WithError(w, failure.BadRequestFromString("failed to read request body"))

		return
	}

	signature := r.Header.Get(constant.RequestHeaderStripeSignature)

	if err := handler.service.HandleWebhook(ctx, payload, signature); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to handle webhook")

		response.WithError(w, err)

		return
	}

	response.WithMessage(w, http.StatusOK, "Event processed")
}

// RefundPayment refunds a settled booking payment.
// @Summary Refund a payment
// @Description Refund part or all of the captured amount for a booking. A full refund releases the booking dates. Admin only.
// @Tags Payment
// @Accept json
// @Produce json
// @Param request body dto.RefundRequest true "Refund Request"
// @Success 200 {object} response.Data[dto.RefundResponse] "Refund applied"
// @Failure 400 {object} response.Error "Refund exceeds the captured amount"
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error "Nothing left to refund or concurrent update"
// @Failure 500 {object} response.Error
// @Router /v1/payments/refund [post]
// @Security BearerAuth
func (handler *Handler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".RefundPayment")
	defer scope.End()

	req := dto.RefundRequest{}

	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	refund, err := handler.service.Refund(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to refund payment")

		response.WithError(w, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Payment refunded successfully by user " + user)

	response.WithJSON(w, http.StatusOK, refund)
}

// History lists payment attempts.
// @Summary Get payment history
// @Description List payment attempts with pagination. Renters see their own; admins see everything.
// @Tags Payment
// @Accept json
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param booking_id query string false "Filter by booking ID"
// @Param status query string false "Filter by status"
// @Success 200 {object} response.Data[dto.GetPaymentsResponse] "List of payments"
// @Failure 401 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/payments/history [get]
// @Security BearerAuth
func (handler *Handler) History(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".History")
	defer scope.End()

	userID, ok := ctx.Value(constant.ContextKeyUserID).(string)
	if !ok || userID == "" {
		log.Error().Msg("failed to get user ID from context")
		response.WithError(w, failure.Unauthorized("unauthorized"))

		return
	}

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	filterGroup := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters:  []any{},
	}

	if bookingID := r.URL.Query().Get(model.FieldBookingID); bookingID != "" {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldBookingID,
			Operator: gDto.FilterOperatorEq,
			Value:    bookingID,
			Table:    model.TableName,
		})
	}

	if status := r.URL.Query().Get(model.FieldStatus); status != "" {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldStatus,
			Operator: gDto.FilterOperatorEq,
			Value:    status,
			Table:    model.TableName,
		})
	}

	role, _ := ctx.Value(constant.ContextKeyUserRole).(string)
	if role != constant.RoleAdmin {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldRenterID,
			Operator: gDto.FilterOperatorEq,
			Value:    userID,
			Table:    model.TableName,
		})
	}

	payments, err := handler.service.History(ctx, queryParams, filterGroup)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get payment history")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Payment history retrieved successfully for user " + userID)

	response.WithJSON(w, http.StatusOK, payments)
}
