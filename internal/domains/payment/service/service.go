package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=./mocks/service_mock.go -package=mocks

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"carhive/config"
	"carhive/infras/otel"
	"carhive/infras/stripe"
	bookingModel "carhive/internal/domains/booking/model"
	bookingService "carhive/internal/domains/booking/service"
	"carhive/internal/domains/payment/model"
	"carhive/internal/domains/payment/model/dto"
	"carhive/internal/domains/payment/repository"
	"carhive/shared"
	"carhive/shared/constant"
	gDto "carhive/shared/dto"
	"carhive/shared/failure"
	gModel "carhive/shared/model"
	"carhive/shared/timezone"
)

type Payment interface {
	Checkout(ctx context.Context, req dto.CheckoutRequest) (dto.CheckoutResponse, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	Refund(ctx context.Context, req dto.RefundRequest) (dto.RefundResponse, error)
	History(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup) (dto.GetPaymentsResponse, error)
}

type serviceImpl struct {
	repo     repository.Payment
	bookings bookingService.Booking
	gateway  stripe.Gateway
	cfg      *config.Config
	otel     otel.Otel
}

func New(repo repository.Payment, bookings bookingService.Booking, gateway stripe.Gateway, cfg *config.Config, otel otel.Otel) Payment {
	return &serviceImpl{
		repo:     repo,
		bookings: bookings,
		gateway:  gateway,
		cfg:      cfg,
		otel:     otel,
	}
}

// Checkout opens a gateway payment attempt for a booking awaiting payment.
// Each call creates a fresh intent; earlier attempts stay on record.
func (s *serviceImpl) Checkout(ctx context.Context, req dto.CheckoutRequest) (res dto.CheckoutResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".payment.Checkout")
	defer scope.End()
	defer scope.TraceIfError(err)

	booking, err := s.bookings.Get(ctx, req.BookingID)
	if err != nil {
		return res, err
	}

	if booking.Status != string(bookingModel.StatusPending) && booking.Status != string(bookingModel.StatusPaymentFailed) {
		return res, failure.Conflict("booking is not awaiting payment") //nolint:wrapcheck
	}

	intent, err := s.gateway.CreateIntent(ctx, booking.TotalAmount, s.cfg.Payment.Currency,
		fmt.Sprintf("booking %s", booking.ID), map[string]string{"booking_id": booking.ID})
	if err != nil {
		log.Error().Err(err).Str("bookingID", booking.ID).Msg("failed to create payment intent")

		return res, fmt.Errorf("failed to create payment intent: %w", err)
	}

	actor, _ := ctx.Value(constant.ContextKeyUserID).(string)

	payment := model.Payment{
		ID:              uuid.NewString(),
		BookingID:       booking.ID,
		RenterID:        booking.RenterID,
		Amount:          booking.TotalAmount,
		Currency:        s.cfg.Payment.Currency,
		GatewayIntentID: intent.ID,
		Status:          model.StatusPending,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  actor,
			ModifiedBy: actor,
		},
	}

	if err = s.repo.Insert(ctx, payment); err != nil {
		log.Error().Err(err).Str("bookingID", booking.ID).Msg("failed to record payment attempt")

		return res, fmt.Errorf("failed to record payment attempt: %w", err)
	}

	return dto.CheckoutResponse{
		PaymentID:    payment.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       payment.Amount,
		Currency:     payment.Currency,
	}, nil
}

// HandleWebhook applies a verified gateway callback. Unknown intents and
// duplicate deliveries are acknowledged without changing state, so the
// gateway never retries them forever.
func (s *serviceImpl) HandleWebhook(ctx context.Context, payload []byte, signature string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".payment.HandleWebhook")
	defer scope.End()
	defer scope.TraceIfError(err)

	event, err := s.gateway.VerifyWebhook(payload, signature)
	if err != nil {
		log.Warn().Err(err).Msg("rejected unverified webhook")

		return err
	}

	switch event.Type {
	case stripe.EventPaymentSucceeded, stripe.EventPaymentFailed:
	default:
		log.Info().Str("eventType", string(event.Type)).Msg("ignoring unhandled webhook event type")

		return nil
	}

	payment, err := s.repo.Get(ctx, filterByIntent(event.IntentID))
	if err != nil {
		log.Error().Err(err).Str("intentID", event.IntentID).Msg("failed to look up payment for webhook")

		return fmt.Errorf("failed to look up payment for webhook: %w", err)
	}

	if payment.ID == constant.Empty {
		log.Warn().Str("intentID", event.IntentID).Msg("webhook for unknown payment intent")

		return nil
	}

	if payment.Status != model.StatusPending {
		log.Info().Str("paymentID", payment.ID).Str("status", string(payment.Status)).Msg("duplicate webhook delivery ignored")

		return nil
	}

	if event.Type == stripe.EventPaymentSucceeded {
		return s.applySuccess(ctx, payment)
	}

	return s.applyFailure(ctx, payment, event.FailureReason)
}

func (s *serviceImpl) applySuccess(ctx context.Context, payment model.Payment) error {
	err := s.bookings.Confirm(ctx, payment.BookingID)
	if err != nil && !failure.IsKind(err, failure.KindInvalidTransition) {
		return err
	}

	updated, err := s.repo.UpdateConditional(ctx, map[string]any{
		model.FieldStatus:        string(model.StatusSucceeded),
		constant.FieldModifiedAt: timezone.Now(),
		constant.FieldModifiedBy: constant.SystemActor,
	}, filterByIDAndStatus(payment.ID, model.StatusPending))
	if err != nil {
		log.Error().Err(err).Str("paymentID", payment.ID).Msg("failed to mark payment succeeded")

		return fmt.Errorf("failed to mark payment succeeded: %w", err)
	}

	if !updated {
		log.Info().Str("paymentID", payment.ID).Msg("payment already settled by a concurrent delivery")
	}

	return nil
}

func (s *serviceImpl) applyFailure(ctx context.Context, payment model.Payment, reason string) error {
	err := s.bookings.MarkPaymentFailed(ctx, payment.BookingID, reason)
	if err != nil && !failure.IsKind(err, failure.KindInvalidTransition) {
		return err
	}

	updated, err := s.repo.UpdateConditional(ctx, map[string]any{
		model.FieldStatus:        string(model.StatusFailed),
		model.FieldFailureReason: reason,
		constant.FieldModifiedAt: timezone.Now(),
		constant.FieldModifiedBy: constant.SystemActor,
	}, filterByIDAndStatus(payment.ID, model.StatusPending))
	if err != nil {
		log.Error().Err(err).Str("paymentID", payment.ID).Msg("failed to mark payment failed")

		return fmt.Errorf("failed to mark payment failed: %w", err)
	}

	if !updated {
		log.Info().Str("paymentID", payment.ID).Msg("payment already settled by a concurrent delivery")
	}

	return nil
}

// Refund sends money back on the latest settled payment for a booking. The
// refunded amount only ever grows and never exceeds the captured amount; a
// full refund also releases the booking dates.
func (s *serviceImpl) Refund(ctx context.Context, req dto.RefundRequest) (res dto.RefundResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".payment.Refund")
	defer scope.End()
	defer scope.TraceIfError(err)

	payment, err := s.latestSettledForBooking(ctx, req.BookingID)
	if err != nil {
		return res, err
	}

	if !payment.Refundable() {
		return res, failure.Conflict("payment has nothing left to refund") //nolint:wrapcheck
	}

	amount := req.Amount
	if amount == 0 {
		amount = payment.Remaining()
	}

	if amount > payment.Remaining() {
		return res, failure.BadRequestFromString("refund exceeds the amount still captured") //nolint:wrapcheck
	}

	refundID, err := s.gateway.Refund(ctx, payment.GatewayIntentID, amount, req.Reason)
	if err != nil {
		log.Error().Err(err).Str("paymentID", payment.ID).Msg("failed to refund payment")

		return res, fmt.Errorf("failed to refund payment: %w", err)
	}

	newRefunded := payment.RefundedAmount + amount
	full := newRefunded == payment.Amount

	// A partially refunded payment stays succeeded; only full coverage moves
	// it to refunded.
	status := model.StatusSucceeded
	if full {
		status = model.StatusRefunded
	}

	updated, err := s.repo.UpdateConditional(ctx, map[string]any{
		model.FieldStatus:         string(status),
		model.FieldRefundedAmount: newRefunded,
		constant.FieldModifiedAt:  timezone.Now(),
		constant.FieldModifiedBy:  constant.SystemActor,
	}, filterByIDAndRefunded(payment.ID, payment.RefundedAmount))
	if err != nil {
		log.Error().Err(err).Str("paymentID", payment.ID).Msg("failed to record refund")

		return res, fmt.Errorf("failed to record refund: %w", err)
	}

	if !updated {
		return res, failure.StaleState(model.EntityName) //nolint:wrapcheck
	}

	if err = s.bookings.ApplyRefund(ctx, payment.BookingID, newRefunded, full); err != nil {
		return res, err
	}

	return dto.RefundResponse{
		RefundID:       refundID,
		RefundedAmount: newRefunded,
		Full:           full,
	}, nil
}

func (s *serviceImpl) History(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetPaymentsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".payment.History")
	defer scope.End()
	defer scope.TraceIfError(err)

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count payments")

		return res, fmt.Errorf("failed to count payments: %w", err)
	}

	models, err := s.repo.GetAll(ctx, params, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get payments")

		return res, fmt.Errorf("failed to get payments: %w", err)
	}

	res.FromModels(models, total, params.Limit)

	return res, nil
}

// latestSettledForBooking finds the newest payment that actually captured
// money. A booking can accumulate pending or failed attempts newer than the
// settled one; those must never shadow the row holding the captured amount.
func (s *serviceImpl) latestSettledForBooking(ctx context.Context, bookingID string) (model.Payment, error) {
	filter := shared.FilterByID(bookingID, model.FieldBookingID, model.TableName)
	filter.Filters = append(filter.Filters, gDto.Filter{
		Field:    model.FieldStatus,
		Value:    []string{string(model.StatusSucceeded), string(model.StatusRefunded)},
		Operator: gDto.FilterOperatorIn,
		Table:    model.TableName,
	})

	payments, err := s.repo.GetAll(ctx, gDto.QueryParams{
		Limit:   1,
		SortBy:  constant.FieldCreatedAt,
		SortDir: gDto.SortDirDesc,
	}, filter)
	if err != nil {
		log.Error().Err(err).Str("bookingID", bookingID).Msg("failed to get payment for booking")

		return model.Payment{}, fmt.Errorf("failed to get payment for booking: %w", err)
	}

	if len(payments) == 0 {
		return model.Payment{}, failure.NotFound("payment not found") //nolint:wrapcheck
	}

	return payments[0], nil
}

func filterByIntent(intentID string) gDto.FilterGroup {
	return shared.FilterByID(intentID, model.FieldGatewayIntentID, model.TableName)
}

func filterByIDAndStatus(id string, status model.Status) gDto.FilterGroup {
	return gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{Field: model.FieldID, Value: id, Operator: gDto.FilterOperatorEq, Table: model.TableName},
			gDto.Filter{Field: model.FieldStatus, Value: string(status), Operator: gDto.FilterOperatorEq, Table: model.TableName},
		},
	}
}

func filterByIDAndRefunded(id string, refunded int64) gDto.FilterGroup {
	return gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{Field: model.FieldID, Value: id, Operator: gDto.FilterOperatorEq, Table: model.TableName},
			gDto.Filter{Field: model.FieldRefundedAmount, Value: refunded, Operator: gDto.FilterOperatorEq, Table: model.TableName},
		},
	}
}
