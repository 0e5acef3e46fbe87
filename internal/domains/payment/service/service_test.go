package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"carhive/config"
	otelMocks "carhive/infras/otel/mocks"
	"carhive/infras/stripe"
	stripeMocks "carhive/infras/stripe/mocks"
	bookingDto "carhive/internal/domains/booking/model/dto"
	bookingMocks "carhive/internal/domains/booking/service/mocks"
	paymentMocks "carhive/internal/domains/payment/mocks"
	"carhive/internal/domains/payment/model"
	"carhive/internal/domains/payment/model/dto"
	"carhive/internal/domains/payment/service"
	"carhive/shared/constant"
	gDto "carhive/shared/dto"
	"carhive/shared/failure"
)

type fixture struct {
	repo     *paymentMocks.MockPayment
	bookings *bookingMocks.MockBooking
	gateway  *stripeMocks.MockGateway
	svc      service.Payment
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)

	cfg := &config.Config{}
	cfg.Payment.Currency = "usd"

	f := &fixture{
		repo:     paymentMocks.NewMockPayment(ctrl),
		bookings: bookingMocks.NewMockBooking(ctrl),
		gateway:  stripeMocks.NewMockGateway(ctrl),
	}

	f.svc = service.New(f.repo, f.bookings, f.gateway, cfg, otelMocks.NewOtel())

	return f
}

func renterContext() context.Context {
	ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, "renter-1")

	return context.WithValue(ctx, constant.ContextKeyUserRole, constant.RoleUser)
}

func pendingBookingResponse() bookingDto.BookingResponse {
	return bookingDto.BookingResponse{
		ID:          "4f2b8a1c-6d3e-4a5b-9c7d-0e1f2a3b4c5d",
		RenterID:    "renter-1",
		TotalAmount: 16000,
		Status:      "pending",
	}
}

func settledPayment() model.Payment {
	return model.Payment{
		ID:              "payment-1",
		BookingID:       "booking-1",
		RenterID:        "renter-1",
		Amount:          16000,
		Currency:        "usd",
		GatewayIntentID: "pi_123",
		Status:          model.StatusSucceeded,
	}
}

func TestCheckout(t *testing.T) {
	ctx := renterContext()

	t.Run("opens an intent and records the attempt", func(t *testing.T) {
		f := newFixture(t)
		booking := pendingBookingResponse()

		f.bookings.EXPECT().Get(ctx, booking.ID).Return(booking, nil)
		f.gateway.EXPECT().CreateIntent(ctx, int64(16000), "usd", gomock.Any(), map[string]string{"booking_id": booking.ID}).
			Return(stripe.Intent{ID: "pi_123", ClientSecret: "pi_123_secret"}, nil)
		f.repo.EXPECT().Insert(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, payment model.Payment) error {
				assert.Equal(t, booking.ID, payment.BookingID)
				assert.Equal(t, "renter-1", payment.RenterID)
				assert.Equal(t, int64(16000), payment.Amount)
				assert.Equal(t, "pi_123", payment.GatewayIntentID)
				assert.Equal(t, model.StatusPending, payment.Status)

				return nil
			})

		res, err := f.svc.Checkout(ctx, dto.CheckoutRequest{BookingID: booking.ID})

		require.NoError(t, err)
		assert.Equal(t, "pi_123_secret", res.ClientSecret)
		assert.Equal(t, int64(16000), res.Amount)
	})

	t.Run("retry after a failed attempt is allowed", func(t *testing.T) {
		f := newFixture(t)
		booking := pendingBookingResponse()
		booking.Status = "payment_failed"

		f.bookings.EXPECT().Get(ctx, booking.ID).Return(booking, nil)
		f.gateway.EXPECT().CreateIntent(ctx, int64(16000), "usd", gomock.Any(), gomock.Any()).
			Return(stripe.Intent{ID: "pi_456", ClientSecret: "pi_456_secret"}, nil)
		f.repo.EXPECT().Insert(ctx, gomock.Any()).Return(nil)

		_, err := f.svc.Checkout(ctx, dto.CheckoutRequest{BookingID: booking.ID})

		assert.NoError(t, err)
	})

	t.Run("confirmed booking is not payable again", func(t *testing.T) {
		f := newFixture(t)
		booking := pendingBookingResponse()
		booking.Status = "confirmed"

		f.bookings.EXPECT().Get(ctx, booking.ID).Return(booking, nil)

		_, err := f.svc.Checkout(ctx, dto.CheckoutRequest{BookingID: booking.ID})

		assert.True(t, failure.IsKind(err, failure.KindConflict))
	})
}

func TestHandleWebhook(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`{"id":"evt_1"}`)
	signature := "t=1,v1=abc"

	t.Run("success event confirms the booking", func(t *testing.T) {
		f := newFixture(t)
		payment := settledPayment()
		payment.Status = model.StatusPending

		f.gateway.EXPECT().VerifyWebhook(payload, signature).
			Return(stripe.Event{ID: "evt_1", Type: stripe.EventPaymentSucceeded, IntentID: "pi_123"}, nil)
		f.repo.EXPECT().Get(ctx, gomock.Any()).Return(payment, nil)
		f.bookings.EXPECT().Confirm(ctx, payment.BookingID).Return(nil)
		f.repo.EXPECT().UpdateConditional(ctx, gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, mod map[string]any, _ gDto.FilterGroup) (bool, error) {
				assert.Equal(t, string(model.StatusSucceeded), mod[model.FieldStatus])

				return true, nil
			})

		assert.NoError(t, f.svc.HandleWebhook(ctx, payload, signature))
	})

	t.Run("failure event marks the booking payment_failed", func(t *testing.T) {
		f := newFixture(t)
		payment := settledPayment()
		payment.Status = model.StatusPending

		f.gateway.EXPECT().VerifyWebhook(payload, signature).
			Return(stripe.Event{ID: "evt_2", Type: stripe.EventPaymentFailed, IntentID: "pi_123", FailureReason: "card declined"}, nil)
		f.repo.EXPECT().Get(ctx, gomock.Any()).Return(payment, nil)
		f.bookings.EXPECT().MarkPaymentFailed(ctx, payment.BookingID, "card declined").Return(nil)
		f.repo.EXPECT().UpdateConditional(ctx, gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, mod map[string]any, _ gDto.FilterGroup) (bool, error) {
				assert.Equal(t, string(model.StatusFailed), mod[model.FieldStatus])
				assert.Equal(t, "card declined", mod[model.FieldFailureReason])

				return true, nil
			})

		assert.NoError(t, f.svc.HandleWebhook(ctx, payload, signature))
	})

	t.Run("unverified payload is rejected without state changes", func(t *testing.T) {
		f := newFixture(t)

		f.gateway.EXPECT().VerifyWebhook(payload, signature).
			Return(stripe.Event{}, failure.GatewayVerification("webhook signature verification failed"))

		err := f.svc.HandleWebhook(ctx, payload, signature)

		assert.True(t, failure.IsKind(err, failure.KindGatewayVerification))
	})

	t.Run("unknown intent is acknowledged", func(t *testing.T) {
		f := newFixture(t)

		f.gateway.EXPECT().VerifyWebhook(payload, signature).
			Return(stripe.Event{ID: "evt_3", Type: stripe.EventPaymentSucceeded, IntentID: "pi_unknown"}, nil)
		f.repo.EXPECT().Get(ctx, gomock.Any()).Return(model.Payment{}, nil)

		assert.NoError(t, f.svc.HandleWebhook(ctx, payload, signature))
	})

	t.Run("duplicate delivery is acknowledged without reapplying", func(t *testing.T) {
		f := newFixture(t)
		payment := settledPayment()

		f.gateway.EXPECT().VerifyWebhook(payload, signature).
			Return(stripe.Event{ID: "evt_1", Type: stripe.EventPaymentSucceeded, IntentID: "pi_123"}, nil)
		f.repo.EXPECT().Get(ctx, gomock.Any()).Return(payment, nil)

		assert.NoError(t, f.svc.HandleWebhook(ctx, payload, signature))
	})

	t.Run("unhandled event types are ignored", func(t *testing.T) {
		f := newFixture(t)

		f.gateway.EXPECT().VerifyWebhook(payload, signature).
			Return(stripe.Event{ID: "evt_4", Type: "charge.updated"}, nil)

		assert.NoError(t, f.svc.HandleWebhook(ctx, payload, signature))
	})
}

func TestRefund(t *testing.T) {
	ctx := context.Background()

	t.Run("full refund releases the booking", func(t *testing.T) {
		f := newFixture(t)
		payment := settledPayment()

		f.repo.EXPECT().GetAll(ctx, gomock.Any(), gomock.Any()).Return([]model.Payment{payment}, nil)
		f.gateway.EXPECT().Refund(ctx, "pi_123", int64(16000), "weather cancellation").Return("re_1", nil)
		f.repo.EXPECT().UpdateConditional(ctx, gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, mod map[string]any, _ gDto.FilterGroup) (bool, error) {
				assert.Equal(t, string(model.StatusRefunded), mod[model.FieldStatus])
				assert.Equal(t, int64(16000), mod[model.FieldRefundedAmount])

				return true, nil
			})
		f.bookings.EXPECT().ApplyRefund(ctx, payment.BookingID, int64(16000), true).Return(nil)

		res, err := f.svc.Refund(ctx, dto.RefundRequest{BookingID: payment.BookingID, Reason: "weather cancellation"})

		require.NoError(t, err)
		assert.Equal(t, "re_1", res.RefundID)
		assert.True(t, res.Full)
	})

	t.Run("partial refund keeps the booking settled", func(t *testing.T) {
		f := newFixture(t)
		payment := settledPayment()

		f.repo.EXPECT().GetAll(ctx, gomock.Any(), gomock.Any()).Return([]model.Payment{payment}, nil)
		f.gateway.EXPECT().Refund(ctx, "pi_123", int64(4000), "").Return("re_2", nil)
		f.repo.EXPECT().UpdateConditional(ctx, gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, mod map[string]any, _ gDto.FilterGroup) (bool, error) {
				assert.Equal(t, string(model.StatusSucceeded), mod[model.FieldStatus])
				assert.Equal(t, int64(4000), mod[model.FieldRefundedAmount])

				return true, nil
			})
		f.bookings.EXPECT().ApplyRefund(ctx, payment.BookingID, int64(4000), false).Return(nil)

		res, err := f.svc.Refund(ctx, dto.RefundRequest{BookingID: payment.BookingID, Amount: 4000})

		require.NoError(t, err)
		assert.False(t, res.Full)
	})

	t.Run("lookup skips attempts that never captured money", func(t *testing.T) {
		f := newFixture(t)
		payment := settledPayment()

		f.repo.EXPECT().GetAll(ctx, gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, params gDto.QueryParams, filter gDto.FilterGroup, _ ...string) ([]model.Payment, error) {
				_, args := filter.GetWhereClause()
				assert.Equal(t, payment.BookingID, args[model.FieldBookingID])
				assert.Equal(t, string(model.StatusSucceeded), args[model.FieldStatus+"_0"])
				assert.Equal(t, string(model.StatusRefunded), args[model.FieldStatus+"_1"])
				assert.Equal(t, gDto.SortDirDesc, params.SortDir)

				return []model.Payment{payment}, nil
			})
		f.gateway.EXPECT().Refund(ctx, "pi_123", int64(16000), "").Return("re_4", nil)
		f.repo.EXPECT().UpdateConditional(ctx, gomock.Any(), gomock.Any()).Return(true, nil)
		f.bookings.EXPECT().ApplyRefund(ctx, payment.BookingID, int64(16000), true).Return(nil)

		res, err := f.svc.Refund(ctx, dto.RefundRequest{BookingID: payment.BookingID})

		require.NoError(t, err)
		assert.True(t, res.Full)
	})

	t.Run("refund cannot exceed the captured amount", func(t *testing.T) {
		f := newFixture(t)
		payment := settledPayment()
		payment.RefundedAmount = 12000

		f.repo.EXPECT().GetAll(ctx, gomock.Any(), gomock.Any()).Return([]model.Payment{payment}, nil)

		_, err := f.svc.Refund(ctx, dto.RefundRequest{BookingID: payment.BookingID, Amount: 5000})

		assert.True(t, failure.IsKind(err, failure.KindValidation))
	})

	t.Run("fully refunded payment cannot refund again", func(t *testing.T) {
		f := newFixture(t)
		payment := settledPayment()
		payment.Status = model.StatusRefunded
		payment.RefundedAmount = payment.Amount

		f.repo.EXPECT().GetAll(ctx, gomock.Any(), gomock.Any()).Return([]model.Payment{payment}, nil)

		_, err := f.svc.Refund(ctx, dto.RefundRequest{BookingID: payment.BookingID})

		assert.True(t, failure.IsKind(err, failure.KindConflict))
	})

	t.Run("booking without payments yields not found", func(t *testing.T) {
		f := newFixture(t)

		f.repo.EXPECT().GetAll(ctx, gomock.Any(), gomock.Any()).Return(nil, nil)

		_, err := f.svc.Refund(ctx, dto.RefundRequest{BookingID: "booking-9"})

		assert.True(t, failure.IsKind(err, failure.KindNotFound))
	})

	t.Run("lost refund race yields stale state", func(t *testing.T) {
		f := newFixture(t)
		payment := settledPayment()

		f.repo.EXPECT().GetAll(ctx, gomock.Any(), gomock.Any()).Return([]model.Payment{payment}, nil)
		f.gateway.EXPECT().Refund(ctx, "pi_123", int64(16000), "").Return("re_3", nil)
		f.repo.EXPECT().UpdateConditional(ctx, gomock.Any(), gomock.Any()).Return(false, nil)

		_, err := f.svc.Refund(ctx, dto.RefundRequest{BookingID: payment.BookingID})

		assert.True(t, failure.IsKind(err, failure.KindStaleState))
	})
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	ctx := renterContext()
	params := gDto.QueryParams{Page: 1, Limit: 10}

	f.repo.EXPECT().Count(ctx, gomock.Any()).Return(2, nil)
	f.repo.EXPECT().GetAll(ctx, params, gomock.Any()).
		Return([]model.Payment{settledPayment(), settledPayment()}, nil)

	res, err := f.svc.History(ctx, params, gDto.FilterGroup{})

	require.NoError(t, err)
	assert.Len(t, res.Payments, 2)
	assert.Equal(t, 2, res.TotalData)
}
