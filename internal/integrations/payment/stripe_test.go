package payment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/pkg/logger"
)

const testSecret = "whsec_test"

func signed(t *testing.T, payload string) ([]byte, string) {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return sp.Payload, sp.Header
}

func eventPayload(eventType, session string) string {
	return fmt.Sprintf(`{"id":"evt_1","object":"event","api_version":%q,"type":%q,"data":{"object":%s}}`,
		stripe.APIVersion, eventType, session)
}

func newTestStripe() *Stripe {
	return NewStripe(StripeConfig{SecretKey: "sk_test", WebhookSecret: testSecret}, logger.Discard())
}

func TestStripe_ParseWebhook(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		session   string
		want      *domain.PaymentEvent
	}{
		{
			name:      "completed and paid",
			eventType: "checkout.session.completed",
			session:   `{"id":"cs_1","object":"checkout.session","payment_status":"paid","metadata":{"appointment_id":"42"}}`,
			want:      &domain.PaymentEvent{ProviderEventID: "evt_1", AppointmentID: 42, Outcome: domain.PaymentConfirmed},
		},
		{
			name:      "expired falls back to client reference",
			eventType: "checkout.session.expired",
			session:   `{"id":"cs_1","object":"checkout.session","client_reference_id":"7"}`,
			want:      &domain.PaymentEvent{ProviderEventID: "evt_1", AppointmentID: 7, Outcome: domain.PaymentFailed},
		},
		{
			name:      "async payment failed",
			eventType: "checkout.session.async_payment_failed",
			session:   `{"id":"cs_1","object":"checkout.session","metadata":{"appointment_id":"9"}}`,
			want:      &domain.PaymentEvent{ProviderEventID: "evt_1", AppointmentID: 9, Outcome: domain.PaymentFailed},
		},
		{
			name:      "completed but unpaid is ignored",
			eventType: "checkout.session.completed",
			session:   `{"id":"cs_1","object":"checkout.session","payment_status":"unpaid","metadata":{"appointment_id":"42"}}`,
		},
		{
			name:      "unrelated event is ignored",
			eventType: "customer.created",
			session:   `{"id":"cus_1","object":"customer"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, header := signed(t, eventPayload(tt.eventType, tt.session))

			got, err := newTestStripe().ParseWebhook(payload, header)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStripe_ParseWebhook_InvalidSignature(t *testing.T) {
	payload, _ := signed(t, eventPayload("checkout.session.completed", `{"id":"cs_1"}`))

	_, err := newTestStripe().ParseWebhook(payload, "t=1,v1=deadbeef")

	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestStripe_ParseWebhook_MissingAppointment(t *testing.T) {
	payload, header := signed(t, eventPayload("checkout.session.completed",
		`{"id":"cs_1","object":"checkout.session","payment_status":"paid"}`))

	_, err := newTestStripe().ParseWebhook(payload, header)

	require.ErrorIs(t, err, ErrInvalidPayload)
}

func TestStripe_NotConfigured(t *testing.T) {
	s := NewStripe(StripeConfig{}, logger.Discard())

	_, err := s.InitializePayment(context.Background(), &domain.Appointment{ID: 1, Price: 10})
	require.ErrorIs(t, err, ErrNotConfigured)

	_, err = s.ParseWebhook([]byte("{}"), "")
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(4050), toMinorUnits(40.5))
	assert.Equal(t, int64(1999), toMinorUnits(19.99))
	assert.Equal(t, int64(0), toMinorUnits(0))
}
