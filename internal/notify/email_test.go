package notify

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/cartmax/backend-store/internal/db"
	"github.com/cartmax/backend-store/internal/events"
)

type capturedMail struct {
	to      string
	subject string
	body    string
}

type stubSender struct {
	sent []capturedMail
}

func (s *stubSender) Send(to, subject, body string) error {
	s.sent = append(s.sent, capturedMail{to: to, subject: subject, body: body})
	return nil
}

func event(topic string, payload string) db.DomainEvent {
	return db.DomainEvent{
		Topic:      topic,
		Payload:    []byte(payload),
		OccurredAt: pgtype.Timestamptz{Time: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), Valid: true},
	}
}

func TestNotifySendsCouponRaceLostNote(t *testing.T) {
	sender := &stubSender{}
	n := EmailNotifier{Mail: sender, Enabled: true}

	err := n.Notify(context.Background(), event(events.TopicCouponRaceLost,
		`{"email":"shopper@example.com","orderId":"ord-1","note":"coupon SAVE10 was not applied: usage limit reached"}`))
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	require.Equal(t, "shopper@example.com", sender.sent[0].to)
	require.Equal(t, "Update about your coupon", sender.sent[0].subject)
	require.Contains(t, sender.sent[0].body, "SAVE10 was not applied")
}

func TestNotifySkipsWithoutRecipient(t *testing.T) {
	sender := &stubSender{}
	n := EmailNotifier{Mail: sender, Enabled: true}

	err := n.Notify(context.Background(), event(events.TopicOrderCreated, `{"orderId":"ord-1"}`))
	require.NoError(t, err)
	require.Empty(t, sender.sent)
}

func TestNotifyHonoursTopicToggle(t *testing.T) {
	sender := &stubSender{}
	n := EmailNotifier{
		Mail:         sender,
		Enabled:      true,
		TopicToggles: map[string]bool{events.TopicCouponRedeemed: false},
	}

	err := n.Notify(context.Background(), event(events.TopicCouponRedeemed, `{"email":"a@b.c"}`))
	require.NoError(t, err)
	require.Empty(t, sender.sent)
}
