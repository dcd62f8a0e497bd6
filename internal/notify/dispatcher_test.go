package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	EventBus "github.com/asaskevich/EventBus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/webshop/config"
	"github.com/talkincode/webshop/internal/auth"
	"github.com/talkincode/webshop/internal/domain"
	"github.com/talkincode/webshop/internal/shop"
)

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

type fakeRecipients map[int64]*domain.User

func (f fakeRecipients) GetByID(_ context.Context, id int64) (*domain.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

func newDispatcher(t *testing.T) (*Dispatcher, *fakeMailer, EventBus.Bus) {
	t.Helper()
	mailer := &fakeMailer{}
	users := fakeRecipients{7: {ID: 7, Email: "buyer@example.com", FullName: "Buyer <b>"}}
	d, err := NewDispatcher(mailer, users, 2)
	require.NoError(t, err)
	t.Cleanup(d.Release)

	bus := EventBus.New()
	require.NoError(t, d.Subscribe(bus))
	return d, mailer, bus
}

func TestOrderEventsBecomeMail(t *testing.T) {
	d, mailer, bus := newDispatcher(t)

	bus.Publish(shop.TopicOrderPlaced, shop.OrderEvent{OrderId: 11, UserId: 7, Status: domain.OrderStatusPlaced, Total: decimal.NewFromInt(18)})
	bus.Publish(shop.TopicOrderCanceled, shop.OrderEvent{OrderId: 11, UserId: 7, Status: domain.OrderStatusCanceled, Total: decimal.NewFromInt(18)})
	d.Wait()

	require.Len(t, mailer.sent, 2)
	subjects := []string{mailer.sent[0].subject, mailer.sent[1].subject}
	assert.ElementsMatch(t, []string{"Order #11 confirmed", "Order #11 canceled"}, subjects)
	for _, m := range mailer.sent {
		assert.Equal(t, "buyer@example.com", m.to)
		assert.Contains(t, m.body, "18.00")
		assert.Contains(t, m.body, "Buyer &lt;b&gt;")
	}
}

func TestUnknownRecipientIsSkipped(t *testing.T) {
	d, mailer, bus := newDispatcher(t)

	bus.Publish(shop.TopicOrderStatus, shop.OrderEvent{OrderId: 3, UserId: 99, Status: domain.OrderStatusShipped})
	d.Wait()

	assert.Empty(t, mailer.sent)
}

func TestWelcomeMail(t *testing.T) {
	d, mailer, bus := newDispatcher(t)

	bus.Publish(auth.TopicUserRegistered, auth.UserEvent{UserId: 1, Email: "new@example.com", FullName: "New"})
	d.Wait()

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "Welcome to WebShop", mailer.sent[0].subject)
	assert.Contains(t, mailer.sent[0].body, "new@example.com")
}

func TestNewMailerFallsBackToLog(t *testing.T) {
	_, ok := NewMailer(config.SmtpConfig{}).(LogMailer)
	assert.True(t, ok)

	_, ok = NewMailer(config.SmtpConfig{Host: "smtp.example.com", Port: 587}).(*SMTPMailer)
	assert.True(t, ok)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "18.00", formatAmount(decimal.NewFromInt(18)))
	assert.Equal(t, "1,234.50", formatAmount(decimal.RequireFromString("1234.5")))
}
