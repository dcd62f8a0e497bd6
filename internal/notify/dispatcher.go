package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sync"
	"time"

	EventBus "github.com/asaskevich/EventBus"
	"github.com/panjf2000/ants/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/talkincode/webshop/internal/auth"
	"github.com/talkincode/webshop/internal/domain"
	"github.com/talkincode/webshop/internal/shop"
)

// Recipients resolves the user an event refers to.
type Recipients interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

var mailTemplates = template.Must(template.New("mail").Parse(`
{{define "order"}}<p>Hello {{.Name}},</p>
<p>{{.Headline}}</p>
<p>Order #{{.OrderId}} &middot; status {{.Status}} &middot; total {{.Total}}</p>
<p>Thank you for shopping with us.</p>{{end}}
{{define "welcome"}}<p>Hello {{.Name}},</p>
<p>Your account {{.Email}} is ready. Happy shopping!</p>{{end}}
`))

var amountPrinter = message.NewPrinter(language.English)

// formatAmount renders money with two decimals and thousands separators.
func formatAmount(d decimal.Decimal) string {
	return amountPrinter.Sprintf("%.2f", d.Round(2).InexactFloat64())
}

// Dispatcher turns domain events into mails. Events are handled on the
// publisher's goroutine only long enough to queue delivery on the pool.
type Dispatcher struct {
	pool    *ants.Pool
	mailer  Mailer
	users   Recipients
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(mailer Mailer, users Recipients, workers int) (*Dispatcher, error) {
	if workers <= 0 {
		workers = 8
	}
	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(p interface{}) {
		zap.L().Error("mail worker panic", zap.Any("panic", p), zap.String("namespace", "notify"))
	}))
	if err != nil {
		return nil, err
	}
	return &Dispatcher{pool: pool, mailer: mailer, users: users, timeout: 10 * time.Second}, nil
}

func (d *Dispatcher) Subscribe(bus EventBus.Bus) error {
	handlers := map[string]interface{}{
		shop.TopicOrderPlaced:    d.onOrderPlaced,
		shop.TopicOrderCanceled:  d.onOrderCanceled,
		shop.TopicOrderStatus:    d.onOrderStatus,
		auth.TopicUserRegistered: d.onUserRegistered,
	}
	for topic, fn := range handlers {
		if err := bus.Subscribe(topic, fn); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}

func (d *Dispatcher) onOrderPlaced(evt shop.OrderEvent) {
	d.orderMail(evt, fmt.Sprintf("Order #%d confirmed", evt.OrderId), "We received your order.")
}

func (d *Dispatcher) onOrderCanceled(evt shop.OrderEvent) {
	d.orderMail(evt, fmt.Sprintf("Order #%d canceled", evt.OrderId), "Your order was canceled.")
}

func (d *Dispatcher) onOrderStatus(evt shop.OrderEvent) {
	d.orderMail(evt, fmt.Sprintf("Order #%d is now %s", evt.OrderId, evt.Status), "Your order status changed.")
}

func (d *Dispatcher) onUserRegistered(evt auth.UserEvent) {
	d.submit(func() {
		body, err := render("welcome", map[string]interface{}{"Name": evt.FullName, "Email": evt.Email})
		if err != nil {
			zap.L().Error("render welcome mail", zap.Error(err), zap.String("namespace", "notify"))
			return
		}
		d.deliver(evt.Email, "Welcome to WebShop", body)
	})
}

func (d *Dispatcher) orderMail(evt shop.OrderEvent, subject, headline string) {
	d.submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		user, err := d.users.GetByID(ctx, evt.UserId)
		if err != nil {
			zap.L().Warn("order mail recipient lookup failed",
				zap.Int64("order_id", evt.OrderId),
				zap.Int64("user_id", evt.UserId),
				zap.Error(err),
				zap.String("namespace", "notify"))
			return
		}
		body, err := render("order", map[string]interface{}{
			"Name":     user.FullName,
			"Headline": headline,
			"OrderId":  evt.OrderId,
			"Status":   evt.Status,
			"Total":    formatAmount(evt.Total),
		})
		if err != nil {
			zap.L().Error("render order mail", zap.Error(err), zap.String("namespace", "notify"))
			return
		}
		d.deliver(user.Email, subject, body)
	})
}

func (d *Dispatcher) deliver(to, subject, body string) {
	if err := d.mailer.Send(to, subject, body); err != nil {
		zap.L().Error("mail delivery failed",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err),
			zap.String("namespace", "notify"))
	}
}

func (d *Dispatcher) submit(task func()) {
	d.wg.Add(1)
	err := d.pool.Submit(func() {
		defer d.wg.Done()
		task()
	})
	if err != nil {
		d.wg.Done()
		zap.L().Error("mail queue rejected task", zap.Error(err), zap.String("namespace", "notify"))
	}
}

// Wait blocks until queued deliveries finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) Release() {
	d.wg.Wait()
	d.pool.Release()
}

func render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := mailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
