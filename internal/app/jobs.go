package app

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/talkincode/webshop/internal/domain"
	"github.com/talkincode/webshop/internal/shop"
)

const (
	staleCartDays     = 90
	lowStockThreshold = 5
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ErrUnknownJob is returned by RunJobNow for a name that is not registered.
var ErrUnknownJob = errors.New("unknown job")

type job struct {
	name string
	spec string
	fn   func()
}

// JobStatus describes a registered background job. Next and Prev are only
// set once the scheduler is running.
type JobStatus struct {
	Name string     `json:"name"`
	Spec string     `json:"spec"`
	Next *time.Time `json:"next,omitempty"`
	Prev *time.Time `json:"prev,omitempty"`
}

func (a *Application) jobList() []job {
	return []job{
		{"voucher-sweep", "@every 1h", a.SchedVoucherSweepTask},
		{"stale-carts", "@daily", a.SchedStaleCartTask},
		{"low-stock", "0 0 7 * * *", a.SchedLowStockTask},
	}
}

func (a *Application) initJob() {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))
	a.jobEntries = make(map[string]cron.EntryID)

	for _, j := range a.jobList() {
		id, err := a.sched.AddFunc(j.spec, j.fn)
		if err != nil {
			zap.S().Errorf("init job error %s", err.Error())
			continue
		}
		a.jobEntries[j.name] = id
	}

	a.sched.Start()
}

// Jobs lists the background jobs with their schedule.
func (a *Application) Jobs() []JobStatus {
	jobs := a.jobList()
	result := make([]JobStatus, 0, len(jobs))
	for _, j := range jobs {
		st := JobStatus{Name: j.name, Spec: j.spec}
		if id, ok := a.jobEntries[j.name]; ok && a.sched != nil {
			e := a.sched.Entry(id)
			if !e.Next.IsZero() {
				next := e.Next
				st.Next = &next
			}
			if !e.Prev.IsZero() {
				prev := e.Prev
				st.Prev = &prev
			}
		}
		result = append(result, st)
	}
	return result
}

// RunJobNow runs a job synchronously outside its schedule.
func (a *Application) RunJobNow(name string) error {
	for _, j := range a.jobList() {
		if j.name == name {
			zap.L().Info("job triggered manually", zap.String("job", name), zap.String("namespace", "job"))
			j.fn()
			return nil
		}
	}
	return ErrUnknownJob
}

// SchedVoucherSweepTask deactivates vouchers past their end date
func (a *Application) SchedVoucherSweepTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	n, err := shop.NewVoucherEvaluator(a.store.Vouchers).SweepExpired(context.Background(), time.Now())
	if err != nil {
		zap.L().Error("voucher sweep failed", zap.Error(err), zap.String("namespace", "job"))
		return
	}
	if n > 0 {
		zap.L().Info("deactivated expired vouchers", zap.Int64("count", n), zap.String("namespace", "job"))
	}
}

// SchedStaleCartTask drops cart lines untouched for staleCartDays
func (a *Application) SchedStaleCartTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	before := time.Now().Add(-time.Hour * 24 * staleCartDays)
	n, err := a.carts.PruneStale(context.Background(), before)
	if err != nil {
		zap.L().Error("cart cleanup failed", zap.Error(err), zap.String("namespace", "job"))
		return
	}
	zap.L().Info("removed stale cart items", zap.Int64("count", n), zap.String("namespace", "job"))
}

// SchedLowStockTask logs products that are about to sell out
func (a *Application) SchedLowStockTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	var products []domain.Product
	a.gormDB.Select("id", "name", "stock").
		Where("stock <= ?", lowStockThreshold).
		Order("stock").
		Find(&products)
	for _, p := range products {
		zap.L().Warn("low stock",
			zap.Int64("product_id", p.ID),
			zap.String("name", p.Name),
			zap.Int("stock", p.Stock),
			zap.String("namespace", "job"))
	}
}
