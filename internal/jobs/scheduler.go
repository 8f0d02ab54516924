package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"stockflow/internal/domain"
	"stockflow/internal/pkg/logger"
	"stockflow/internal/service/alertservice"
)

const (
	ReservationSweepJob = "reservation-expiry-sweep"
	LowStockJob         = "low-stock-alerts"
)

// ReservationExpirer libera reservas vencidas.
type ReservationExpirer interface {
	ExpireStale(ctx context.Context, now time.Time) (int, error)
}

// AlertFeed calcula alertas de estoque baixo.
type AlertFeed interface {
	LowStockAlerts(ctx context.Context, filter domain.AlertFilter) ([]domain.LowStockAlert, error)
}

// Intervals define a frequência de cada job.
type Intervals struct {
	Sweep      time.Duration
	AlertCheck time.Duration
}

// Scheduler executa os jobs periódicos do serviço.
type Scheduler struct {
	scheduler    gocron.Scheduler
	reservations ReservationExpirer
	alerts       AlertFeed
	logger       logger.Logger
	now          func() time.Time

	mu   sync.RWMutex
	jobs map[string]gocron.Job
}

func NewScheduler(reservations ReservationExpirer, alerts AlertFeed, intervals Intervals, logger logger.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("criar scheduler: %w", err)
	}

	js := &Scheduler{
		scheduler:    s,
		reservations: reservations,
		alerts:       alerts,
		logger:       logger,
		now:          time.Now,
		jobs:         make(map[string]gocron.Job),
	}
	if err := js.register(ReservationSweepJob, intervals.Sweep, js.SweepReservations); err != nil {
		return nil, err
	}
	if alerts != nil {
		if err := js.register(LowStockJob, intervals.AlertCheck, js.CheckLowStock); err != nil {
			return nil, err
		}
	}
	logger.Info("Jobs registrados.", map[string]interface{}{"total": len(js.jobs)})
	return js, nil
}

func (js *Scheduler) register(name string, every time.Duration, task func(context.Context) error) error {
	if every <= 0 {
		return fmt.Errorf("intervalo inválido para %s: %s", name, every)
	}
	job, err := js.scheduler.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(task, context.Background()),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("registrar job %s: %w", name, err)
	}
	js.mu.Lock()
	js.jobs[name] = job
	js.mu.Unlock()
	return nil
}

func (js *Scheduler) Start() {
	js.logger.Info("Iniciando scheduler de jobs.", nil)
	js.scheduler.Start()
}

func (js *Scheduler) Stop() error {
	js.logger.Info("Parando scheduler de jobs.", nil)
	return js.scheduler.Shutdown()
}

// JobNames lista os jobs registrados.
func (js *Scheduler) JobNames() []string {
	js.mu.RLock()
	defer js.mu.RUnlock()
	names := make([]string, 0, len(js.jobs))
	for name := range js.jobs {
		names = append(names, name)
	}
	return names
}

// SweepReservations expira reservas ativas cujo prazo passou.
func (js *Scheduler) SweepReservations(ctx context.Context) error {
	n, err := js.reservations.ExpireStale(ctx, js.now())
	if err != nil {
		js.logger.Error("Falha na varredura de reservas.", err)
		return err
	}
	if n > 0 {
		js.logger.Info("Reservas expiradas.", map[string]interface{}{"total": n})
	}
	return nil
}

// CheckLowStock registra um resumo dos alertas atuais.
func (js *Scheduler) CheckLowStock(ctx context.Context) error {
	alerts, err := js.alerts.LowStockAlerts(ctx, domain.AlertFilter{})
	if err != nil {
		js.logger.Error("Falha ao calcular alertas de estoque.", err)
		return err
	}
	if len(alerts) == 0 {
		js.logger.Debug("Nenhum alerta de estoque baixo.", nil)
		return nil
	}
	counts := alertservice.Summarize(alerts)
	js.logger.Warn("Itens com estoque baixo.", map[string]interface{}{
		"out_of_stock": counts[domain.SeverityOutOfStock],
		"critical":     counts[domain.SeverityCritical],
		"warning":      counts[domain.SeverityWarning],
	})
	return nil
}
