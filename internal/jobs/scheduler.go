// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: еженедельное напоминание должникам
// и итоги прошлого месяца в первый день нового.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/brusliste/internal/common"
	"serotonyl.ru/brusliste/internal/config"
	"serotonyl.ru/brusliste/internal/metrics"
	"serotonyl.ru/brusliste/internal/notify"
)

// Имена задач для логов и метрик
const (
	JobDebtorReminder = "debtor_reminder"
	JobMonthlyReport  = "monthly_report"
)

// jobTimeout — сколько может выполняться один запуск.
const jobTimeout = time.Minute

// DebtorReporter готовит текст напоминания (ledger.Service).
type DebtorReporter interface {
	DebtorsReport(ctx context.Context) (string, error)
}

// MonthlyReporter готовит итоги месяца (stats.Service).
type MonthlyReporter interface {
	MonthlyReport(ctx context.Context, now time.Time) (string, error)
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron     *cron.Cron
	loc      *time.Location
	cfg      *config.Config
	debtors  DebtorReporter
	monthly  MonthlyReporter
	notifier notify.Notifier
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewScheduler создаёт планировщик в часовом поясе APP_TIMEZONE.
func NewScheduler(cfg *config.Config, debtors DebtorReporter, monthly MonthlyReporter, notifier notify.Notifier, m *metrics.Metrics) *Scheduler {
	loc := common.LoadLocation(cfg.AppTimezone)
	cronLog := cron.PrintfLogger(log.StandardLogger())

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	return &Scheduler{
		cron:     c,
		loc:      loc,
		cfg:      cfg,
		debtors:  debtors,
		monthly:  monthly,
		notifier: notifier,
		metrics:  m,
		now:      time.Now,
	}
}

// Start регистрирует задачи и запускает планировщик.
// ctx отменяется на shutdown и прерывает текущие запуски.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{JobDebtorReminder, s.cfg.JobsDebtorReminderCron, s.RunDebtorReminder},
		{JobMonthlyReport, s.cfg.JobsMonthlyReportCron, s.RunMonthlyReport},
	}

	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.spec, s.wrap(ctx, job.name, job.run)); err != nil {
			return fmt.Errorf("некорректное расписание %s (%q): %w", job.name, job.spec, err)
		}
	}

	s.cron.Start()
	log.WithField("timezone", s.loc.String()).Info("Планировщик задач запущен")
	return nil
}

// Stop останавливает планировщик и ждёт завершения текущих задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

// RunDebtorReminder отправляет в чат список должников.
func (s *Scheduler) RunDebtorReminder(ctx context.Context) error {
	text, err := s.debtors.DebtorsReport(ctx)
	if err != nil {
		return err
	}
	if text == "" {
		log.Debug("[CRON] Должников нет, напоминание не нужно")
		return nil
	}
	return s.notifier.Send(ctx, text)
}

// RunMonthlyReport отправляет в чат лидеров прошлого месяца.
func (s *Scheduler) RunMonthlyReport(ctx context.Context) error {
	text, err := s.monthly.MonthlyReport(ctx, s.now().In(s.loc))
	if err != nil {
		return err
	}
	if text == "" {
		log.Debug("[CRON] За прошлый месяц пусто, отчёт не отправляем")
		return nil
	}
	return s.notifier.Send(ctx, text)
}

func (s *Scheduler) wrap(ctx context.Context, name string, run func(context.Context) error) func() {
	return func() {
		runCtx, cancel := context.WithTimeout(ctx, jobTimeout)
		defer cancel()

		start := time.Now()
		log.WithField("job", name).Info("[CRON] Запуск задачи")
		err := run(runCtx)
		s.metrics.RecordJobRun(name, time.Since(start), err == nil)
		if err != nil {
			log.WithError(err).WithField("job", name).Error("[CRON] Ошибка задачи")
		}
	}
}
