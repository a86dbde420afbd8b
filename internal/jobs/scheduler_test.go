package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/brusliste/internal/config"
	"serotonyl.ru/brusliste/internal/metrics"
)

type fakeDebtors struct {
	text string
	err  error
}

func (f fakeDebtors) DebtorsReport(ctx context.Context) (string, error) { return f.text, f.err }

type fakeMonthly struct {
	got  time.Time
	text string
}

func (f *fakeMonthly) MonthlyReport(ctx context.Context, now time.Time) (string, error) {
	f.got = now
	return f.text, nil
}

type fakeNotifier struct{ sent []string }

func (f *fakeNotifier) Send(ctx context.Context, text string) error {
	f.sent = append(f.sent, text)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		AppTimezone:            "UTC",
		JobsDebtorReminderCron: "0 12 * * MON",
		JobsMonthlyReportCron:  "0 10 1 * *",
	}
}

func TestRunDebtorReminder(t *testing.T) {
	n := &fakeNotifier{}
	s := NewScheduler(testConfig(), fakeDebtors{text: "🍺 Напоминание"}, &fakeMonthly{}, n, nil)

	require.NoError(t, s.RunDebtorReminder(context.Background()))
	assert.Equal(t, []string{"🍺 Напоминание"}, n.sent)

	n.sent = nil
	s.debtors = fakeDebtors{}
	require.NoError(t, s.RunDebtorReminder(context.Background()))
	assert.Empty(t, n.sent)

	s.debtors = fakeDebtors{err: errors.New("db down")}
	assert.Error(t, s.RunDebtorReminder(context.Background()))
}

func TestRunMonthlyReport(t *testing.T) {
	n := &fakeNotifier{}
	monthly := &fakeMonthly{text: "🏆 Итоги"}
	s := NewScheduler(testConfig(), fakeDebtors{}, monthly, n, nil)
	fixed := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	require.NoError(t, s.RunMonthlyReport(context.Background()))
	assert.True(t, fixed.Equal(monthly.got))
	assert.Equal(t, []string{"🏆 Итоги"}, n.sent)
}

func TestStartRejectsBadSpec(t *testing.T) {
	cfg := testConfig()
	cfg.JobsMonthlyReportCron = "every now and then"
	s := NewScheduler(cfg, fakeDebtors{}, &fakeMonthly{}, &fakeNotifier{}, nil)

	assert.Error(t, s.Start(context.Background()))
}

func TestStartAndStop(t *testing.T) {
	s := NewScheduler(testConfig(), fakeDebtors{}, &fakeMonthly{}, &fakeNotifier{}, metrics.New())

	require.NoError(t, s.Start(context.Background()))
	assert.Len(t, s.cron.Entries(), 2)
	s.Stop()
}

func TestWrapRecordsFailure(t *testing.T) {
	m := metrics.New()
	s := NewScheduler(testConfig(), fakeDebtors{}, &fakeMonthly{}, &fakeNotifier{}, m)

	called := false
	s.wrap(context.Background(), "probe", func(ctx context.Context) error {
		called = true
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return errors.New("boom")
	})()
	assert.True(t, called)
}
