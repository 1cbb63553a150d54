package push

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron"

	"github.com/iudanet/gennotes/pkg/api"
)

// DefaultDailySyncSpec ежедневно в 03:00 (формат cron с секундами)
const DefaultDailySyncSpec = "0 0 3 * * *"

// Broadcaster отправляет сообщение всем устройствам
type Broadcaster interface {
	Broadcast(ctx context.Context, msg api.PushMessage) int
}

// Scheduler рассылает daily-sync по расписанию
type Scheduler struct {
	cron        *cron.Cron
	broadcaster Broadcaster
	logger      *slog.Logger
}

// NewScheduler проверяет spec и регистрирует задачу; запуск через Start
func NewScheduler(broadcaster Broadcaster, spec string, logger *slog.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultDailySyncSpec
	}

	s := &Scheduler{
		cron:        cron.New(),
		broadcaster: broadcaster,
		logger:      logger,
	}

	if err := s.cron.AddFunc(spec, s.DailySync); err != nil {
		return nil, fmt.Errorf("invalid daily sync schedule %q: %w", spec, err)
	}

	return s, nil
}

// Start starts the cron scheduler in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler; a running job is not interrupted
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// DailySync рассылает daily-sync всем подключенным устройствам
func (s *Scheduler) DailySync() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	delivered := s.broadcaster.Broadcast(ctx, api.PushMessage{Type: api.PushDailySync})
	s.logger.Info("daily sync broadcast", slog.Int("devices", delivered))
}
