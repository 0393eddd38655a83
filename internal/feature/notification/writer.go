package notification

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"lostfound-api/internal/domain"
	"lostfound-api/pkg/utils"
)

var (
	writtenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "notifications_written_total", Help: "Notifications persisted"},
		[]string{"type"},
	)
	failedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "notifications_failed_total", Help: "Notifications that could not be persisted or were dropped"},
		[]string{"reason"},
	)
)

func init() { prometheus.MustRegister(writtenTotal, failedTotal) }

type Writer struct {
	repo domain.NotificationRepository
	log  *zap.Logger
	now  func() time.Time
}

func NewWriter(repo domain.NotificationRepository, l *zap.Logger) *Writer {
	return &Writer{repo: repo, log: l, now: time.Now}
}

// Write 落库失败只记日志，不向上传递
func (w *Writer) Write(ctx context.Context, ev Event) {
	if ev.Recipient == "" {
		return
	}
	n := &domain.Notification{
		ID:        utils.NewID(),
		UserID:    ev.Recipient,
		Type:      ev.Type,
		Title:     ev.Title,
		Message:   ev.Message,
		CreatedAt: w.now(),
	}
	if ev.ItemID != "" {
		n.ItemID = &ev.ItemID
	}
	if ev.ConversationID != "" {
		n.ConversationID = &ev.ConversationID
	}
	if err := w.repo.Create(ctx, n); err != nil {
		failedTotal.WithLabelValues("write").Inc()
		w.log.Warn("notification write failed",
			zap.String("recipient", ev.Recipient),
			zap.String("type", string(ev.Type)),
			zap.Error(err))
		return
	}
	writtenTotal.WithLabelValues(string(ev.Type)).Inc()
}

// Inline 同步写入，适合测试与后台工具
type Inline struct{ W *Writer }

func (p Inline) Publish(ctx context.Context, evs ...Event) {
	for _, ev := range evs {
		p.W.Write(context.WithoutCancel(ctx), ev)
	}
}
