package job

import (
	"context"
	"log"
	"time"

	"referralsystem/internal/config"
	"referralsystem/internal/repository"

	"gorm.io/gorm"
)

// OutboxRetryJob 失败消息补偿任务
// 超过最大重试次数的消息会被标记为 FAILED（比如 Kafka 长时间不可用），
// 冷却一段时间后重新入队，避免结算消息永久滞留
type OutboxRetryJob struct {
	db         *gorm.DB
	outboxRepo *repository.OutboxRepository
	cfg        *config.Config
	stopCh     chan struct{}
	interval   time.Duration
	batchSize  int
}

func NewOutboxRetryJob(db *gorm.DB, cfg *config.Config) *OutboxRetryJob {
	return &OutboxRetryJob{
		db:         db,
		outboxRepo: repository.NewOutboxRepository(db),
		cfg:        cfg,
		stopCh:     make(chan struct{}),
		interval:   time.Minute,
		batchSize:  50,
	}
}

func (j *OutboxRetryJob) Start(ctx context.Context) {
	log.Println("[OutboxRetryJob] 失败消息补偿任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[OutboxRetryJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[OutboxRetryJob] 任务停止")
			return
		case <-ticker.C:
			j.requeueFailedMessages(ctx)
		}
	}
}

func (j *OutboxRetryJob) Stop() {
	close(j.stopCh)
}

func (j *OutboxRetryJob) requeueFailedMessages(ctx context.Context) {
	messages, err := j.outboxRepo.GetFailedMessages(ctx, j.batchSize)
	if err != nil {
		log.Printf("[OutboxRetryJob] 查询失败消息失败: %v", err)
		return
	}

	if len(messages) == 0 {
		return
	}

	cooldown := time.Duration(j.cfg.Business.RetryCooldownHours) * time.Hour
	requeued := 0
	for _, msg := range messages {
		if time.Since(msg.UpdatedAt) < cooldown {
			continue
		}
		if err := j.outboxRepo.Requeue(ctx, msg.ID); err != nil {
			log.Printf("[OutboxRetryJob] 重新入队失败: id=%d, err=%v", msg.ID, err)
			continue
		}
		requeued++
		log.Printf("[OutboxRetryJob] 消息重新入队: id=%d, key=%s", msg.ID, msg.MessageKey)
	}

	if requeued > 0 {
		log.Printf("[OutboxRetryJob] 本次重新入队 %d 条消息", requeued)
	}
}
