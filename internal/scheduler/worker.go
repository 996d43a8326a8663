package scheduler

import (
	"context"

	"crm_intent_backend/internal/leadscoring/repository"
	"crm_intent_backend/internal/leadscoring/service"
	"crm_intent_backend/platform/config"
	"crm_intent_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	client *Client
	repo   *repository.Repository
	svc    *service.Service
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, svc *service.Service, client *Client, log *logger.Logger) (*Worker, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		client: client,
		repo:   repository.New(pool),
		svc:    svc,
		log:    log,
	}

	mux.HandleFunc(TaskRecalculateAll, w.handleRecalculateAll)
	mux.HandleFunc(TaskRecalculateContact, w.handleRecalculateContact)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleRecalculateAll fans the sweep out into one task per contact so
// failures retry individually.
func (w *Worker) handleRecalculateAll(ctx context.Context, _ *asynq.Task) error {
	tenants, err := w.repo.ListTenantIDs(ctx)
	if err != nil {
		return err
	}

	queued := 0
	for _, tenantID := range tenants {
		contacts, err := w.repo.ListContactIDs(ctx, tenantID)
		if err != nil {
			return err
		}
		for _, contactID := range contacts {
			err := w.client.EnqueueRecalculateContact(ctx, RecalculateContactPayload{
				TenantID:  tenantID.String(),
				ContactID: contactID.String(),
			})
			if err != nil {
				return err
			}
			queued++
		}
	}

	w.log.Info("recalculation sweep queued", "tenants", len(tenants), "contacts", queued)
	return nil
}

func (w *Worker) handleRecalculateContact(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseRecalculateContactPayload(task)
	if err != nil {
		return err
	}

	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return err
	}
	contactID, err := uuid.Parse(payload.ContactID)
	if err != nil {
		return err
	}

	_, _, err = w.svc.RecalculateContactScore(ctx, tenantID, contactID)
	return err
}
