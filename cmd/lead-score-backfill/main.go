package main

import (
	"context"
	"flag"
	"sync/atomic"

	"crm_intent_backend/internal/events"
	"crm_intent_backend/internal/leadscoring/repository"
	"crm_intent_backend/internal/leadscoring/service"
	"crm_intent_backend/platform/config"
	"crm_intent_backend/platform/db"
	"crm_intent_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

func main() {
	tenantFlag := flag.String("tenant", "", "restrict the backfill to a single tenant ID")
	workers := flag.Int("workers", 8, "number of concurrent recalculations")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting lead score backfill")

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	repo := repository.New(pool)
	eventBus := events.NewInMemoryBus(log)
	svc := service.New(repo, eventBus, log)

	var tenants []uuid.UUID
	if *tenantFlag != "" {
		tenantID, err := uuid.Parse(*tenantFlag)
		if err != nil {
			log.Error("invalid tenant ID", "tenant", *tenantFlag, "error", err)
			panic("invalid tenant ID: " + err.Error())
		}
		tenants = []uuid.UUID{tenantID}
	} else {
		tenants, err = repo.ListTenantIDs(ctx)
		if err != nil {
			log.Error("failed to list tenants", "error", err)
			panic("failed to list tenants: " + err.Error())
		}
	}

	var processed, failed atomic.Int64

	for _, tenantID := range tenants {
		contacts, err := repo.ListContactIDs(ctx, tenantID)
		if err != nil {
			log.Error("failed to list contacts", "tenantId", tenantID, "error", err)
			continue
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(*workers)
		for _, contactID := range contacts {
			g.Go(func() error {
				score, _, err := svc.RecalculateContactScore(gctx, tenantID, contactID)
				if err != nil {
					failed.Add(1)
					log.Error("failed to recalculate lead score", "tenantId", tenantID, "contactId", contactID, "error", err)
					return nil
				}
				processed.Add(1)
				log.Debug("lead score recalculated", "tenantId", tenantID, "contactId", contactID, "score", score)
				return nil
			})
		}
		_ = g.Wait()

		log.Info("tenant backfill complete", "tenantId", tenantID, "contacts", len(contacts))
	}

	eventBus.Wait()
	log.Info("lead score backfill completed", "processed", processed.Load(), "failed", failed.Load())
}
