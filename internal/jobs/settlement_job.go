package jobs

import (
	"context"
	"errors"
	"log"
	"time"

	"rangebet-market/internal/services"
)

// SettlementJob periodically resolves open markets whose end date has passed.
type SettlementJob struct {
	markets    *services.MarketService
	settlement *services.SettlementService
	interval   time.Duration
	stopChan   chan struct{}
}

func NewSettlementJob(markets *services.MarketService, settlement *services.SettlementService, interval time.Duration) *SettlementJob {
	return &SettlementJob{
		markets:    markets,
		settlement: settlement,
		interval:   interval,
		stopChan:   make(chan struct{}),
	}
}

// Start begins the settlement loop
func (j *SettlementJob) Start() {
	log.Printf("[SettlementJob] Starting settlement job (interval: %v)", j.interval)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.resolveExpiredMarkets()
		case <-j.stopChan:
			log.Println("[SettlementJob] Stopping settlement job")
			return
		}
	}
}

// Stop stops the settlement loop
func (j *SettlementJob) Stop() {
	close(j.stopChan)
}

// resolveExpiredMarkets invokes one resolution attempt per eligible market.
func (j *SettlementJob) resolveExpiredMarkets() {
	ctx := context.Background()

	markets, err := j.markets.ExpiredOpenMarkets(ctx, time.Now(), 100)
	if err != nil {
		log.Printf("[SettlementJob] Error fetching expired markets: %v", err)
		return
	}

	if len(markets) == 0 {
		return
	}

	log.Printf("[SettlementJob] Checking %d expired markets", len(markets))

	resolvedCount := 0
	for i := range markets {
		market := &markets[i]

		result, err := j.settlement.Resolve(ctx, market)
		if err != nil {
			if errors.Is(err, services.ErrPartialSettlement) {
				log.Printf("[SettlementJob] ALERT partial settlement on market %d (%s): %v", market.ID, market.Slug, err)
			} else {
				log.Printf("[SettlementJob] Error resolving market %d (%s): %v", market.ID, market.Slug, err)
			}
			continue
		}
		if !result.Resolved {
			// Candle not available yet, next tick retries.
			continue
		}

		resolvedCount++
		log.Printf("[SettlementJob] Settled market %d (%s) at %v, tx %s", market.ID, market.Slug, result.SettlementClose, result.TxHash)
	}

	if resolvedCount > 0 {
		log.Printf("[SettlementJob] Settled %d markets", resolvedCount)
	}
}
