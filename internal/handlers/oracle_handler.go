package handlers

import (
	"errors"
	"log"
	"net/http"

	"rangebet-market/internal/blockchain"
	"rangebet-market/internal/oracle"
	"rangebet-market/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type OracleHandler struct {
	markets    *services.MarketService
	settlement *services.SettlementService
}

func NewOracleHandler(db *gorm.DB, settlement *services.SettlementService) *OracleHandler {
	return &OracleHandler{
		markets:    services.NewMarketService(db),
		settlement: settlement,
	}
}

// ResolveMarket triggers settlement for the named market
// POST /oracle/resolve/:slug
func (h *OracleHandler) ResolveMarket(c *gin.Context) {
	slug := c.Param("slug")

	result, err := h.settlement.ResolveBySlug(c.Request.Context(), slug)
	if err != nil {
		h.writeResolveError(c, slug, err)
		return
	}

	market, loadErr := h.markets.GetMarketBySlug(c.Request.Context(), slug)
	if loadErr != nil {
		log.Printf("[OracleHandler] Failed to reload market %s after resolve: %v", slug, loadErr)
	}

	message := "Market settled"
	if !result.Resolved {
		message = "No price data in settlement window yet, try again later"
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"market":  market,
		"result":  result,
		"message": message,
	})
}

// writeResolveError maps the settlement error taxonomy onto HTTP statuses.
func (h *OracleHandler) writeResolveError(c *gin.Context, slug string, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Market not found"})

	case errors.Is(err, services.ErrMarketNotOpen),
		errors.Is(err, services.ErrMissingOnChainBinding),
		errors.Is(err, services.ErrInvalidSettlementValue),
		errors.Is(err, oracle.ErrUnmappedSymbol):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})

	case errors.Is(err, oracle.ErrFeedUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": err.Error()})

	case errors.Is(err, services.ErrPartialSettlement):
		// Inconsistent on-chain/off-chain state: distinct severity so
		// operator alerting can pick it up.
		log.Printf("[OracleHandler] ALERT partial settlement on %s: %v", slug, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})

	case errors.Is(err, blockchain.ErrSimulationFailed),
		errors.Is(err, blockchain.ErrConfirmationTimeout):
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})

	default:
		log.Printf("[OracleHandler] Resolve %s failed: %v", slug, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Settlement failed"})
	}
}
