package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"rangebet-market/internal/lmsr"
	"rangebet-market/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type MarketHandler struct {
	markets   *services.MarketService
	rangeBets *services.RangeBetService
}

func NewMarketHandler(db *gorm.DB, oddsBand lmsr.OddsBand) *MarketHandler {
	return &MarketHandler{
		markets:   services.NewMarketService(db),
		rangeBets: services.NewRangeBetService(db, oddsBand),
	}
}

// GetMarkets returns markets with optional status filtering
func (h *MarketHandler) GetMarkets(c *gin.Context) {
	status := c.DefaultQuery("status", "open")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	markets, err := h.markets.GetMarkets(c.Request.Context(), status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch markets"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    markets,
		"count":   len(markets),
	})
}

// GetMarketBySlug returns a market with its bins and current probabilities
func (h *MarketHandler) GetMarketBySlug(c *gin.Context) {
	slug := c.Param("slug")

	market, err := h.markets.GetMarketBySlug(c.Request.Context(), slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Market not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch market"})
		return
	}

	probs, err := h.rangeBets.Probabilities(c.Request.Context(), slug)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute probabilities"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"data":          market,
		"probabilities": probs,
	})
}

// CreateMarket creates a new market with its bin grid (admin only)
func (h *MarketHandler) CreateMarket(c *gin.Context) {
	var req services.CreateMarketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	market, err := h.markets.CreateMarket(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    market,
	})
}

// parseBinList parses "2,3,4" into bin indices
func parseBinList(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	indices := make([]int, 0, len(parts))
	for _, part := range parts {
		idx, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		indices = append(indices, idx)
	}
	return indices, nil
}

// QuoteRange prices a stake over a contiguous bin range
// GET /api/markets/:slug/quote?bins=2,3,4&stake=100
func (h *MarketHandler) QuoteRange(c *gin.Context) {
	slug := c.Param("slug")

	bins, err := parseBinList(c.Query("bins"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bins parameter"})
		return
	}

	stake, err := strconv.ParseFloat(c.DefaultQuery("stake", "0"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid stake parameter"})
		return
	}

	quote, err := h.rangeBets.QuoteRange(c.Request.Context(), slug, bins, stake)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Market not found"})
		case errors.Is(err, services.ErrInvalidBinSelection),
			errors.Is(err, services.ErrMarketNotOpen),
			errors.Is(err, lmsr.ErrInvalidParameter):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute quote"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    quote,
	})
}

// Trade applies a quantity change to one bin at LMSR cost (admin/maker only)
func (h *MarketHandler) Trade(c *gin.Context) {
	marketID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid market id"})
		return
	}

	var req struct {
		BinIndex    int     `json:"bin_index"`
		DeltaShares float64 `json:"delta_shares" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cost, err := h.markets.ApplyTrade(c.Request.Context(), uint(marketID), req.BinIndex, req.DeltaShares)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Market not found"})
		case errors.Is(err, services.ErrMarketNotOpen),
			errors.Is(err, services.ErrQuantityFloor),
			errors.Is(err, lmsr.ErrInvalidParameter):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply trade"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"cost":    cost,
	})
}

// UpdateMarketStatus pauses or unpauses a market (admin only)
func (h *MarketHandler) UpdateMarketStatus(c *gin.Context) {
	marketID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid market id"})
		return
	}

	var req struct {
		Paused *bool `json:"paused" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	market, err := h.markets.SetPaused(c.Request.Context(), uint(marketID), *req.Paused)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    market,
	})
}
