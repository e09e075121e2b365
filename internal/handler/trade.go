package handler

import (
	"net/http"
	"strings"

	"github.com/GoPolymarket/polyrelay/internal/model"
	"github.com/GoPolymarket/polyrelay/internal/pkg/apperrors"
	"github.com/GoPolymarket/polyrelay/internal/pkg/metrics"
	"github.com/GoPolymarket/polyrelay/internal/service"
	"github.com/gin-gonic/gin"
)

type TradeHandler struct {
	executor *service.Executor
	creds    *service.CredentialService
	gate     *service.Gate
}

func NewTradeHandler(executor *service.Executor, creds *service.CredentialService, gate *service.Gate) *TradeHandler {
	return &TradeHandler{
		executor: executor,
		creds:    creds,
		gate:     gate,
	}
}

// PlaceTrade admits, resolves credentials, and hands the order to the
// executor. Upstream failures come back as a structured TradeResult, not a
// relay error.
func (h *TradeHandler) PlaceTrade(c *gin.Context) {
	var req model.TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		c.Abort()
		return
	}

	owner := strings.ToLower(strings.TrimSpace(req.Owner))
	if retryAfter, ok := h.gate.Allow(owner); !ok {
		metrics.RateLimited.Inc()
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":            "rate limit exceeded",
			"retry_after_secs": int(retryAfter.Seconds()) + 1,
		})
		return
	}

	if err := service.ValidateOrderPayload(req.Order); err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	creds, funder, err := h.creds.Resolve(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	result := h.executor.ExecuteTrade(c.Request.Context(), creds, req.Order, owner, funder)
	c.JSON(http.StatusOK, result)
}

// TradingStatus reports whether the exchange currently lets the address
// trade.
func (h *TradeHandler) TradingStatus(c *gin.Context) {
	address := c.Param("address")
	if address == "" {
		c.Error(apperrors.NewInvalidRequest("address is required"))
		c.Abort()
		return
	}

	creds, err := h.creds.Get(c.Request.Context(), address)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	status := h.executor.CheckTradingStatus(c.Request.Context(), *creds, address)
	c.JSON(http.StatusOK, status)
}
