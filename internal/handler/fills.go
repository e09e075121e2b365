package handler

import (
	"net/http"

	"github.com/GoPolymarket/polyrelay/internal/market"
	"github.com/gin-gonic/gin"
)

type FillsHandler struct {
	stream *market.UserStream
}

func NewFillsHandler(stream *market.UserStream) *FillsHandler {
	return &FillsHandler{stream: stream}
}

// Fills returns the recent fills seen on the user channel. When the stream
// is not configured the relay answers with an empty list rather than 404.
func (h *FillsHandler) Fills(c *gin.Context) {
	if h.stream == nil {
		c.JSON(http.StatusOK, gin.H{"fills": []market.Fill{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"fills": h.stream.Fills()})
}
