package handler

import (
	"net/http"

	"github.com/GoPolymarket/polyrelay/internal/model"
	"github.com/GoPolymarket/polyrelay/internal/pkg/apperrors"
	"github.com/GoPolymarket/polyrelay/internal/service"
	"github.com/gin-gonic/gin"
)

type CredentialHandler struct {
	svc  *service.CredentialService
	flow *service.AuthFlow
}

func NewCredentialHandler(svc *service.CredentialService, flow *service.AuthFlow) *CredentialHandler {
	return &CredentialHandler{svc: svc, flow: flow}
}

func (h *CredentialHandler) Upsert(c *gin.Context) {
	var req model.CredentialUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		c.Abort()
		return
	}

	tuple, err := h.svc.Upsert(c.Request.Context(), c.Param("address"), req)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, tuple.Masked())
}

func (h *CredentialHandler) Get(c *gin.Context) {
	tuple, err := h.svc.Get(c.Request.Context(), c.Param("address"))
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, tuple.Masked())
}

func (h *CredentialHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("address")); err != nil {
		c.Error(err)
		c.Abort()
		return
	}
	c.Status(http.StatusNoContent)
}

// Derive runs the L1→L2 provisioning flow with the caller's wallet proof.
func (h *CredentialHandler) Derive(c *gin.Context) {
	var req model.DeriveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		c.Abort()
		return
	}

	tuple, err := h.flow.Provision(c.Request.Context(), req.Proof, req.Funder)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, tuple.Masked())
}
