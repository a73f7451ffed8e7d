package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/mockinterview/internal/services"
	"github.com/yoockh/mockinterview/internal/utils"
)

type SetupHandler struct {
	svc services.SetupService
}

func NewSetupHandler(svc services.SetupService) *SetupHandler {
	return &SetupHandler{svc: svc}
}

func (h *SetupHandler) Process(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.SetupInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "SetupHandler.Process", "invalid request body", err))
		return
	}

	res, err := h.svc.Process(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
