package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/mockinterview/internal/services"
)

type DemoHandler struct {
	svc services.DemoService
}

func NewDemoHandler(svc services.DemoService) *DemoHandler {
	return &DemoHandler{svc: svc}
}

func (h *DemoHandler) Seed(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	seeded, err := h.svc.Seed(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, seeded)
}

func (h *DemoHandler) AppendConversation(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	n, err := h.svc.AppendConversation(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessionId": c.Param("id"), "turns": n})
}
