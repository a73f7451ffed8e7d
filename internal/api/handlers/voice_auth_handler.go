package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/mockinterview/internal/services"
	"github.com/yoockh/mockinterview/internal/utils"
)

type VoiceAuthHandler struct {
	svc services.VoiceAuthService
}

func NewVoiceAuthHandler(svc services.VoiceAuthService) *VoiceAuthHandler {
	return &VoiceAuthHandler{svc: svc}
}

type voiceAuthRequest struct {
	InterviewSessionID string `json:"interviewSessionId" binding:"required"`
}

func (h *VoiceAuthHandler) Authorize(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req voiceAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "VoiceAuthHandler.Authorize", "interviewSessionId is required", err))
		return
	}

	resp, err := h.svc.Authorize(c.Request.Context(), userID, req.InterviewSessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
