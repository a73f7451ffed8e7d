package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/mockinterview/internal/services"
	"github.com/yoockh/mockinterview/internal/utils"
)

type InterviewHandler struct {
	interviews services.InterviewService
	progress   services.ProgressService
}

func NewInterviewHandler(interviews services.InterviewService, progress services.ProgressService) *InterviewHandler {
	return &InterviewHandler{interviews: interviews, progress: progress}
}

func (h *InterviewHandler) Create(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req services.CreateInterviewInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "InterviewHandler.Create", "invalid request body", err))
		return
	}

	created, err := h.interviews.Create(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, created)
}

func (h *InterviewHandler) Progress(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	p, err := h.progress.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

func (h *InterviewHandler) Complete(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sess, err := h.interviews.Complete(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": sess})
}

func (h *InterviewHandler) Latest(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	ov, err := h.interviews.Latest(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, ov)
}

func (h *InterviewHandler) Dashboard(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	d, err := h.interviews.Dashboard(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, d)
}
