package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yoockh/mockinterview/internal/services"
)

type ResultsHandler struct {
	svc services.ResultsService
}

func NewResultsHandler(svc services.ResultsService) *ResultsHandler {
	return &ResultsHandler{svc: svc}
}

// Get answers 202 while another request is generating the analysis.
func (h *ResultsHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	res, err := h.svc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusOK
	if res.AnalysisStatus == services.AnalysisGenerating {
		status = http.StatusAccepted
	}
	c.JSON(status, res)
}
