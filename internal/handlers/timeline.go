package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/requestdata"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/services"
)

type TimelineHandler struct {
	timelineService services.TimelineService
}

func NewTimelineHandler(timelineService services.TimelineService) *TimelineHandler {
	return &TimelineHandler{timelineService: timelineService}
}

func (th *TimelineHandler) Timeline(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request data"))
		return
	}
	result, err := th.timelineService.Timeline(c.Request.Context(), rd.UserID, c.DefaultQuery("bucket", "month"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "timeline_failed", err)
		return
	}
	RespondOK(c, result)
}
