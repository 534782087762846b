package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/requestdata"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/services"
)

type AdminHandler struct {
	adminService services.AdminService
}

func NewAdminHandler(adminService services.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

func (ah *AdminHandler) Usage(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request data"))
		return
	}

	days := 30
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			RespondError(c, http.StatusBadRequest, "invalid_days", fmt.Errorf("days must be a positive integer"))
			return
		}
		days = parsed
	}

	result, err := ah.adminService.UsageStats(c.Request.Context(), rd.UserID, days)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "usage_failed", err)
		return
	}
	RespondOK(c, result)
}
