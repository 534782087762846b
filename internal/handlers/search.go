package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/requestdata"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/services"
)

type SearchHandler struct {
	searchService services.SearchService
}

func NewSearchHandler(searchService services.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

func (sh *SearchHandler) Search(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing request data"))
		return
	}

	query := services.SearchQuery{Emotion: c.Query("emotion")}

	if raw := c.Query("from"); raw != "" {
		from, err := parseDateParam(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_date", fmt.Errorf("invalid 'from' date: %w", err))
			return
		}
		query.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := parseDateParam(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_date", fmt.Errorf("invalid 'to' date: %w", err))
			return
		}
		// A bare date means the whole day inclusive.
		if len(raw) == len("2006-01-02") {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		query.To = &to
	}

	result, err := sh.searchService.Search(c.Request.Context(), rd.UserID, query)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "search_failed", err)
		return
	}
	RespondOK(c, result)
}

func parseDateParam(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
