package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
	"github.com/Shubhojeet-Ghosh/elysium-agents/services"
)

type URLToolHandlers struct {
	fetcher services.FetcherService
}

func NewURLToolHandlers(fetcher services.FetcherService) *URLToolHandlers {
	return &URLToolHandlers{fetcher: fetcher}
}

// PingURL probes a URL for reachability without rendering it.
func (h *URLToolHandlers) PingURL(c *gin.Context) {
	var req models.PingURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewValidationError("invalid request body: %v", err))
		return
	}
	if req.URL == "" {
		respondError(c, models.NewValidationError("url is required"))
		return
	}
	resp := h.fetcher.PingURL(c.Request.Context(), req.URL)
	c.JSON(http.StatusOK, resp)
}

// ExtractLinks renders the page and returns its filtered outbound links.
func (h *URLToolHandlers) ExtractLinks(c *gin.Context) {
	var req models.ExtractLinksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, models.NewValidationError("invalid request body: %v", err))
		return
	}
	if req.URL == "" {
		respondError(c, models.NewValidationError("url is required"))
		return
	}
	result, err := h.fetcher.ExtractLinks(c.Request.Context(), req.URL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ExtractLinksResponse{
		Success: result.Success,
		URL:     result.NormalizedURL,
		Hrefs:   result.Hrefs,
		Count:   result.HrefsCount,
	})
}
