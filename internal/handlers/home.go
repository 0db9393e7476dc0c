package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HomeCardCount is how many service cards the landing page shows.
const HomeCardCount = 6

type HomeHandler struct {
	showcase Showcase
}

func NewHomeHandler(showcase Showcase) *HomeHandler {
	return &HomeHandler{showcase: showcase}
}

// Home renders the service cards and the winners carousel.
func (h *HomeHandler) Home(c *gin.Context) {
	ctx := c.Request.Context()
	cards, err := h.showcase.ServiceCards(ctx, HomeCardCount)
	if err != nil {
		RenderError(c, http.StatusInternalServerError, messageFor(c, err, "Failed to load services"))
		return
	}
	winners, err := h.showcase.Winners(ctx)
	if err != nil {
		RenderError(c, http.StatusInternalServerError, messageFor(c, err, "Failed to load winners"))
		return
	}

	Render(c, http.StatusOK, "home.html", gin.H{
		"Cards":   cards,
		"Winners": winners,
		"Active":  "home",
	})
}

// ListServices is the "See All" page.
func (h *HomeHandler) ListServices(c *gin.Context) {
	cards, err := h.showcase.ServiceCards(c.Request.Context(), 0)
	if err != nil {
		RenderError(c, http.StatusInternalServerError, messageFor(c, err, "Failed to load services"))
		return
	}

	Render(c, http.StatusOK, "services.html", gin.H{
		"Cards":  cards,
		"Title":  "Our Services",
		"Active": "services",
	})
}
