package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"ehub/internal/carousel"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type wsOut struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type resizeData struct {
	Content  float64 `json:"content"`
	Viewport float64 `json:"viewport"`
}

type hoverData struct {
	Hovered bool `json:"hovered"`
}

// CarouselHandler streams the winners carousel offset over a websocket.
// Every connection drives its own carousel and stops it on close.
type CarouselHandler struct {
	showcase Showcase
	tick     time.Duration
	upgrader websocket.Upgrader
}

func NewCarouselHandler(showcase Showcase, tick time.Duration, allowedOrigins []string) *CarouselHandler {
	return &CarouselHandler{
		showcase: showcase,
		tick:     tick,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || slices.Contains(allowedOrigins, origin) {
					return true
				}
				u, err := url.Parse(origin)
				return err == nil && u.Host == r.Host
			},
		},
	}
}

func floatQuery(c *gin.Context, key string) float64 {
	f, err := strconv.ParseFloat(c.Query(key), 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

func (h *CarouselHandler) Stream(c *gin.Context) {
	winners, err := h.showcase.Winners(c.Request.Context())
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "failed to load winners", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.WarnContext(c.Request.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	car := carousel.New(floatQuery(c, "content"), floatQuery(c, "viewport"), carousel.WithInterval(h.tick))

	if err := conn.WriteJSON(wsOut{Type: "winners", Data: winners}); err != nil {
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	go func() {
		defer cancel()
		for {
			var msg WSMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			applyCarouselMessage(car, msg)
		}
	}()

	err = car.Run(ctx, func(offset float64) error {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		return conn.WriteJSON(wsOut{Type: "offset", Data: gin.H{"offset": offset}})
	})
	if err != nil && ctx.Err() == nil {
		slog.DebugContext(c.Request.Context(), "carousel stream closed", "error", err)
	}
}

func applyCarouselMessage(car *carousel.Carousel, msg WSMessage) {
	switch msg.Type {
	case "hover":
		var d hoverData
		if json.Unmarshal(msg.Data, &d) == nil {
			car.SetHovered(d.Hovered)
		}
	case "resize":
		var d resizeData
		if json.Unmarshal(msg.Data, &d) == nil && d.Content >= 0 && d.Viewport >= 0 {
			car.Resize(d.Content, d.Viewport)
		}
	}
}
