package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"barbershop-booking-backend/config"
	"barbershop-booking-backend/internal/mw"
	"barbershop-booking-backend/internal/ws"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.ServerConfig, handler *Handler) *gin.Engine {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE"}
	r.Use(cors.New(corsCfg))

	rateLimiter := mw.RateLimiter(cfg.RateLimitPerSec, cfg.RateLimitBurst)

	// The VAPID key never changes for the lifetime of the process; it is
	// the only cached endpoint.
	keyCache := cache.New(time.Hour, 2*time.Hour)
	caching := mw.Cache(keyCache, time.Hour)

	// Pages for the chat widget and the operator dashboard.
	r.StaticFile("/", "./static/chat.html")
	r.StaticFile("/dashboard", "./static/dashboard.html")
	r.Static("/static", "./static")

	r.POST("/chat", rateLimiter, handler.Chat)
	r.POST("/intent", rateLimiter, handler.DetectIntent)
	r.POST("/pay/klarna", rateLimiter, handler.PayWithKlarna)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/slots", handler.GetSlots)
		api.POST("/slots", handler.AddSlot)
		api.DELETE("/slots", handler.DeleteSlot)

		api.GET("/bookings", handler.GetBookings)
		api.POST("/bookings/:id/cancel", handler.CancelBooking)
		api.POST("/bookings/:id/paid", handler.MarkBookingPaid)

		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", caching, handler.GetVAPIDPublicKey)
	}

	r.GET("/ws/dashboard", func(c *gin.Context) {
		if handler.hub == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		if err := ws.Serve(handler.hub, c.Writer, c.Request); err != nil {
			log.Printf("websocket upgrade failed: %v", err)
		}
	})

	return r
}
