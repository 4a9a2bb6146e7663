package mw

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

type cachedResponse struct {
	status      int
	contentType string
	body        []byte
}

type bodyRecorder struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Cache memoizes successful GET responses by request URI. It is only
// applied to endpoints whose payload is stable for the process lifetime;
// booking state must never be served stale.
func Cache(store *cache.Cache, duration time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.RequestURI
		if hit, found := store.Get(key); found {
			cached := hit.(cachedResponse)
			if cached.contentType != "" {
				c.Writer.Header().Set("Content-Type", cached.contentType)
			}
			c.Writer.WriteHeader(cached.status)
			c.Writer.Write(cached.body)
			c.Abort()
			return
		}

		recorder := &bodyRecorder{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = recorder

		c.Next()

		if recorder.Status() >= 200 && recorder.Status() < 300 {
			store.Set(key, cachedResponse{
				status:      recorder.Status(),
				contentType: recorder.Header().Get("Content-Type"),
				body:        recorder.body.Bytes(),
			}, duration)
		}
	}
}
