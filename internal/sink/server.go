package sink

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter wires the recording sink.
// Public: /health, /received
// Keyed: /i/v0/e/, /batch/
func NewRouter(rec *Recorder, keys []string, log *logrus.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	RegisterInspectRoutes(r, rec)

	keyed := r.Group("/")
	keyed.Use(APIKeyMiddleware(keys, rec))

	RegisterCaptureRoutes(keyed, rec, log)

	return r
}
