package sink

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/PratikDhanave/capture-client/internal/models"
)

// ack mirrors the acknowledgement the capture API sends.
var ack = gin.H{"status": 1}

// RegisterCaptureRoutes registers the ingestion routes.
//
// POST /i/v0/e/ accepts one event, POST /batch/ accepts {"batch": [...]}.
// Both answer {"status": 1} once the events are recorded.
func RegisterCaptureRoutes(r gin.IRoutes, rec *Recorder, log *logrus.Logger) {
	r.POST(models.CaptureRoute, func(c *gin.Context) {
		body := Body(c)

		// Required fields per contract.
		if stringField(body, "event") == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "event required"})
			return
		}

		ev := rec.recordEvent(models.CaptureRoute, body)
		logReceived(log, ev)

		c.JSON(http.StatusOK, ack)
	})

	r.POST(models.BatchRoute, func(c *gin.Context) {
		body := Body(c)

		entries, isList := body["batch"].([]interface{})
		if !isList {
			c.JSON(http.StatusBadRequest, gin.H{"error": "batch must be a list"})
			return
		}

		// Validate the whole batch before recording any of it.
		events := make([]map[string]interface{}, 0, len(entries))
		for _, e := range entries {
			m, isObj := e.(map[string]interface{})
			if !isObj || stringField(m, "event") == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "every batch entry needs an event"})
				return
			}
			events = append(events, m)
		}

		for _, m := range events {
			logReceived(log, rec.recordEvent(models.BatchRoute, m))
		}

		c.JSON(http.StatusOK, ack)
	})
}

// RegisterInspectRoutes registers GET /received?event=... which reports how
// many matching events were recorded.
func RegisterInspectRoutes(r gin.IRoutes, rec *Recorder) {
	r.GET("/received", func(c *gin.Context) {
		event := c.Query("event")
		c.JSON(http.StatusOK, gin.H{
			"event": event,
			"count": rec.Count(event),
		})
	})
}

func logReceived(log *logrus.Logger, ev Received) {
	log.WithFields(logrus.Fields{
		"id":          ev.ID,
		"route":       ev.Route,
		"event":       ev.Event,
		"distinct_id": ev.DistinctID,
	}).Info("event received")
}
