package sink

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// bodyCtxKey is the Gin context key holding the decoded request body.
const bodyCtxKey = "capture_body"

// APIKeyMiddleware decodes the JSON body and checks its top-level api_key.
// With no configured keys any non-empty key is accepted.
func APIKeyMiddleware(keys []string, rec *Recorder) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			allowed[k] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(raw))

		rec.recordRequest(Request{
			Route:       c.FullPath(),
			ContentType: c.ContentType(),
			Body:        raw,
		})

		var body map[string]interface{}
		if err := json.Unmarshal(raw, &body); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}

		apiKey := strings.TrimSpace(stringField(body, "api_key"))
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if _, ok := allowed[apiKey]; len(allowed) > 0 && !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(bodyCtxKey, body)
		c.Next()
	}
}

// Body returns the decoded request body stored by APIKeyMiddleware.
func Body(c *gin.Context) map[string]interface{} {
	v, _ := c.Get(bodyCtxKey)
	m, _ := v.(map[string]interface{})
	return m
}
