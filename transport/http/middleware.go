package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/burner/service"
	"github.com/sirupsen/logrus"
)

const (
	// SessionCookie carries the signed session token
	SessionCookie = "burner_session"

	sessionKey = "sessionID"
)

// SessionMiddleware resumes the browser session from its cookie, or opens a new one
func SessionMiddleware(sessions *service.SessionService, secure bool, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
			session, err := sessions.Resume(token)
			if err == nil {
				c.Set(sessionKey, session.ID)
				c.Next()
				return
			}
			logger.WithError(err).Debug("discarding session cookie")
		}

		session, token, err := sessions.Start()
		if err != nil {
			logger.WithError(err).Error("failed to start session")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to start session"})
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookie, token, int(sessions.TTL().Seconds()), "/", "", secure, true)
		c.Set(sessionKey, session.ID)

		c.Next()
	}
}

// RequestLogger logs each request through logrus
func RequestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})
		if len(c.Errors) > 0 {
			entry.Warn(c.Errors.String())
			return
		}
		entry.Debug("request served")
	}
}

func sessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}
