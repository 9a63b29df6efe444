package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nordicstoday/nordics-today/infrastructure/jwt"
	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/internal/newsletter"
	"github.com/nordicstoday/nordics-today/internal/push"
)

// adminLog tags admin actions with the editor from the token.
func (r *Router) adminLog(c *gin.Context, action string) logger.Logger {
	log := r.requestLog(c).With(logger.String("action", action))
	if claims, ok := jwt.GetClaims(c); ok {
		log = log.With(logger.String("editor", claims.Subject))
	}
	return log
}

// sendNewsletter mails a prepared issue to every active subscriber.
// POST /api/admin/newsletter/send
func (r *Router) sendNewsletter(c *gin.Context) {
	if r.deps.Mailer == nil {
		unavailable(c)
		return
	}
	var msg newsletter.Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: subject, html"})
		return
	}

	log := r.adminLog(c, "newsletter_send")
	res, err := r.deps.Mailer.Send(c.Request.Context(), msg)
	switch {
	case errors.Is(err, newsletter.ErrNoSubscribers):
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "No active subscribers", "sent": 0})
	case err != nil:
		log.Error("Newsletter send failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send newsletter"})
	default:
		log.Info("Newsletter sent", logger.Int("sent", res.Sent), logger.Int("failed", res.Failed))
		c.JSON(http.StatusOK, gin.H{"success": true, "sent": res.Sent, "failed": res.Failed, "total": res.Total})
	}
}

// sendDigest composes and sends this week's digest now.
// POST /api/admin/newsletter/digest
func (r *Router) sendDigest(c *gin.Context) {
	if r.deps.Digest == nil {
		unavailable(c)
		return
	}

	log := r.adminLog(c, "digest_send")
	res, err := r.deps.Digest.Run(c.Request.Context())
	switch {
	case errors.Is(err, newsletter.ErrAlreadySent):
		c.JSON(http.StatusConflict, gin.H{"error": "Digest already sent this week"})
	case errors.Is(err, newsletter.ErrNoArticles):
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "No articles found this week"})
	case err != nil:
		log.Error("Digest failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send digest"})
	default:
		log.Info("Digest sent", logger.String("subject", res.Subject), logger.Int("sent", res.Sent))
		c.JSON(http.StatusOK, gin.H{"success": true, "result": res})
	}
}

// sendPush broadcasts a notification to every push subscriber.
// POST /api/admin/push/send
func (r *Router) sendPush(c *gin.Context) {
	if r.deps.Push == nil {
		unavailable(c)
		return
	}
	var n push.Notification
	if err := c.ShouldBindJSON(&n); err != nil || n.Body == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: title, body"})
		return
	}

	log := r.adminLog(c, "push_send")
	res, err := r.deps.Push.Broadcast(c.Request.Context(), n)
	if err != nil {
		log.Error("Push broadcast failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send notifications"})
		return
	}
	log.Info("Push broadcast sent", logger.Int("sent", res.Sent), logger.Int("removed", res.Removed))
	c.JSON(http.StatusOK, gin.H{"success": true, "result": res})
}

// purgeCache drops every cached article read.
// POST /api/admin/cache/purge
func (r *Router) purgeCache(c *gin.Context) {
	if r.deps.Cache == nil {
		unavailable(c)
		return
	}
	n := r.deps.Cache.Purge()
	r.adminLog(c, "cache_purge").Info("Cache purged", logger.Int("entries", n))
	c.JSON(http.StatusOK, gin.H{"success": true, "purged": n})
}
