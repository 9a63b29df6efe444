package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nordicstoday/nordics-today/infrastructure/logger"
	"github.com/nordicstoday/nordics-today/internal/contribute"
	"github.com/nordicstoday/nordics-today/internal/domain"
	"github.com/nordicstoday/nordics-today/internal/newsletter"
	"github.com/nordicstoday/nordics-today/internal/push"
)

// SubscribeRequest is the body of POST /api/newsletter/subscribe.
type SubscribeRequest struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Source string `json:"source"`
}

// POST /api/newsletter/subscribe
func (r *Router) subscribe(c *gin.Context) {
	if r.deps.Newsletter == nil {
		unavailable(c)
		return
	}
	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Valid email is required"})
		return
	}

	msg, err := r.deps.Newsletter.Subscribe(c.Request.Context(), req.Email, req.Name, req.Source)
	switch {
	case errors.Is(err, newsletter.ErrInvalidEmail):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Valid email is required"})
	case err != nil:
		r.requestLog(c).Error("Newsletter subscribe failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to subscribe"})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
	}
}

// POST /api/newsletter/unsubscribe
func (r *Router) unsubscribe(c *gin.Context) {
	if r.deps.Newsletter == nil {
		unavailable(c)
		return
	}
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required"})
		return
	}

	msg, err := r.deps.Newsletter.Unsubscribe(c.Request.Context(), req.Email)
	switch {
	case errors.Is(err, newsletter.ErrInvalidEmail):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required"})
	case err != nil:
		r.requestLog(c).Error("Newsletter unsubscribe failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unsubscribe"})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
	}
}

// PushSubscriptionRequest is a browser PushSubscription as serialised by
// PushSubscription.toJSON().
type PushSubscriptionRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// POST /api/push/subscribe
func (r *Router) pushSubscribe(c *gin.Context) {
	if r.deps.Push == nil {
		unavailable(c)
		return
	}
	var req PushSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Endpoint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subscription"})
		return
	}

	err := r.deps.Push.Subscribe(c.Request.Context(), domain.PushSubscription{
		Endpoint: req.Endpoint,
		P256dh:   req.Keys.P256dh,
		Auth:     req.Keys.Auth,
	}, c.Request.UserAgent())
	switch {
	case errors.Is(err, push.ErrInvalidSubscription):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subscription"})
	case err != nil:
		r.requestLog(c).Error("Failed to save push subscription", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save subscription"})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// DELETE /api/push/subscribe
func (r *Router) pushUnsubscribe(c *gin.Context) {
	if r.deps.Push == nil {
		unavailable(c)
		return
	}
	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Endpoint == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing endpoint"})
		return
	}

	if err := r.deps.Push.Unsubscribe(c.Request.Context(), req.Endpoint); err != nil {
		r.requestLog(c).Error("Failed to delete push subscription", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete subscription"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// contribute accepts an opinion submission as JSON or a form post.
// POST /api/contribute
func (r *Router) contribute(c *gin.Context) {
	if r.deps.Contribute == nil {
		unavailable(c)
		return
	}
	var form contribute.Form
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid submission"})
		return
	}

	id, err := r.deps.Contribute.Submit(c.Request.Context(), form)
	var invalid *contribute.ValidationError
	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": invalid.Message})
	case err != nil:
		r.requestLog(c).Error("Failed to file submission", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to submit article. Please try again.",
		})
	default:
		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"id":      id,
			"message": "Thank you! Your submission has been received and will be reviewed by our editors.",
		})
	}
}

func unavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service unavailable"})
}
