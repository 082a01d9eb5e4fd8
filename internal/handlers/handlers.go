package handlers

import (
	"net/http"

	"github.com/memedici/artfeed/internal/sessions"
	"github.com/memedici/artfeed/pkg/logging"
	"github.com/memedici/artfeed/pkg/middleware"
	"github.com/memedici/artfeed/pkg/models"
)

var (
	manager *sessions.Manager
	logger  logging.Logger
)

// Init initializes the handlers with the session manager and logger
func Init(m *sessions.Manager, log logging.Logger) {
	manager = m
	logger = log
}

// CreateSession opens a new feed session and returns its handle together
// with the first page already loaded, so the caller can render without a
// second round trip.
func CreateSession(c middleware.Context) {
	sess := manager.Create()
	c.JSON(http.StatusCreated, models.CreateSessionResponse{
		SessionID: sess.ID(),
		Snapshot:  sess.LoadMore(c.Request.Context()),
	})
}

// GetSession returns the current snapshot without advancing the feed.
func GetSession(c middleware.Context) {
	sess, ok := manager.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "session not found"})
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

// LoadMore advances the session by one page. Upstream failure never turns
// into a 5xx here: the session degrades to synthetic content and the
// snapshot carries the Degraded flag instead.
func LoadMore(c middleware.Context) {
	sess, ok := manager.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "session not found"})
		return
	}
	c.JSON(http.StatusOK, sess.LoadMore(c.Request.Context()))
}

// ResetSession clears the session's feed and like overlay so the next
// load starts over.
func ResetSession(c middleware.Context) {
	sess, ok := manager.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "session not found"})
		return
	}
	c.JSON(http.StatusOK, sess.Reset())
}

// ToggleLike flips the like state of one loaded item.
func ToggleLike(c middleware.Context) {
	sess, ok := manager.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "session not found"})
		return
	}

	itemID := c.Param("itemID")
	resp, ok := sess.ToggleLike(itemID)
	if !ok {
		logger.WithFields(logging.Fields{
			"session_id": sess.ID(),
			"item_id":    itemID,
		}).Debug("Like toggle for item not in session")
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "item not found in session"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteSession removes a session. Service-token protected; clients
// normally just abandon sessions and let the idle janitor reap them.
func DeleteSession(c middleware.Context) {
	if !manager.Delete(c.Param("id")) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "session not found"})
		return
	}
	c.Status(http.StatusNoContent)
}
