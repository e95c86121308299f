package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/medisys/clinicore/internal/identity"
)

func (s *Server) ListNotifications(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, identity.ErrUnauthenticated)
		return
	}

	unreadOnly := c.Query("unread") == "true"
	notifications, err := s.notifySvc.ListMine(c.Request.Context(), actor, unreadOnly)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

func (s *Server) MarkNotificationRead(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, identity.ErrUnauthenticated)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := s.notifySvc.MarkRead(c.Request.Context(), actor, id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
