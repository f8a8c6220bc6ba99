package controllers

import (
	"github.com/artisanmart/storefront/pkg/auth"
	"github.com/artisanmart/storefront/pkg/ctx"
	"github.com/artisanmart/storefront/pkg/ws"
)

type SessionController struct {
	sessions *ws.Registry
}

func NewSessionController(sessions *ws.Registry) *SessionController {
	return &SessionController{sessions: sessions}
}

// Connect upgrades to a websocket. Browsers cannot set headers on the
// handshake, so the token travels in the query string.
func (sc *SessionController) Connect(c *ctx.Context) {
	claims, err := auth.ValidateToken(c.Query("token"))
	if err != nil {
		c.Unauthorized("Invalid or expired token")
		return
	}
	ws.Serve(c.W, c.R, sc.sessions, claims.UserID)
}
