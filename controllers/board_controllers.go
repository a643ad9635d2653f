package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/steamybites/board"
	"github.com/yeremiapane/steamybites/utils"
)

type BoardController struct {
	hub      *board.Hub
	upgrader websocket.Upgrader
}

// NewBoardController accepts websocket handshakes from allowedOrigins, or from
// any origin when the list is empty.
func NewBoardController(hub *board.Hub, allowedOrigins []string) *BoardController {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &BoardController{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowed) == 0 {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// OrderBoard upgrades to a websocket that receives order events until the client leaves.
func (bc *BoardController) OrderBoard(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ws, err := bc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.WithError(err).Warn("order board upgrade failed")
		return
	}

	bc.hub.Register(ws, userID)
	utils.InfoLogger.WithField("user_id", userID).Info("order board connected")

	// Incoming frames are ignored; reading detects the disconnect.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	bc.hub.Unregister(ws)
}
