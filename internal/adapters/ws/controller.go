// Package ws is the websocket transport adapter: it owns connection
// upgrade, the read/write pumps and the inbound frame protocol, and
// translates frames into gateway operations.
package ws

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/parleychat/parley/internal/app"
	"github.com/parleychat/parley/internal/config"
)

type Controller struct {
	gw      *app.Gateway
	cfg     *config.Config
	limiter *RateLimiter
}

func NewController(gw *app.Gateway, cfg *config.Config) *Controller {
	return &Controller{
		gw:      gw,
		cfg:     cfg,
		limiter: NewRateLimiter(cfg.SendLimit, cfg.SendInterval),
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS upgrades the request and connects the session. The client
// token is placed on the gin context by the router middleware.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	token := c.GetString("client_token")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("ws upgrade")
		return
	}

	conn := newWSConn(ws)
	sess, err := ctl.gw.Connect(ctx, token, conn)
	if err != nil {
		log.Warn().Err(err).Str("module", "ws").Msg("connect rejected")
		_ = ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed"))
		_ = ws.Close()
		return
	}
	log.Info().Str("module", "ws").Str("handle", string(sess.Handle)).Str("user", string(sess.UserID)).Msg("new WS connection")

	connCtx, cancel := context.WithCancel(ctx)
	go ctl.writePump(connCtx, conn)
	go ctl.readPump(connCtx, cancel, sess, conn)
}
