// internal/relay/ws.go
package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	log "github.com/sirupsen/logrus"
)

// Subprotocol views must negotiate when attaching over websocket.
const Subprotocol = "portal-relay"

const writeTimeout = 3 * time.Second

// AttachHandler upgrades the HTTP connection to a websocket view
// channel: broadcasts and pull responses flow out through the view's
// Out channel, control messages flow in through the read loop.
func AttachHandler(logger *log.Logger, w *Worker) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(rw, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != Subprotocol {
			logger.Warnf("Client connected with invalid subprotocol: %s", c.Subprotocol())
			c.Close(websocket.StatusPolicyViolation, "Client must use the 'portal-relay' subprotocol.")
			return
		}

		view := NewViewConn()
		ctx, cancel := context.WithCancel(r.Context())
		view.Cancel = cancel
		w.Attach(view)
		logger.Infof("View %s attached from %s", view.ID, r.RemoteAddr)

		go writePump(ctx, c, view, logger)

		readViewMessages(ctx, c, w, view, logger)

		w.Detach(view.ID)
		logger.Infof("View %s read loop exited", view.ID)
	}
}

// writePump drains the view's Out channel onto the websocket. It exits
// when the channel closes (detach) or the context is cancelled.
func writePump(ctx context.Context, c *websocket.Conn, view *ViewConn, logger *log.Logger) {
	for {
		select {
		case msg, ok := <-view.Out:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Errorf("Failed to marshal relay message for view %s: %v", view.ID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("Failed to write to view %s: %v", view.ID, err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func readViewMessages(ctx context.Context, c *websocket.Conn, w *Worker, view *ViewConn, logger *log.Logger) {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Infof("WebSocket closed normally for view %s", view.ID)
			} else if strings.Contains(err.Error(), "context canceled") {
				logger.Infof("WebSocket context canceled for view %s", view.ID)
			} else {
				logger.Warnf("Error reading from view %s: %v (Status: %d)", view.ID, err, status)
			}
			return
		}

		if msgType != websocket.MessageText {
			logger.Warnf("Received non-text message type %d from view %s. Ignoring.", msgType, view.ID)
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("Invalid JSON from view %s: %v. Data: %s", view.ID, err, string(data))
			continue
		}

		w.HandleMessage(ctx, view, msg)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}
