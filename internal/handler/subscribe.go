package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"nhooyr.io/websocket"

	"github.com/lsst-ts/narrativelog/internal/stream"
	"github.com/lsst-ts/narrativelog/internal/taxonomy"
)

const subscribeWriteTimeout = 10 * time.Second

// @Summary Subscribe to the live message feed
// @Description Streams each newly added message (from an add or an edit) as a JSON object over a websocket. An optional components_path query parameter restricts the feed to messages whose components_json matches.
// @Tags messages
// @Router /narrativelog/messages/subscribe [get]
func (h *MessagesHandler) subscribe(c *gin.Context) {
	pathSpec, err := taxonomy.ParsePathSpec(c.Query("components_path"))
	if err != nil {
		Detail(c, http.StatusBadRequest, fmt.Sprintf("Invalid components_path: %v", err))
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		h.logError("websocket accept failed", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream aborted")

	sub := h.Hub.Subscribe()
	defer h.Hub.Unsubscribe(sub)

	// The client never sends application messages; CloseRead watches for
	// the close frame and cancels the context.
	ctx := conn.CloseRead(c.Request.Context())

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case event, ok := <-sub.Events():
			if !ok {
				// Dropped by the hub for falling behind.
				conn.Close(websocket.StatusTryAgainLater, "subscriber lagged")
				return
			}
			if event.Type != stream.EventAdded && event.Type != stream.EventEdited {
				continue
			}
			if pathSpec != nil {
				resp, ok := event.Message.(messageResponse)
				if !ok || !pathSpec.Matches(resp.ComponentsJSON) {
					continue
				}
			}
			payload, err := json.Marshal(event.Message)
			if err != nil {
				h.logError("live feed marshal failed", err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, subscribeWriteTimeout)
			err = conn.Write(writeCtx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
