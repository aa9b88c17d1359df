package httpgin

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kirinyoku/tabgo/internal/domain"
)

const sseKeepAlive = 15 * time.Second

// @Summary  Stream changes of one check (server-sent events)
// @Tags     checks
// @Security StaffBearer
// @Param    id  path  string  true  "Check ID (uuid)"
// @Success  200  {string}  string  "text/event-stream"
// @Failure  404  {object}  ErrorResponse
// @Failure  503  {object}  ErrorResponse
// @Router   /checks/{id}/events [get]
func handleCheckEvents(d Deps, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}

		if d.Feed == nil {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "change feed unavailable"})
			return
		}

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		changes := make(chan domain.CheckChanged, 16)
		ready := make(chan struct{})
		feedErr := make(chan error, 1)
		go func() {
			feedErr <- d.Feed.Subscribe(ctx, func() { close(ready) }, func(_ context.Context, ev domain.CheckChanged) {
				if ev.CheckID != id {
					return
				}
				// slow readers only need the latest revision
				select {
				case changes <- ev:
				default:
				}
			})
		}()

		// the initial revision is read only once the subscription is live, so
		// no commit can fall between the two
		select {
		case <-ready:
		case err := <-feedErr:
			logger.Error("check events: subscribe", zap.String("check_id", id.String()), zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "change feed unavailable"})
			return
		case <-ctx.Done():
			return
		}

		detail, err := d.Checks.Get(ctx, id)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		c.SSEvent("revision", gin.H{"checkId": id, "revision": detail.Revision})
		c.Writer.Flush()

		ticker := time.NewTicker(sseKeepAlive)
		defer ticker.Stop()

		c.Stream(func(io.Writer) bool {
			select {
			case <-ctx.Done():
				return false
			case err := <-feedErr:
				flushPending(c, changes, detail.Revision)
				if ctx.Err() == nil {
					logger.Warn("check events: feed closed", zap.String("check_id", id.String()), zap.Error(err))
					c.SSEvent("error", gin.H{"error": "change feed closed"})
				}
				return false
			case ev := <-changes:
				sendChange(c, ev, detail.Revision)
				return true
			case <-ticker.C:
				c.SSEvent("ping", gin.H{"ts": time.Now().Unix()})
				return true
			}
		})
	}
}

// sendChange skips changes already covered by the initial revision.
func sendChange(c *gin.Context, ev domain.CheckChanged, seen int64) {
	if ev.Revision <= seen {
		return
	}
	c.SSEvent("check_changed", ev)
}

func flushPending(c *gin.Context, changes <-chan domain.CheckChanged, seen int64) {
	for {
		select {
		case ev := <-changes:
			sendChange(c, ev, seen)
		default:
			return
		}
	}
}
