package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// StreamEvents handles GET /api/v1/events
// Streams job lifecycle messages to the client as server-sent events. An
// optional job_id query parameter narrows the stream to one job. The observer
// is best-effort: if the client stops reading, the broadcaster detaches it
// and the stream ends.
func (h *JobHandler) StreamEvents(c *gin.Context) {
	jobID := c.Query("job_id")

	observer := h.broadcaster.Attach()
	defer h.broadcaster.Detach(observer)

	h.logger.Info("Event stream opened",
		slog.String("client_ip", c.ClientIP()),
		slog.String("job_id", jobID),
	)
	defer h.logger.Info("Event stream closed",
		slog.String("client_ip", c.ClientIP()),
	)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeaderNow()

	clientGone := c.Request.Context().Done()

	for {
		select {
		case <-clientGone:
			return
		case msg, ok := <-observer.Messages():
			if !ok {
				// Detached by the broadcaster, either slow or shutting down.
				return
			}
			if jobID != "" && msg.JobID != jobID {
				continue
			}
			c.SSEvent(string(msg.Type), msg)
			c.Writer.Flush()
			if jobID != "" && msg.IsTerminal() {
				return
			}
		}
	}
}
