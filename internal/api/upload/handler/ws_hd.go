package uploadHandler

import (
	"errors"
	"time"

	"AirlineETL/internal/api/upload"
	contextPkg "AirlineETL/pkg/context"
	"AirlineETL/pkg/log"
	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/net/context"
)

var (
	progressPollInterval = 500 * time.Millisecond
	maxWatchDuration     = 30 * time.Minute
)

// watchProgress streams progress snapshots for one upload until it reaches a
// terminal status or the client goes away. Unchanged snapshots are skipped.
func (h *UploadHandler) watchProgress(c *websocket.Conn) {
	uploadID := c.Params("id")
	requestID, _ := c.Locals(contextPkg.RequestHeader).(string)
	fields := log.Fields{"request_id": requestID, "upload_id": uploadID}

	h.log.WithFields(fields).Info("Progress WebSocket client connected")
	defer h.log.WithFields(fields).Info("Progress WebSocket client disconnected")

	ctx, cancel := context.WithTimeout(contextPkg.WithRequestID(context.Background(), requestID), maxWatchDuration)
	defer cancel()

	// reads only detect the client closing
	go func() {
		defer cancel()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(progressPollInterval)
	defer ticker.Stop()

	var last []byte
	for {
		progress, err := h.uploadService.Progress(ctx, uploadID)
		if err != nil {
			msg := "failed to read progress"
			if errors.Is(err, upload.ErrUploadNotFound) {
				msg = upload.ErrUploadNotFound.Error()
			}
			_ = c.WriteJSON(map[string]string{"error": msg})
			_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, msg))
			return
		}

		snapshot, err := jsoniter.Marshal(progress)
		if err == nil && string(snapshot) != string(last) {
			if err := c.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
				return
			}
			if err := c.WriteMessage(websocket.TextMessage, snapshot); err != nil {
				h.log.WithFields(fields).Errorf("Error writing progress: %v", err)
				return
			}
			last = snapshot
		}

		if progress.Status.Terminal() {
			_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(progress.Status)))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
