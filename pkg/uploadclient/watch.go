package uploadclient

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/net/context"
)

// Status is one progress snapshot pushed by the server.
type Status struct {
	UploadID  string `json:"upload_id"`
	Status    string `json:"status"`
	Percent   int    `json:"percent"`
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
	Total     int    `json:"total"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (s Status) terminal() bool {
	return s.Status == "processed" || s.Status == "failed"
}

// Watch follows processing progress for uploadID, calling fn for every
// snapshot, until processing ends, the server closes the stream or ctx is
// done. The final snapshot is returned in Result.Data.
func (c *Client) Watch(ctx context.Context, uploadID string, fn func(Status)) Result {
	endpoint, err := c.wsURL(uploadID)
	if err != nil {
		return Result{Error: err.Error()}
	}

	conn, resp, err := c.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		res := Result{Error: err.Error()}
		if resp != nil {
			res.Status = resp.StatusCode
		}
		return res
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	var last Status
	var lastRaw []byte
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return Result{Data: lastRaw, Error: ctx.Err().Error()}
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) && lastRaw != nil {
				return finalResult(last, lastRaw)
			}
			return Result{Data: lastRaw, Error: err.Error()}
		}

		var st Status
		if err := jsoniter.Unmarshal(msg, &st); err != nil {
			return Result{Data: msg, Error: fmt.Sprintf("decode progress: %v", err)}
		}
		if st.Error != "" {
			return Result{Data: msg, Error: st.Error}
		}

		last, lastRaw = st, msg
		if fn != nil {
			fn(st)
		}
		if st.terminal() {
			return finalResult(last, lastRaw)
		}
	}
}

func finalResult(st Status, raw []byte) Result {
	if st.Status == "failed" {
		msg := st.Message
		if msg == "" {
			msg = "processing failed"
		}
		return Result{Data: raw, Error: msg}
	}
	return Result{Success: true, Data: raw}
}

func (c *Client) wsURL(uploadID string) (string, error) {
	if uploadID == "" {
		return "", fmt.Errorf("upload id is required")
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + apiPrefix + "/uploads/" + url.PathEscape(uploadID) + "/ws"
	return u.String(), nil
}
