// Package uploadclient talks to the upload service: it detects datasets
// locally, uploads files with progress reporting, triggers processing and
// follows processing progress over a websocket.
//
// Every remote call returns a Result; transport and server failures are
// reported in Result.Error rather than as Go errors.
package uploadclient

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"AirlineETL/pkg/detector"
	"AirlineETL/pkg/response"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const apiPrefix = "/api/v1"

// Result is the tagged outcome of a remote call. Status is the HTTP status,
// or 0 when no response was received.
type Result struct {
	Success bool                `json:"success"`
	Status  int                 `json:"status"`
	Data    jsoniter.RawMessage `json:"data,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// Decode unmarshals Data into v.
func (r Result) Decode(v any) error {
	if len(r.Data) == 0 {
		return fmt.Errorf("result has no data")
	}
	return jsoniter.Unmarshal(r.Data, v)
}

type Client struct {
	baseURL string
	http    HTTPDoer
	dialer  *websocket.Dialer
	log     *logrus.Logger
}

type Option func(*Client)

func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		c.http = doer
	}
}

// WithRetry sets how many times idempotent failures are retried and the
// backoff bounds between attempts.
func WithRetry(maxRetries int, baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		rd := c.retry()
		rd.maxRetries = maxRetries
		rd.baseDelay = baseDelay
		rd.maxDelay = maxDelay
	}
}

func WithLogger(logger *logrus.Logger) Option {
	return func(c *Client) {
		c.log = logger
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:     logrus.StandardLogger(),
	}
	c.http = &retryDoer{
		client:     &http.Client{Timeout: 5 * time.Minute},
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
		maxDelay:   10 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	if rd, ok := c.http.(*retryDoer); ok {
		rd.log = c.log
	}
	return c
}

func (c *Client) retry() *retryDoer {
	if rd, ok := c.http.(*retryDoer); ok {
		return rd
	}
	rd := &retryDoer{client: c.http}
	c.http = rd
	return rd
}

// Detect guesses the dataset of f without contacting the server.
func (c *Client) Detect(ctx context.Context, f detector.File) detector.Result {
	return detector.Detect(ctx, f)
}

// Upload posts f as multipart form data. An empty dataset leaves detection
// to the server. progress may be nil.
func (c *Client) Upload(ctx context.Context, f detector.File, dataset detector.Dataset, progress ProgressFunc) Result {
	body, contentType, err := buildForm(f, dataset)
	if err != nil {
		return Result{Error: err.Error()}
	}

	tracker := newProgressTracker(int64(len(body)), progress)
	newBody := func() io.ReadCloser {
		return &progressReader{r: bytes.NewReader(body), tracker: tracker}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiPrefix+"/uploads", newBody())
	if err != nil {
		return Result{Error: err.Error()}
	}
	req.ContentLength = int64(len(body))
	req.GetBody = func() (io.ReadCloser, error) { return newBody(), nil }
	req.Header.Set("Content-Type", contentType)

	res := c.do(req)
	if res.Success {
		tracker.done()
	}
	return res
}

// Process triggers server side cleaning of a staged upload. An empty
// dataset reuses the dataset detected at upload time.
func (c *Client) Process(ctx context.Context, uploadID string, dataset detector.Dataset) Result {
	if uploadID == "" {
		return Result{Error: "upload id is required"}
	}

	payload, err := jsoniter.Marshal(map[string]string{"dataset": string(dataset)})
	if err != nil {
		return Result{Error: err.Error()}
	}

	endpoint := fmt.Sprintf("%s%s/uploads/%s/process", c.baseURL, apiPrefix, url.PathEscape(uploadID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Result{Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

// Status fetches the stored upload and its latest progress.
func (c *Client) Status(ctx context.Context, uploadID string) Result {
	endpoint := fmt.Sprintf("%s%s/uploads/%s", c.baseURL, apiPrefix, url.PathEscape(uploadID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{Error: err.Error()}
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) Result {
	resp, err := c.http.Do(req)
	if err != nil {
		return Result{Error: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Status: resp.StatusCode, Error: err.Error()}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Result{Success: true, Status: resp.StatusCode, Data: raw}
	}

	res := Result{Status: resp.StatusCode, Data: raw}
	var body response.Body
	if err := jsoniter.Unmarshal(raw, &body); err == nil && body.Error != "" {
		res.Error = body.Error
	} else {
		res.Error = fmt.Sprintf("server returned %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return res
}

func buildForm(f detector.File, dataset detector.Dataset) ([]byte, string, error) {
	if f == nil {
		return nil, "", fmt.Errorf("no file given")
	}

	src, err := f.Open()
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", f.Name(), err)
	}
	defer src.Close()

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	part, err := w.CreateFormFile("file", filepath.Base(f.Name()))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, src); err != nil {
		return nil, "", fmt.Errorf("read %s: %w", f.Name(), err)
	}

	if dataset != "" {
		if err := w.WriteField("dataset", string(dataset)); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}
