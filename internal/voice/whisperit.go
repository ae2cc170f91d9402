package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultFilename is sent when the caller has no file name for the audio.
const DefaultFilename = "recording.webm"

// DefaultTimeout bounds one transcription request.
const DefaultTimeout = 60 * time.Second

// ErrDisabled is returned when no API URL or key is configured.
var ErrDisabled = errors.New("speech-to-text is not configured")

// Transcriber turns audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// Config holds the Whisperit endpoint and credentials.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Enabled reports whether both URL and key are set.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.URL) != "" && strings.TrimSpace(c.APIKey) != ""
}

// TransportError is a failed call to the transcription API.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("whisperit request failed (%d)", e.StatusCode)
	}
	return fmt.Sprintf("whisperit request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client is a Whisperit Transcriber.
type Client struct {
	cfg    Config
	client *resty.Client
}

var _ Transcriber = (*Client)(nil)

// NewClient creates a Client. An unconfigured client answers every call
// with ErrDisabled.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	c := &Client{cfg: cfg}
	if cfg.Enabled() {
		c.client = resty.New().
			SetTimeout(cfg.Timeout).
			SetAuthToken(cfg.APIKey)
	}
	return c
}

// Enabled reports whether the client will call the API.
func (c *Client) Enabled() bool { return c.client != nil }

type transcriptResponse struct {
	Text       *string `json:"text"`
	Transcript *string `json:"transcript"`
}

// Transcribe uploads audio as the multipart field "file". It returns the
// response's text field, or transcript when text is absent.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	if c.client == nil {
		return "", ErrDisabled
	}
	if filename == "" {
		filename = DefaultFilename
	}

	var out transcriptResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetFileReader("file", filename, audio).
		SetResult(&out).
		ForceContentType("application/json").
		Post(c.cfg.URL)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	if !resp.IsSuccess() {
		return "", &TransportError{StatusCode: resp.StatusCode()}
	}

	switch {
	case out.Text != nil:
		return *out.Text, nil
	case out.Transcript != nil:
		return *out.Transcript, nil
	}
	return "", nil
}
