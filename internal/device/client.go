// Package device is the HTTP client for the external fingerprint capture
// service. The service owns the reader hardware and the matching algorithm;
// this package only speaks its form-POST/JSON contract and normalizes its
// failures into a typed taxonomy.
package device

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/quillback/fingerid/internal/fingerid/types"
)

const (
	capturePath = "/SGIFPCapture"
	comparePath = "/SGIMatchScore"
)

// CaptureConfig is forwarded to the device on every acquisition.
type CaptureConfig struct {
	TimeoutMs          int
	QualityThreshold   int // 0-100
	TemplateFormat     string
	WSQCompressionRate float64
}

// DefaultCaptureConfig mirrors the vendor-recommended defaults.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		TimeoutMs:          10000,
		QualityThreshold:   80,
		TemplateFormat:     "ISO",
		WSQCompressionRate: 0.75,
	}
}

type ClientConfig struct {
	BaseURL        string        // e.g. "https://localhost:8443"
	License        string        // vendor license string, may be empty
	TemplateFormat string        // used for pairwise comparisons, default "ISO"
	Timeout        time.Duration // overall HTTP timeout; should exceed the device TimeoutMs
}

type Client struct {
	baseURL        string
	license        string
	templateFormat string
	http           *http.Client
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	format := cfg.TemplateFormat
	if format == "" {
		format = "ISO"
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		license:        cfg.License,
		templateFormat: format,
		http:           &http.Client{Timeout: timeout},
	}
}

type captureResponse struct {
	ErrorCode      int    `json:"ErrorCode"`
	TemplateBase64 string `json:"TemplateBase64"`
	BMPBase64      string `json:"BMPBase64"`
	ImageQuality   int    `json:"ImageQuality"`
	NFIQ           int    `json:"NFIQ"`
}

type compareResponse struct {
	ErrorCode     int `json:"ErrorCode"`
	MatchingScore int `json:"MatchingScore"`
}

// Capture triggers one acquisition on the reader and returns the extracted
// template plus preview image. No retries — a failed capture is surfaced
// immediately so the operator can re-trigger.
func (c *Client) Capture(ctx context.Context, cfg CaptureConfig) (types.CaptureResult, error) {
	form := url.Values{
		"Timeout":        {strconv.Itoa(cfg.TimeoutMs)},
		"Quality":        {strconv.Itoa(cfg.QualityThreshold)},
		"licstr":         {c.license},
		"templateFormat": {cfg.TemplateFormat},
		"imageWSQRate":   {strconv.FormatFloat(cfg.WSQCompressionRate, 'f', -1, 64)},
	}

	var resp captureResponse
	if err := c.postForm(ctx, "capture", capturePath, form, &resp); err != nil {
		return types.CaptureResult{}, err
	}
	if resp.ErrorCode != 0 {
		return types.CaptureResult{}, &DeviceError{Code: resp.ErrorCode, Description: describeCode(resp.ErrorCode)}
	}

	return types.CaptureResult{
		Template:     resp.TemplateBase64,
		PreviewImage: resp.BMPBase64,
		Quality:      resp.ImageQuality,
		NFIQ:         resp.NFIQ,
	}, nil
}

// Compare asks the device service for a pairwise matching score between two
// templates on its 0-199 scale.
func (c *Client) Compare(ctx context.Context, probe, candidate string) (int, error) {
	form := url.Values{
		"Template1":      {probe},
		"Template2":      {candidate},
		"licstr":         {c.license},
		"templateFormat": {c.templateFormat},
	}

	var resp compareResponse
	if err := c.postForm(ctx, "compare", comparePath, form, &resp); err != nil {
		return 0, err
	}
	if resp.ErrorCode != 0 {
		return 0, &DeviceError{Code: resp.ErrorCode, Description: describeCode(resp.ErrorCode)}
	}
	return resp.MatchingScore, nil
}

func (c *Client) postForm(ctx context.Context, op, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
