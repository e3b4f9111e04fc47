package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	convertHTMLPath = "/forms/chromium/convert/html"
	healthPath      = "/health"
	maxErrorBody    = 512
)

// PageOptions sets the paper geometry Gotenberg prints with, in inches. Zero values keep
// the Gotenberg defaults.
type PageOptions struct {
	PaperWidth   float64
	PaperHeight  float64
	MarginTop    float64
	MarginBottom float64
	MarginLeft   float64
	MarginRight  float64
}

// ReceiptPage prints receipts on A5 with narrow margins.
var ReceiptPage = PageOptions{PaperWidth: 5.83, PaperHeight: 8.27, MarginTop: 0.4, MarginBottom: 0.4, MarginLeft: 0.4, MarginRight: 0.4}

func (o PageOptions) fields() map[string]float64 {
	return map[string]float64{
		"paperWidth":   o.PaperWidth,
		"paperHeight":  o.PaperHeight,
		"marginTop":    o.MarginTop,
		"marginBottom": o.MarginBottom,
		"marginLeft":   o.MarginLeft,
		"marginRight":  o.MarginRight,
	}
}

// StatusError is returned when Gotenberg answers with a failure status.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("report: gotenberg status %d", e.Status)
	}
	return fmt.Sprintf("report: gotenberg status %d: %s", e.Status, e.Body)
}

// Client renders documents through a Gotenberg instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a client for the Gotenberg instance at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Ping checks the Gotenberg health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}

// RenderHTML converts an HTML document to PDF with the default page geometry.
func (c *Client) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	return c.RenderHTMLPage(ctx, html, PageOptions{})
}

// RenderHTMLPage converts an HTML document to PDF printed with page.
func (c *Client) RenderHTMLPage(ctx context.Context, html string, page PageOptions) ([]byte, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(part, html); err != nil {
		return nil, err
	}
	for name, value := range page.fields() {
		if value <= 0 {
			continue
		}
		if err := writer.WriteField(name, strconv.FormatFloat(value, 'f', -1, 64)); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+convertHTMLPath, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("report: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	return io.ReadAll(resp.Body)
}
