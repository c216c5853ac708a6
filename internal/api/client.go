// internal/api/client.go
package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RunMetadata describes a recorded run for the viewer server.
type RunMetadata struct {
	RunName    string
	ElapsedSec float64
	Simulated  bool
}

// Client uploads run artifacts to the viewer web frontend.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a client for the viewer at baseURL.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Healthcheck checks if the viewer is reachable.
func (c *Client) Healthcheck() error {
	resp, err := c.httpClient.Get(c.baseURL + "/healthcheck")
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// Upload streams an exported run file to the viewer as a multipart form.
// The file is piped rather than buffered; long runs produce large exports.
func (c *Client) Upload(filePath string, meta RunMetadata) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", filePath, err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	writeErr := make(chan error, 1)
	go func() {
		defer pw.Close()
		defer form.Close()
		writeErr <- c.writeForm(form, file, filepath.Base(filePath), meta)
	}()

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/v1/runs/add", pr)
	if err != nil {
		return fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := <-writeErr; err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upload returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) writeForm(form *multipart.Writer, file io.Reader, filename string, meta RunMetadata) error {
	_ = form.WriteField("secret", c.apiKey)
	_ = form.WriteField("filename", filename)
	_ = form.WriteField("runName", meta.RunName)
	_ = form.WriteField("elapsedSec", fmt.Sprintf("%f", meta.ElapsedSec))
	_ = form.WriteField("simulated", fmt.Sprintf("%t", meta.Simulated))

	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("streaming file: %w", err)
	}
	return nil
}
