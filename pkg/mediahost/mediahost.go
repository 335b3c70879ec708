package mediahost

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Config holds media host connection details.
type Config struct {
	// BaseURL is the root of the media host API, e.g. "https://media.example.com".
	BaseURL string
	// APIKey is sent as X-Api-Key on every request.
	APIKey string
	// Timeout bounds each HTTP call. Zero means 15s.
	Timeout time.Duration
}

// Client talks to the external media host over HTTP using Fiber's bundled
// agent. Uploads return permanent reference URLs; deletion takes a reference
// URL and parses the image id back out of its path.
type Client struct {
	baseURL string
	scheme  string
	host    string
	apiKey  string
	timeout time.Duration
}

// uploadResponse is the host's reply to both upload forms.
type uploadResponse struct {
	URL string `json:"url"`
}

// NewClient creates a new media host client.
func NewClient(cfg Config) (*Client, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid media host base URL %q", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		scheme:  parsed.Scheme,
		host:    parsed.Host,
		apiKey:  cfg.APIKey,
		timeout: timeout,
	}, nil
}

// UploadFile stores binary image data on the host and returns its reference URL.
func (c *Client) UploadFile(filename, contentType string, data []byte) (string, error) {
	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)
	args.Set("contentType", contentType)

	agent := fiber.Post(c.baseURL + "/api/upload").
		Set("X-Api-Key", c.apiKey).
		Timeout(c.timeout).
		FileData(&fiber.FormFile{
			Fieldname: "image",
			Name:      filename,
			Content:   data,
		}).
		MultipartForm(args)
	if err := agent.Parse(); err != nil {
		return "", fmt.Errorf("failed to prepare upload request: %w", err)
	}

	return c.parseUpload(agent.Bytes())
}

// UploadRemote asks the host to fetch an image from srcURL and re-host it,
// returning the new reference URL.
func (c *Client) UploadRemote(srcURL string) (string, error) {
	agent := fiber.Post(c.baseURL + "/api/upload").
		Set("X-Api-Key", c.apiKey).
		Timeout(c.timeout).
		JSON(fiber.Map{"url": srcURL})
	if err := agent.Parse(); err != nil {
		return "", fmt.Errorf("failed to prepare upload request: %w", err)
	}

	return c.parseUpload(agent.Bytes())
}

// Delete removes an image by its reference URL.
func (c *Client) Delete(refURL string) error {
	id, err := c.imageID(refURL)
	if err != nil {
		return err
	}

	agent := fiber.Delete(c.baseURL + "/api/images/" + id).
		Set("X-Api-Key", c.apiKey).
		Timeout(c.timeout)
	if err := agent.Parse(); err != nil {
		return fmt.Errorf("failed to prepare delete request: %w", err)
	}

	code, _, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("failed to delete image %s: %v", id, errs[0])
	}
	if code < 200 || code >= 300 {
		return fmt.Errorf("media host returned status %d deleting image %s", code, id)
	}
	return nil
}

// Owns reports whether a URL points at this media host.
func (c *Client) Owns(refURL string) bool {
	parsed, err := url.Parse(refURL)
	if err != nil {
		return false
	}
	return parsed.Scheme == c.scheme && parsed.Host == c.host
}

// imageID extracts the host's image identifier, embedded as the last path
// segment of a reference URL.
func (c *Client) imageID(refURL string) (string, error) {
	if !c.Owns(refURL) {
		return "", fmt.Errorf("URL %q does not belong to the media host", refURL)
	}
	parsed, err := url.Parse(refURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse reference URL %q: %w", refURL, err)
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	id := segments[len(segments)-1]
	if id == "" {
		return "", fmt.Errorf("reference URL %q carries no image id", refURL)
	}
	return id, nil
}

func (c *Client) parseUpload(code int, body []byte, errs []error) (string, error) {
	if len(errs) > 0 {
		return "", fmt.Errorf("media host request failed: %v", errs[0])
	}
	if code < 200 || code >= 300 {
		return "", fmt.Errorf("media host returned status %d", code)
	}
	var resp uploadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode media host response: %w", err)
	}
	if resp.URL == "" {
		return "", fmt.Errorf("media host response carries no URL")
	}
	return resp.URL, nil
}
