package tarana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/azimuth-networks/radiosync/internal/config"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	defaultHTTPTimeout = 60 * time.Second
	firmwareFetchLimit = 10
)

// Client is the device boundary consumed by the operation engine. Every call
// is one synchronous round-trip with no retry logic of its own.
type Client interface {
	GetRadio(ctx context.Context, serial string) (*Radio, error)
	PushConfig(ctx context.Context, serial string, cfg RadioConfig) error
	Reconnect(ctx context.Context, serial string) error
	Reboot(ctx context.Context, serial string) error
	Delete(ctx context.Context, serial string) error
	StartSpeedTest(ctx context.Context, serial string) (string, error)
	GetSpeedTest(ctx context.Context, operationID, serial string) (*SpeedTestResult, error)
	ListFirmwarePackages(ctx context.Context, rnCompatible, bnCompatible bool) ([]FirmwarePackage, error)
	UpgradeFirmware(ctx context.Context, serial, packageID string, activate, factory bool) error
}

// ClientConfig customizes the HTTP client. Zero values fall back to the
// environment-derived defaults.
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// HTTPClient talks to the Tarana cloud API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewClient builds an HTTP client for the cloud API.
func NewClient(cfg ClientConfig) (*HTTPClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("tarana client: base url is empty")
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("tarana client: api key is empty")
	}
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPClient{baseURL: baseURL, apiKey: apiKey, httpc: httpc}, nil
}

// NewClientFromEnv builds a client using settings from the environment.
func NewClientFromEnv() (*HTTPClient, error) {
	settings := config.Load()
	if err := settings.ValidateAPI(); err != nil {
		return nil, err
	}
	return NewClient(ClientConfig{BaseURL: settings.APIBaseURL, APIKey: settings.APIKey})
}

// envelope is the {"data": ...} wrapper most endpoints use.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "%s: encode request", op)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrapf(err, "%s: build request", op)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	// The cloud answers 202 for accepted mutations.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		log.Debug().
			Str("op", op).
			Int("status", resp.StatusCode).
			Str("body", string(payload)).
			Msg("api request rejected")
		return &APIError{Op: op, StatusCode: resp.StatusCode, Message: apiMessage(payload)}
	}
	if out == nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return errors.Wrapf(err, "%s: decode response", op)
	}
	data := env.Data
	if len(data) == 0 {
		// Some endpoints return the record at the root.
		data = payload
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "%s: decode payload", op)
	}
	return nil
}

func apiMessage(payload []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return strings.TrimSpace(string(payload))
	}
	if body.Message != "" {
		return body.Message
	}
	if body.Error.Message != "" {
		return body.Error.Message
	}
	return strings.TrimSpace(string(payload))
}

// GetRadio fetches the status record for one radio.
func (c *HTTPClient) GetRadio(ctx context.Context, serial string) (*Radio, error) {
	var radio Radio
	err := c.do(ctx, "get radio", http.MethodGet, "/v2/network/radios/"+url.PathEscape(serial), nil, &radio)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, &NotFoundError{SerialNumber: serial}
		}
		return nil, err
	}
	return &radio, nil
}

// PushConfig applies a configuration payload to one radio.
func (c *HTTPClient) PushConfig(ctx context.Context, serial string, cfg RadioConfig) error {
	return c.do(ctx, "push config", http.MethodPatch, "/v2/network/radios/"+url.PathEscape(serial), cfg, nil)
}

// Reconnect forces the radio to drop and re-establish its link.
func (c *HTTPClient) Reconnect(ctx context.Context, serial string) error {
	return c.do(ctx, "reconnect", http.MethodPost, "/v1/network/radios/"+url.PathEscape(serial)+"/reconnect", nil, nil)
}

// Reboot power-cycles the radio.
func (c *HTTPClient) Reboot(ctx context.Context, serial string) error {
	return c.do(ctx, "reboot", http.MethodPost, "/v1/network/radios/"+url.PathEscape(serial)+"/reboot", nil, nil)
}

// Delete removes the radio record from the cloud.
func (c *HTTPClient) Delete(ctx context.Context, serial string) error {
	body := map[string][]string{"serialNumbers": {serial}}
	return c.do(ctx, "delete radio", http.MethodPost, "/v1/network/radios/delete", body, nil)
}

// StartSpeedTest kicks off a speed test and returns the operation id.
func (c *HTTPClient) StartSpeedTest(ctx context.Context, serial string) (string, error) {
	var out struct {
		OperationID string `json:"operationId"`
	}
	err := c.do(ctx, "start speed test", http.MethodPost, "/v1/network/radios/"+url.PathEscape(serial)+"/speed-test", nil, &out)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out.OperationID) == "" {
		return "", &APIError{Op: "start speed test", StatusCode: http.StatusOK, Message: "no operation id in response"}
	}
	return out.OperationID, nil
}

// GetSpeedTest polls one speed test operation.
func (c *HTTPClient) GetSpeedTest(ctx context.Context, operationID, serial string) (*SpeedTestResult, error) {
	path := fmt.Sprintf("/v1/operations/speed-test/id/%s?serialNumber=%s",
		url.PathEscape(operationID), url.QueryEscape(serial))
	var result SpeedTestResult
	if err := c.do(ctx, "poll speed test", http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListFirmwarePackages returns available software packages, newest first.
func (c *HTTPClient) ListFirmwarePackages(ctx context.Context, rnCompatible, bnCompatible bool) ([]FirmwarePackage, error) {
	query := url.Values{}
	query.Set("rnCompatible", fmt.Sprintf("%t", rnCompatible))
	query.Set("bnCompatible", fmt.Sprintf("%t", bnCompatible))
	query.Set("sortOrder", "DESC")
	query.Set("offset", "0")
	query.Set("limit", fmt.Sprintf("%d", firmwareFetchLimit))
	var out struct {
		Items []FirmwarePackage `json:"items"`
	}
	err := c.do(ctx, "list firmware packages", http.MethodGet, "/v1/network/radios/software-packages?"+query.Encode(), nil, &out)
	if err != nil {
		return nil, err
	}
	return out.Items, nil
}

// UpgradeFirmware requests installation of a firmware package on one radio.
func (c *HTTPClient) UpgradeFirmware(ctx context.Context, serial, packageID string, activate, factory bool) error {
	body := map[string]any{
		"serialNumbers": []string{serial},
		"packageId":     packageID,
		"activate":      activate,
		"factory":       factory,
	}
	var out struct {
		Items []struct {
			Error *struct {
				Message string `json:"message"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := c.do(ctx, "upgrade firmware", http.MethodPost, "/v1/network/radios/upgrade", body, &out); err != nil {
		return err
	}
	// A 2xx answer can still carry a per-item error.
	for _, item := range out.Items {
		if item.Error != nil && item.Error.Message != "" {
			return &APIError{Op: "upgrade firmware", StatusCode: http.StatusOK, Message: item.Error.Message}
		}
	}
	return nil
}
