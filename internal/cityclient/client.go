package cityclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dwizi/city-browser/internal/config"
)

// RequestIDHeader carries a per-request id the server can log for correlation.
const RequestIDHeader = "X-Request-ID"

var ErrUnauthorized = errors.New("unauthorized")

type Client struct {
	baseURL string
	http    *http.Client
}

type Credentials struct {
	Login    string
	Password string
}

type City struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	PhotoURL string `json:"url"`
}

type Page struct {
	Content       []City `json:"content"`
	TotalPages    int    `json:"totalPages"`
	TotalElements int    `json:"totalElements"`
}

type LoginResponse struct {
	Role string `json:"role"`
}

type ListCitiesInput struct {
	Page  int
	Limit int
	Name  string
}

type CityPatch struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

func (e *APIError) Is(target error) bool {
	if target != ErrUnauthorized {
		return false
	}
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

func New(cfg config.Config) (*Client, error) {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.TLSSkipVerify,
	}
	if cfg.TLSCAFile != "" {
		caBytes, err := os.ReadFile(cfg.TLSCAFile)
		if err != nil {
			return nil, fmt.Errorf("read tls ca file: %w", err)
		}
		certPool := x509.NewCertPool()
		if ok := certPool.AppendCertsFromPEM(caBytes); !ok {
			return nil, fmt.Errorf("parse tls ca file")
		}
		tlsConfig.RootCAs = certPool
	}
	if cfg.TLSCertFile != "" || cfg.TLSKeyFile != "" {
		if cfg.TLSCertFile == "" || cfg.TLSKeyFile == "" {
			return nil, fmt.Errorf("both CITY_BROWSER_TLS_CERT_FILE and CITY_BROWSER_TLS_KEY_FILE are required")
		}
		clientCert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load tls client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{clientCert}
	}

	timeout := time.Duration(cfg.HTTPTimeoutSec) * time.Second
	if timeout < time.Second {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		http: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: tlsConfig,
			},
			Timeout: timeout,
		},
	}, nil
}

// NewWithHTTPClient targets baseURL using an existing http client, e.g. httptest.Server.Client().
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if c == nil {
		return nil
	}
	if timeout < time.Second {
		return c
	}
	clone := *c
	if c.http == nil {
		clone.http = &http.Client{Timeout: timeout}
		return &clone
	}
	httpClone := *c.http
	httpClone.Timeout = timeout
	clone.http = &httpClone
	return &clone
}

func (c *Client) Login(ctx context.Context, login, password string) (LoginResponse, error) {
	payload := map[string]string{
		"login":    login,
		"password": password,
	}
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return LoginResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/login", bytes.NewReader(requestBody))
	if err != nil {
		return LoginResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var response LoginResponse
	if err := c.doJSONStatus(req, http.StatusOK, &response); err != nil {
		return LoginResponse{}, err
	}
	return response, nil
}

func (c *Client) ListCities(ctx context.Context, creds Credentials, input ListCitiesInput) (Page, error) {
	if input.Page < 0 {
		return Page{}, fmt.Errorf("page must not be negative")
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(input.Page))
	if input.Limit > 0 {
		query.Set("limit", strconv.Itoa(input.Limit))
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		query.Set("name", name)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/cities?"+query.Encode(), nil)
	if err != nil {
		return Page{}, err
	}
	req.SetBasicAuth(creds.Login, creds.Password)

	var page Page
	if err := c.doJSON(req, &page); err != nil {
		return Page{}, err
	}
	if page.Content == nil {
		page.Content = []City{}
	}
	return page, nil
}

func (c *Client) UpdateCity(ctx context.Context, creds Credentials, patch CityPatch) error {
	if patch.ID <= 0 {
		return fmt.Errorf("city id is required")
	}
	requestBody, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.baseURL+"/api/cities", bytes.NewReader(requestBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(creds.Login, creds.Password)
	return c.doJSON(req, nil)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	return c.doJSONStatus(req, 0, out)
}

// doJSONStatus accepts only want when it is non-zero, any 2xx otherwise.
func (c *Client) doJSONStatus(req *http.Request, want int, out any) error {
	req.Header.Set(RequestIDHeader, uuid.NewString())
	req.Header.Set("Accept", "application/json")
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return decodeAPIError(res)
	}
	if want != 0 && res.StatusCode != want {
		_, _ = io.Copy(io.Discard, res.Body)
		return &APIError{StatusCode: res.StatusCode, Message: "unexpected status " + res.Status}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeAPIError accepts both {"error": "..."} and {"message": "..."} bodies.
func decodeAPIError(res *http.Response) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.NewDecoder(io.LimitReader(res.Body, 64<<10)).Decode(&body)
	message := strings.TrimSpace(body.Error)
	if message == "" {
		message = strings.TrimSpace(body.Message)
	}
	if message == "" {
		message = strings.TrimSpace(http.StatusText(res.StatusCode))
	}
	if message == "" {
		message = res.Status
	}
	return &APIError{StatusCode: res.StatusCode, Message: message}
}
