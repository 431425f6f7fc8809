package offline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/sescincjoi/central-sci/internal/errors"
)

// HTTPOrigin fetches assets from an upstream static origin over HTTP.
type HTTPOrigin struct {
	baseURL    string
	httpClient *http.Client
}

// HTTPOriginConfig holds configuration for HTTPOrigin.
type HTTPOriginConfig struct {
	BaseURL    string
	HTTPClient *http.Client // Optional, defaults to a 15s-timeout client
}

// NewHTTPOrigin creates an HTTPOrigin.
func NewHTTPOrigin(cfg HTTPOriginConfig) (*HTTPOrigin, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("offline: origin base URL is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPOrigin{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}, nil
}

// FetchAsset retrieves the asset body from the origin.
func (o *HTTPOrigin) FetchAsset(ctx context.Context, path string) ([]byte, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build origin request: %w", err)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s from origin: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.NotFoundf("Asset %s not found at origin.", path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("origin returned status %d for %s", resp.StatusCode, path)
	}
	return io.ReadAll(resp.Body)
}

// FSOrigin serves assets from a local filesystem tree. Used when the
// portal hosts its own static files.
type FSOrigin struct {
	fsys fs.FS
}

// NewFSOrigin creates an FSOrigin over the given filesystem.
func NewFSOrigin(fsys fs.FS) *FSOrigin {
	return &FSOrigin{fsys: fsys}
}

// FetchAsset reads the asset from the filesystem.
func (o *FSOrigin) FetchAsset(_ context.Context, path string) ([]byte, error) {
	name := strings.TrimPrefix(path, "/")
	body, err := fs.ReadFile(o.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NotFoundf("Asset %s not found.", path)
		}
		return nil, fmt.Errorf("read asset %s: %w", path, err)
	}
	return body, nil
}
