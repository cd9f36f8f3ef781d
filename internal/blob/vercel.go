package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultVercelAPIURL is the public Vercel Blob API endpoint.
const DefaultVercelAPIURL = "https://blob.vercel-storage.com"

const vercelAPIVersion = "11"

// VercelStore talks to the Vercel Blob REST API, the store the site was first
// deployed on. Blobs are public; fetches go straight to the blob URL.
type VercelStore struct {
	apiURL string
	token  string
	client *http.Client
}

// NewVercelStore builds a client. apiURL may be empty for the public endpoint.
func NewVercelStore(token, apiURL string, client *http.Client) (*VercelStore, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("vercel blob token is required")
	}
	if apiURL == "" {
		apiURL = DefaultVercelAPIURL
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &VercelStore{
		apiURL: strings.TrimRight(apiURL, "/"),
		token:  token,
		client: client,
	}, nil
}

type vercelPutResponse struct {
	URL      string `json:"url"`
	Pathname string `json:"pathname"`
}

type vercelListResponse struct {
	Blobs []struct {
		URL        string    `json:"url"`
		Pathname   string    `json:"pathname"`
		Size       int64     `json:"size"`
		UploadedAt time.Time `json:"uploadedAt"`
	} `json:"blobs"`
	Cursor  string `json:"cursor"`
	HasMore bool   `json:"hasMore"`
}

type vercelErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *VercelStore) Put(ctx context.Context, pathname string, content []byte) (Blob, error) {
	endpoint := s.apiURL + "/?" + url.Values{"pathname": {pathname}}.Encode()
	req, err := s.newRequest(ctx, http.MethodPut, endpoint, bytes.NewReader(content))
	if err != nil {
		return Blob{}, err
	}
	req.Header.Set("x-content-type", "application/json")
	req.Header.Set("x-add-random-suffix", "0")
	req.Header.Set("x-allow-overwrite", "1")

	var out vercelPutResponse
	if err := s.do(req, &out); err != nil {
		return Blob{}, fmt.Errorf("failed to put blob %s: %w", pathname, err)
	}

	return Blob{
		URL:        out.URL,
		Pathname:   out.Pathname,
		Size:       int64(len(content)),
		UploadedAt: time.Now().UTC(),
	}, nil
}

func (s *VercelStore) List(ctx context.Context, prefix string) ([]Blob, error) {
	var (
		out    []Blob
		cursor string
	)
	for {
		q := url.Values{"prefix": {prefix}, "limit": {"1000"}}
		if cursor != "" {
			q.Set("cursor", cursor)
		}
		req, err := s.newRequest(ctx, http.MethodGet, s.apiURL+"?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}

		var page vercelListResponse
		if err := s.do(req, &page); err != nil {
			return nil, fmt.Errorf("failed to list blobs: %w", err)
		}
		for _, b := range page.Blobs {
			out = append(out, Blob{
				URL:        b.URL,
				Pathname:   b.Pathname,
				Size:       b.Size,
				UploadedAt: b.UploadedAt,
			})
		}
		if !page.HasMore || page.Cursor == "" {
			break
		}
		cursor = page.Cursor
	}
	sortByPathname(out)
	return out, nil
}

func (s *VercelStore) Fetch(ctx context.Context, blobURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, blobURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	res, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch blob: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if res.StatusCode/100 != 2 {
		return nil, fmt.Errorf("failed to fetch blob: status %d", res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return body, nil
}

func (s *VercelStore) Delete(ctx context.Context, blobURL string) error {
	payload, err := json.Marshal(map[string][]string{"urls": {blobURL}})
	if err != nil {
		return err
	}
	req, err := s.newRequest(ctx, http.MethodPost, s.apiURL+"/delete", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	if err := s.do(req, nil); err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

func (s *VercelStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *VercelStore) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("authorization", "Bearer "+s.token)
	req.Header.Set("x-api-version", vercelAPIVersion)
	return req, nil
}

func (s *VercelStore) do(req *http.Request, dst any) error {
	res, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	if res.StatusCode/100 != 2 {
		var apiErr vercelErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("vercel blob %s: %s (status %d)", apiErr.Error.Code, apiErr.Error.Message, res.StatusCode)
		}
		return fmt.Errorf("vercel blob: status %d", res.StatusCode)
	}

	if dst == nil || len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, dst)
}
