package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// SupabaseStorage talks to the storage REST API with the service key.
type SupabaseStorage struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

func NewSupabaseStorage(baseURL, serviceKey string, client *http.Client) *SupabaseStorage {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &SupabaseStorage{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		client:     client,
	}
}

func (s *SupabaseStorage) objectURL(bucket, objectPath string) (string, error) {
	p, err := CleanPath(objectPath)
	if err != nil {
		return "", err
	}
	segs := strings.Split(p, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, url.PathEscape(bucket), strings.Join(segs, "/")), nil
}

func (s *SupabaseStorage) do(ctx context.Context, method, target string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, target)
	}
	return resp, nil
}

func statusError(resp *http.Response, op string) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if resp.StatusCode == http.StatusNotFound || (resp.StatusCode == http.StatusBadRequest && bytes.Contains(msg, []byte("not_found"))) {
		return errors.Wrap(ErrNotFound, op)
	}
	return errors.Errorf("%s: storage responded %d: %s", op, resp.StatusCode, strings.TrimSpace(string(msg)))
}

// Save uploads data, replacing an existing object at the same path.
func (s *SupabaseStorage) Save(ctx context.Context, bucket, objectPath string, data []byte, contentType string) error {
	target, err := s.objectURL(bucket, objectPath)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")
	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "upload object")
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return statusError(resp, "upload object")
	}
	return nil
}

func (s *SupabaseStorage) Download(ctx context.Context, bucket, objectPath string) ([]byte, error) {
	target, err := s.objectURL(bucket, objectPath)
	if err != nil {
		return nil, err
	}
	resp, err := s.do(ctx, http.MethodGet, target, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, statusError(resp, "download object")
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read object")
	}
	return data, nil
}

func (s *SupabaseStorage) Delete(ctx context.Context, bucket, objectPath string) error {
	target, err := s.objectURL(bucket, objectPath)
	if err != nil {
		return err
	}
	resp, err := s.do(ctx, http.MethodDelete, target, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return statusError(resp, "delete object")
	}
	return nil
}
