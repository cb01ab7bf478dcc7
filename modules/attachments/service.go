package attachments

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Service stores attachment files and hands back retrievable URLs. The URL
// points at the API's download route; the path after the route prefix is the
// object key.
type Service struct {
	store   ObjectStore
	baseURL string
}

// NewService creates a new attachment service. baseURL is the public prefix
// download URLs are built from, without a trailing slash.
func NewService(store ObjectStore, baseURL string) *Service {
	return &Service{
		store:   store,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Store saves the file under a fresh key scoped by owner and returns its
// retrievable URL.
func (s *Service) Store(ctx context.Context, ownerID uint, name string, data []byte, contentType string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("file name is required")
	}
	if len(data) == 0 {
		return "", fmt.Errorf("file data is empty")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("%d/%s_%s", ownerID, uuid.New().String(), name)

	if _, err := s.store.Put(ctx, key, data, contentType); err != nil {
		return "", fmt.Errorf("failed to store attachment: %w", err)
	}

	return s.baseURL + "/" + key, nil
}

// Open retrieves an attachment by its object key.
func (s *Service) Open(ctx context.Context, key string) ([]byte, string, error) {
	if key == "" {
		return nil, "", fmt.Errorf("attachment key is required")
	}
	data, info, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get attachment: %w", err)
	}
	return data, info.ContentType, nil
}

// Delete removes the object a previously returned URL points to.
func (s *Service) Delete(ctx context.Context, rawURL string) error {
	key, err := s.keyFromURL(rawURL)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	return nil
}

// keyFromURL recovers the object key from a stored attachment URL.
func (s *Service) keyFromURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid attachment URL %q: %w", rawURL, err)
	}

	base, err := url.Parse(s.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", s.baseURL, err)
	}

	key := strings.TrimPrefix(parsed.Path, base.Path)
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", fmt.Errorf("attachment URL %q carries no object key", rawURL)
	}
	return key, nil
}
