package attachments

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// memStore is an in-memory ObjectStore.
type memStore struct {
	objects map[string][]byte
	types   map[string]string
}

func newMemStore() *memStore {
	return &memStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (m *memStore) Put(_ context.Context, name string, data []byte, contentType string) (*ObjectInfo, error) {
	m.objects[name] = data
	m.types[name] = contentType
	return &ObjectInfo{Name: name, Size: uint64(len(data)), ContentType: contentType}, nil
}

func (m *memStore) Get(_ context.Context, name string) ([]byte, *ObjectInfo, error) {
	data, ok := m.objects[name]
	if !ok {
		return nil, nil, fmt.Errorf("object not found: %s", name)
	}
	return data, &ObjectInfo{Name: name, ContentType: m.types[name]}, nil
}

func (m *memStore) Delete(_ context.Context, name string) error {
	if _, ok := m.objects[name]; !ok {
		return fmt.Errorf("object not found: %s", name)
	}
	delete(m.objects, name)
	return nil
}

const testBaseURL = "http://localhost:3000/api/v1/attachments"

func TestService_StoreAndOpen(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, testBaseURL)
	ctx := context.Background()

	url, err := svc.Store(ctx, 7, "notes.txt", []byte("hello"), "text/plain")
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	if !strings.HasPrefix(url, testBaseURL+"/7/") {
		t.Errorf("url = %q, want prefix %q", url, testBaseURL+"/7/")
	}
	if !strings.HasSuffix(url, "_notes.txt") {
		t.Errorf("url = %q, want the original name preserved after the key uuid", url)
	}

	key := strings.TrimPrefix(url, testBaseURL+"/")
	data, contentType, err := svc.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if string(data) != "hello" || contentType != "text/plain" {
		t.Errorf("Open() = (%q, %q)", data, contentType)
	}
}

func TestService_StoreKeysAreUnique(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, testBaseURL)
	ctx := context.Background()

	a, err := svc.Store(ctx, 1, "same.txt", []byte("a"), "")
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	b, err := svc.Store(ctx, 1, "same.txt", []byte("b"), "")
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if a == b {
		t.Error("two uploads of the same name must get distinct keys")
	}
	if len(store.objects) != 2 {
		t.Errorf("stored %d objects, want 2", len(store.objects))
	}
}

func TestService_StoreValidation(t *testing.T) {
	svc := NewService(newMemStore(), testBaseURL)
	ctx := context.Background()

	if _, err := svc.Store(ctx, 1, "", []byte("x"), ""); err == nil {
		t.Error("empty name should be rejected")
	}
	if _, err := svc.Store(ctx, 1, "empty.txt", nil, ""); err == nil {
		t.Error("empty data should be rejected")
	}
}

func TestService_DeleteByURL(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, testBaseURL)
	ctx := context.Background()

	url, err := svc.Store(ctx, 3, "bye.txt", []byte("x"), "")
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	if err := svc.Delete(ctx, url); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(store.objects) != 0 {
		t.Error("object should be gone after delete")
	}

	if err := svc.Delete(ctx, testBaseURL+"/"); err == nil {
		t.Error("URL without a key should be rejected")
	}
}
