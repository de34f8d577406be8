package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/catalog"
	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/database"
	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/ids"
	"github.com/MarcoPoloResearchLab/booklibrary/backend/internal/library"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type testServer struct {
	handler http.Handler
	catalog *catalog.GormStore
	service *library.Service
}

func newTestServer(t *testing.T, logger *zap.Logger) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "server.db"), zap.NewNop(), &catalog.Book{}, &library.UserBook{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	catalogStore, err := catalog.NewGormStore(db, ids.NewUUIDProvider())
	if err != nil {
		t.Fatalf("failed to build catalog store: %v", err)
	}
	bookStore, err := library.NewGormStore(db)
	if err != nil {
		t.Fatalf("failed to build library store: %v", err)
	}
	service, err := library.NewService(library.ServiceConfig{
		Books:      bookStore,
		Catalog:    catalogStore,
		IDProvider: ids.NewUUIDProvider(),
		Logger:     zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}

	handler, err := NewHTTPHandler(Dependencies{LibraryService: service, Logger: logger})
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}
	return testServer{handler: handler, catalog: catalogStore, service: service}
}

func (s testServer) seedCatalog(t *testing.T, books ...catalog.Book) {
	t.Helper()
	for index := range books {
		if err := s.catalog.Insert(context.Background(), &books[index]); err != nil {
			t.Fatalf("failed to seed catalog: %v", err)
		}
	}
}

func (s testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch typed := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(typed))
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			t.Fatalf("failed to encode request: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, path, reader)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	if err := json.Unmarshal(recorder.Body.Bytes(), &value); err != nil {
		t.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
	return value
}

func stringPtr(value string) *string {
	return &value
}
