package handlers

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/assetfarm/backend/internal/database"
	"github.com/assetfarm/backend/internal/middleware"
	"github.com/assetfarm/backend/internal/services"
	"github.com/assetfarm/backend/internal/storage"
	"github.com/assetfarm/backend/pkg/logger"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

var testSetupOnce sync.Once

type testEnv struct {
	app     *fiber.App
	catalog *services.Catalog
	store   *storage.Local
}

// setupTestEnv wires a full application with an in-memory database, temp
// storage roots, and a deliberately small upload limit so size rejection is
// cheap to exercise.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		logger.Init()
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed migrating schema: %v", err)
	}

	root := t.TempDir()
	store, err := storage.NewLocal(filepath.Join(root, "uploads"), filepath.Join(root, "previews"))
	if err != nil {
		t.Fatalf("failed creating test storage: %v", err)
	}

	catalog := services.NewCatalog(db)
	search := services.NewSearch(db, catalog)
	expander := services.NewExpander(catalog, store)
	ingestor := services.NewIngestor(catalog, store, expander, 1024*1024)

	app := fiber.New(fiber.Config{BodyLimit: 4 * 1024 * 1024})
	app.Use(recover.New())
	app.Use(middleware.CORS("*"))
	app.Use(middleware.RequestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	handler := NewAssetsHandler(catalog, search, ingestor, store)
	api := app.Group("/api")
	assets := api.Group("/assets")
	assets.Get("/", handler.List)
	assets.Get("/search", handler.SearchAssets)
	assets.Post("/upload", handler.Upload)
	assets.Get("/:id", handler.Get)
	assets.Put("/:id", handler.Update)
	assets.Delete("/:id", handler.Delete)

	return &testEnv{app: app, catalog: catalog, store: store}
}

func performRequest(t *testing.T, app *fiber.App, method, target string, body io.Reader, contentType string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := app.Test(req, 10000)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, target, err)
	}
	return resp
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	defer resp.Body.Close()
	var payload map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("failed decoding response body: %v", err)
	}
	return payload
}

// buildUploadBody assembles a multipart form in the shape the upload route
// expects. Nil file bytes omit the file part entirely.
func buildUploadBody(t *testing.T, fields map[string]string, fileName string, fileBytes []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed writing form field %s: %v", key, err)
		}
	}
	if fileBytes != nil {
		part, err := writer.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("failed creating file part: %v", err)
		}
		if _, err := part.Write(fileBytes); err != nil {
			t.Fatalf("failed writing file part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed closing multipart writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func makeTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 40, G: 120, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed encoding test png: %v", err)
	}
	return buf.Bytes()
}
