package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/assetfarm/backend/internal/services"
)

func uploadAsset(t *testing.T, env *testEnv, fields map[string]string, fileName string, fileBytes []byte) map[string]interface{} {
	t.Helper()

	body, contentType := buildUploadBody(t, fields, fileName, fileBytes)
	resp := performRequest(t, env.app, http.MethodPost, "/api/assets/upload", body, contentType)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 from upload, got %d", resp.StatusCode)
	}
	return decodeJSONMap(t, resp)
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	resp := performRequest(t, env.app, http.MethodGet, "/health", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	payload := decodeJSONMap(t, resp)
	if payload["status"] != "ok" {
		t.Fatalf("expected ok status, got %v", payload)
	}
}

func TestUploadCreatesAsset(t *testing.T) {
	env := setupTestEnv(t)

	payload := uploadAsset(t, env, map[string]string{
		"asset_name":  "Hero Sprite",
		"author_name": "ansimuz",
		"tags":        "2D,sprite",
	}, "hero_512x512.png", makeTestPNG(t, 64, 64))

	if payload["success"] != true {
		t.Fatalf("expected success envelope, got %v", payload)
	}
	data, ok := payload["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected data object, got %v", payload["data"])
	}
	message, _ := data["message"].(string)
	if !strings.Contains(message, "Asset ID:") {
		t.Fatalf("expected asset id in message, got %q", message)
	}
	if data["assetId"] == nil {
		t.Fatalf("expected assetId in response, got %v", data)
	}
}

func TestUploadRequiresFile(t *testing.T) {
	env := setupTestEnv(t)

	body, contentType := buildUploadBody(t, map[string]string{"asset_name": "No File"}, "", nil)
	resp := performRequest(t, env.app, http.MethodPost, "/api/assets/upload", body, contentType)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	payload := decodeJSONMap(t, resp)
	if payload["success"] != false {
		t.Fatalf("expected error envelope, got %v", payload)
	}
}

func TestUploadRejectsDisallowedExtension(t *testing.T) {
	env := setupTestEnv(t)

	body, contentType := buildUploadBody(t, map[string]string{"asset_name": "Sketchy"}, "setup.exe", []byte("MZ.."))
	resp := performRequest(t, env.app, http.MethodPost, "/api/assets/upload", body, contentType)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestUploadRejectsOversizePayload(t *testing.T) {
	env := setupTestEnv(t)

	// Ingest limit in the test env is 1 MiB; push one byte past it.
	oversize := bytes.Repeat([]byte("x"), 1024*1024+1)
	body, contentType := buildUploadBody(t, map[string]string{"asset_name": "Too Big"}, "big.txt", oversize)
	resp := performRequest(t, env.app, http.MethodPost, "/api/assets/upload", body, contentType)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.StatusCode)
	}
}

func TestUploadCorruptZipReportsRetainedAsset(t *testing.T) {
	env := setupTestEnv(t)

	body, contentType := buildUploadBody(t, map[string]string{"asset_name": "Broken Pack"}, "broken.zip", []byte("this is not a zip"))
	resp := performRequest(t, env.app, http.MethodPost, "/api/assets/upload", body, contentType)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	payload := decodeJSONMap(t, resp)
	message, _ := payload["error"].(string)
	if !strings.Contains(message, "Failed to process ZIP file. Asset ID: 1") {
		t.Fatalf("expected retained asset id in error, got %q", message)
	}

	// The asset row survives as the caller's retry handle.
	detail, err := env.catalog.GetAsset(context.Background(), 1)
	if err != nil {
		t.Fatalf("expected asset retained after failed expansion: %v", err)
	}
	if detail.AssetName != "Broken Pack" {
		t.Fatalf("unexpected retained asset %q", detail.AssetName)
	}
}

func TestGetAssetByID(t *testing.T) {
	env := setupTestEnv(t)

	uploadAsset(t, env, map[string]string{"asset_name": "Hero"}, "hero.png", makeTestPNG(t, 32, 32))

	resp := performRequest(t, env.app, http.MethodGet, "/api/assets/1", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	payload := decodeJSONMap(t, resp)
	data, ok := payload["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected data object, got %v", payload["data"])
	}
	if data["assetName"] != "Hero" {
		t.Fatalf("expected assetName Hero, got %v", data["assetName"])
	}
	files, ok := data["files"].([]interface{})
	if !ok || len(files) != 1 {
		t.Fatalf("expected one file in response, got %v", data["files"])
	}
	file := files[0].(map[string]interface{})
	if file["publicPath"] != "/uploads/1/hero.png" {
		t.Fatalf("expected derived public path, got %v", file["publicPath"])
	}
	if data["previewThumbnail"] == nil {
		t.Fatalf("expected preview thumbnail for image upload")
	}
}

func TestGetAssetInvalidID(t *testing.T) {
	env := setupTestEnv(t)

	resp := performRequest(t, env.app, http.MethodGet, "/api/assets/abc", nil, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetAssetNotFound(t *testing.T) {
	env := setupTestEnv(t)

	resp := performRequest(t, env.app, http.MethodGet, "/api/assets/999", nil, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestListAssets(t *testing.T) {
	env := setupTestEnv(t)

	uploadAsset(t, env, map[string]string{"asset_name": "One"}, "one.txt", []byte("one"))
	uploadAsset(t, env, map[string]string{"asset_name": "Two"}, "two.txt", []byte("two"))

	resp := performRequest(t, env.app, http.MethodGet, "/api/assets/", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	payload := decodeJSONMap(t, resp)
	list, ok := payload["data"].([]interface{})
	if !ok || len(list) != 2 {
		t.Fatalf("expected 2 assets, got %v", payload["data"])
	}
	first := list[0].(map[string]interface{})
	if first["assetName"] != "Two" {
		t.Fatalf("expected newest asset first, got %v", first["assetName"])
	}
}

func TestSearchEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	uploadAsset(t, env, map[string]string{"asset_name": "Dragon Sprite"}, "dragon.png", makeTestPNG(t, 16, 16))
	uploadAsset(t, env, map[string]string{"asset_name": "Forest Pack"}, "forest.txt", []byte("trees"))

	resp := performRequest(t, env.app, http.MethodGet, "/api/assets/search?query=dragon", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	payload := decodeJSONMap(t, resp)
	list, ok := payload["data"].([]interface{})
	if !ok || len(list) != 1 {
		t.Fatalf("expected 1 search hit, got %v", payload["data"])
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	env := setupTestEnv(t)

	resp := performRequest(t, env.app, http.MethodGet, "/api/assets/search", nil, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestUpdateAsset(t *testing.T) {
	env := setupTestEnv(t)

	uploadAsset(t, env, map[string]string{"asset_name": "Old Name", "tags": "old"}, "a.txt", []byte("a"))

	update := `{"assetName":"New Name","authorName":"kenney","tagsString":"fresh,clean"}`
	resp := performRequest(t, env.app, http.MethodPut, "/api/assets/1", strings.NewReader(update), "application/json")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	payload := decodeJSONMap(t, resp)
	data := payload["data"].(map[string]interface{})
	message, _ := data["message"].(string)
	if !strings.Contains(message, "updated successfully") {
		t.Fatalf("unexpected update message %q", message)
	}

	detail, err := env.catalog.GetAsset(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetAsset failed: %v", err)
	}
	if detail.AssetName != "New Name" {
		t.Fatalf("expected rename applied, got %q", detail.AssetName)
	}
	if len(detail.Tags) != 2 {
		t.Fatalf("expected tag set replaced, got %v", detail.Tags)
	}
}

func TestUpdateAssetNotFound(t *testing.T) {
	env := setupTestEnv(t)

	resp := performRequest(t, env.app, http.MethodPut, "/api/assets/404", strings.NewReader(`{"assetName":"X"}`), "application/json")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestDeleteAssetRemovesRowsAndFiles(t *testing.T) {
	env := setupTestEnv(t)

	uploadAsset(t, env, map[string]string{"asset_name": "Doomed"}, "hero.png", makeTestPNG(t, 32, 32))

	detail, err := env.catalog.GetAsset(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetAsset failed: %v", err)
	}
	storagePath := detail.Files[0].FilePath

	resp := performRequest(t, env.app, http.MethodDelete, "/api/assets/1", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var notFoundErr *services.NotFoundError
	if _, err := env.catalog.GetAsset(context.Background(), 1); !errors.As(err, &notFoundErr) {
		t.Fatalf("expected NotFoundError after delete, got %v", err)
	}
	if _, err := os.Stat(storagePath); !os.IsNotExist(err) {
		t.Fatalf("expected stored file removed, stat err: %v", err)
	}

	again := performRequest(t, env.app, http.MethodDelete, "/api/assets/1", nil, "")
	if again.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", again.StatusCode)
	}
}
