package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOpenAPIDoc_Empty(t *testing.T) {
	doc := buildOpenAPIDoc("printmesh", "1.0.0", nil)

	assert.Equal(t, "3.1.0", doc["openapi"])
	assert.Equal(t, map[string]any{"title": "printmesh", "version": "1.0.0"}, doc["info"])
	assert.Empty(t, doc["paths"])
}

func TestBuildOpenAPIDoc_RequestBody(t *testing.T) {
	doc := buildOpenAPIDoc("printmesh", "1.0.0", routes)
	paths := doc["paths"].(map[string]any)

	op := paths["/print/zpl"].(map[string]any)["post"].(map[string]any)
	assert.Equal(t, "printZpl", op["operationId"])
	assert.Equal(t, []string{"print"}, op["tags"])

	body := op["requestBody"].(map[string]any)
	schema := body["content"].(map[string]any)["application/json"].(map[string]any)["schema"].(map[string]any)
	assert.Equal(t, []string{"printerName", "zpl"}, schema["required"])
	assert.Contains(t, schema["properties"], "zpl")

	responses := op["responses"].(map[string]any)
	assert.Contains(t, responses, "200")
	assert.Contains(t, responses, "400")
}

func TestBuildOpenAPIDoc_GetHasNoRequestBody(t *testing.T) {
	doc := buildOpenAPIDoc("printmesh", "1.0.0", routes)
	paths := doc["paths"].(map[string]any)

	op := paths["/health"].(map[string]any)["get"].(map[string]any)
	assert.NotContains(t, op, "requestBody")
	assert.NotContains(t, op, "parameters")

	remote := paths["/network/remote/info"].(map[string]any)["get"].(map[string]any)
	params := remote["parameters"].([]any)
	require.Len(t, params, 2)
	assert.Equal(t, "ip", params[0].(map[string]any)["name"])
	assert.Equal(t, "query", params[0].(map[string]any)["in"])
}

func TestBuildOpenAPIDoc_NetworkPrintTypes(t *testing.T) {
	doc := buildOpenAPIDoc("printmesh", "1.0.0", routes)
	op := doc["paths"].(map[string]any)["/network/print"].(map[string]any)["post"].(map[string]any)
	schema := op["requestBody"].(map[string]any)["content"].(map[string]any)["application/json"].(map[string]any)["schema"].(map[string]any)
	printType := schema["properties"].(map[string]any)["printType"].(map[string]any)
	assert.Equal(t, []string{"zpl", "image", "pdf"}, printType["enum"])
}

func TestOpenAPI_CoversEveryRoute(t *testing.T) {
	env := newTestEnv(t, Config{})
	doc := buildOpenAPIDoc("printmesh", "1.4.0", routes)
	paths := doc["paths"].(map[string]any)

	mux, ok := env.server.Handler().(chi.Routes)
	require.True(t, ok)

	err := chi.Walk(mux, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if route == "/" || route == "/openapi.json" {
			return nil
		}
		if len(route) > 1 {
			route = strings.TrimSuffix(route, "/")
		}
		item, ok := paths[route].(map[string]any)
		if assert.True(t, ok, "route %s missing from document", route) {
			assert.Contains(t, item, strings.ToLower(method), "%s %s", method, route)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestHandleOpenAPI(t *testing.T) {
	env := newTestEnv(t, Config{})
	rr := env.do(t, http.MethodGet, "/openapi.json", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	doc := decode(t, rr)
	assert.Equal(t, "3.1.0", doc["openapi"])
	assert.Equal(t, map[string]any{"title": "printmesh", "version": "1.4.0"}, doc["info"])

	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	for _, p := range []string{"/print/zpl", "/print/zpl/tcp", "/print/image", "/print/pdf", "/network/info", "/network/remote/info", "/network/print", "/health", "/health/version", "/health/update"} {
		assert.Contains(t, paths, p)
	}
}
