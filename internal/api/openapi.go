package api

import (
	"net/http"
	"sort"
)

// route describes one endpoint for the generated document.
type route struct {
	method      string
	path        string
	operationID string
	summary     string
	tag         string
	request     map[string]any
	query       []string
	responses   map[string]string
}

func stringProp() map[string]any  { return map[string]any{"type": "string"} }
func integerProp() map[string]any { return map[string]any{"type": "integer"} }

func object(required []string, props map[string]any) map[string]any {
	return map[string]any{
		"type":       "object",
		"required":   required,
		"properties": props,
	}
}

var printResponses = map[string]string{
	"200": "Job sent",
	"400": "Missing fields or print failed",
	"413": "Request body too large",
}

var routes = []route{
	{
		method: http.MethodPost, path: "/print/zpl", operationID: "printZpl", tag: "print",
		summary: "Send raw ZPL to an installed printer",
		request: object([]string{"printerName", "zpl"}, map[string]any{
			"printerName": stringProp(),
			"zpl":         stringProp(),
		}),
		responses: printResponses,
	},
	{
		method: http.MethodPost, path: "/print/zpl/tcp", operationID: "printZplTcp", tag: "print",
		summary: "Send raw ZPL to a printer socket",
		request: object([]string{"ip", "zpl"}, map[string]any{
			"ip":   stringProp(),
			"port": integerProp(),
			"zpl":  stringProp(),
		}),
		responses: printResponses,
	},
	{
		method: http.MethodPost, path: "/print/image", operationID: "printImage", tag: "print",
		summary: "Print a base64 PNG laid out on one page",
		request: object([]string{"printerName", "base64Png"}, map[string]any{
			"printerName": stringProp(),
			"base64Png":   stringProp(),
		}),
		responses: printResponses,
	},
	{
		method: http.MethodPost, path: "/print/pdf", operationID: "printPdf", tag: "print",
		summary: "Print a base64 PDF through the renderer chain",
		request: object([]string{"printerName", "base64Pdf"}, map[string]any{
			"printerName": stringProp(),
			"base64Pdf":   stringProp(),
		}),
		responses: printResponses,
	},
	{
		method: http.MethodGet, path: "/printer", operationID: "listPrinters", tag: "print",
		summary:   "List installed printer names",
		responses: map[string]string{"200": "Printer names"},
	},
	{
		method: http.MethodGet, path: "/network/info", operationID: "networkInfo", tag: "network",
		summary:   "Describe this agent to peers",
		responses: map[string]string{"200": "Agent info"},
	},
	{
		method: http.MethodGet, path: "/network/remote/info", operationID: "remoteInfo", tag: "network",
		summary:   "Query another agent's info",
		query:     []string{"ip", "port"},
		responses: map[string]string{"200": "Peer info", "400": "Bad request", "404": "Peer unreachable"},
	},
	{
		method: http.MethodPost, path: "/network/print", operationID: "networkPrint", tag: "network",
		summary: "Forward a print job to another agent",
		request: object([]string{"targetIp", "printerName", "printType", "data"}, map[string]any{
			"targetIp":    stringProp(),
			"targetPort":  integerProp(),
			"printerName": stringProp(),
			"printType":   map[string]any{"type": "string", "enum": []string{"zpl", "image", "pdf"}},
			"data":        stringProp(),
		}),
		responses: map[string]string{"200": "Forwarded", "400": "Bad request, peer rejected or unreachable", "413": "Request body too large"},
	},
	{
		method: http.MethodGet, path: "/health", operationID: "health", tag: "health",
		summary:   "Liveness with pid and version",
		responses: map[string]string{"200": "Healthy"},
	},
	{
		method: http.MethodGet, path: "/health/version", operationID: "version", tag: "health",
		summary:   "Running agent version",
		responses: map[string]string{"200": "Version"},
	},
	{
		method: http.MethodGet, path: "/health/update", operationID: "update", tag: "health",
		summary:   "Check for a newer agent release",
		responses: map[string]string{"200": "Update status; a failed check reports no update"},
	},
	{
		method: http.MethodGet, path: "/events", operationID: "events", tag: "health",
		summary:   "Server-sent event stream",
		query:     []string{"type", "since"},
		responses: map[string]string{"200": "text/event-stream"},
	},
}

// buildOpenAPIDoc returns an OpenAPI 3.1 document covering every route in rs.
func buildOpenAPIDoc(title, version string, rs []route) map[string]any {
	paths := map[string]any{}

	sorted := make([]route, len(rs))
	copy(sorted, rs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].path < sorted[j].path })

	for _, rt := range sorted {
		item, ok := paths[rt.path].(map[string]any)
		if !ok {
			item = map[string]any{}
			paths[rt.path] = item
		}
		item[methodKey(rt.method)] = buildOperation(rt)
	}

	return map[string]any{
		"openapi": "3.1.0",
		"info": map[string]any{
			"title":   title,
			"version": version,
		},
		"paths": paths,
	}
}

// buildOperation builds the OpenAPI operation object for a single route.
func buildOperation(rt route) map[string]any {
	responses := map[string]any{}
	for code, desc := range rt.responses {
		responses[code] = map[string]any{"description": desc}
	}

	operation := map[string]any{
		"operationId": rt.operationID,
		"summary":     rt.summary,
		"tags":        []string{rt.tag},
		"responses":   responses,
	}

	if rt.request != nil {
		operation["requestBody"] = map[string]any{
			"required": true,
			"content": map[string]any{
				"application/json": map[string]any{
					"schema": rt.request,
				},
			},
		}
	}

	if len(rt.query) > 0 {
		params := make([]any, 0, len(rt.query))
		for _, name := range rt.query {
			params = append(params, map[string]any{
				"name":   name,
				"in":     "query",
				"schema": stringProp(),
			})
		}
		operation["parameters"] = params
	}

	return operation
}

func methodKey(method string) string {
	switch method {
	case http.MethodPost:
		return "post"
	default:
		return "get"
	}
}

// handleOpenAPI handles GET /openapi.json.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, buildOpenAPIDoc(s.config.Application, s.config.Version, routes))
}
