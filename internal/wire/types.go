// Package wire holds the JSON bodies exchanged with browser clients and
// peer agents, and the bounded codec used to read and write them.
//
// Inbound field matching follows encoding/json: case-insensitive, unknown
// fields ignored. That is what lets a peer's PascalCase ForwardBody land on
// the camelCase request types below.
package wire

import (
	"time"

	"github.com/mattjoyce/printmesh/internal/printjob"
)

// ZPLRequest is the body of POST /print/zpl.
type ZPLRequest struct {
	PrinterName string `json:"printerName"`
	Zpl         string `json:"zpl"`
}

// TCPRequest is the body of POST /print/zpl/tcp.
type TCPRequest struct {
	IP   string `json:"ip"`
	Port int    `json:"port"`
	Zpl  string `json:"zpl"`
}

// ImageRequest is the body of POST /print/image.
type ImageRequest struct {
	PrinterName string `json:"printerName"`
	Base64Png   string `json:"base64Png"`
}

// PDFRequest is the body of POST /print/pdf.
type PDFRequest struct {
	PrinterName string `json:"printerName"`
	Base64Pdf   string `json:"base64Pdf"`
}

// NetworkPrintRequest is the body of POST /network/print.
type NetworkPrintRequest struct {
	TargetIP    string `json:"targetIp"`
	TargetPort  int    `json:"targetPort"`
	PrinterName string `json:"printerName"`
	PrintType   string `json:"printType"`
	Data        string `json:"data"`
}

// ForwardBody is what an agent sends to a peer's print endpoint. Exactly one
// payload field is set, chosen by the job kind.
type ForwardBody struct {
	PrinterName string `json:"PrinterName"`
	Zpl         string `json:"Zpl,omitempty"`
	Base64Png   string `json:"Base64Png,omitempty"`
	Base64Pdf   string `json:"Base64Pdf,omitempty"`
}

// NewForwardBody builds the peer body for kind. Kinds with no peer route
// return ErrUnsupportedKind.
func NewForwardBody(kind printjob.Kind, printer, data string) (ForwardBody, error) {
	body := ForwardBody{PrinterName: printer}
	switch kind {
	case printjob.KindZPLRaw:
		body.Zpl = data
	case printjob.KindImage:
		body.Base64Png = data
	case printjob.KindDocument:
		body.Base64Pdf = data
	default:
		return ForwardBody{}, printjob.ErrUnsupportedKind
	}
	return body, nil
}

// PrintResponse is returned by the local print endpoints on success.
type PrintResponse struct {
	Message string `json:"message"`
	Printer string `json:"printer,omitempty"`
	IP      string `json:"ip,omitempty"`
	Port    int    `json:"port,omitempty"`
}

// ErrorResponse is returned on errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// NetworkPrintResponse is returned by POST /network/print.
type NetworkPrintResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RootResponse is returned by GET /.
type RootResponse struct {
	Application   string `json:"application"`
	Version       string `json:"version"`
	Status        string `json:"status"`
	Documentation string `json:"documentation"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	PID       int       `json:"pid"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// VersionResponse is returned by GET /health/version.
type VersionResponse struct {
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// UpdateResponse is returned by GET /health/update.
type UpdateResponse struct {
	UpdateAvailable bool   `json:"updateAvailable"`
	CurrentVersion  string `json:"currentVersion"`
	NewVersion      string `json:"newVersion,omitempty"`
	DownloadURL     string `json:"downloadUrl,omitempty"`
	ReleaseNotes    string `json:"releaseNotes,omitempty"`
}
