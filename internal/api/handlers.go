package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/printmesh/internal/log"
	"github.com/mattjoyce/printmesh/internal/printjob"
	"github.com/mattjoyce/printmesh/internal/wire"
)

func currentPID() int { return os.Getpid() }

// handleRoot handles GET /.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, wire.RootResponse{
		Application:   s.config.Application,
		Version:       s.config.Version,
		Status:        "running",
		Documentation: "/openapi.json",
	})
}

// handleListPrinters handles GET /printer.
func (s *Server) handleListPrinters(w http.ResponseWriter, r *http.Request) {
	names := s.deps.Printers.List(r.Context())
	if names == nil {
		names = []string{}
	}
	respondJSON(w, http.StatusOK, names)
}

// handlePrintZPL handles POST /print/zpl.
func (s *Server) handlePrintZPL(w http.ResponseWriter, r *http.Request) {
	var req wire.ZPLRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if blank(req.PrinterName) || blank(req.Zpl) {
		s.writeError(w, http.StatusBadRequest, "PrinterName and Zpl are required")
		return
	}

	res := s.deps.Dispatcher.Dispatch(r.Context(), printjob.Job{Kind: printjob.KindZPLRaw, Printer: req.PrinterName, Payload: req.Zpl})
	if !res.Success {
		s.writeFailure(w, "Failed to send print job", res.Detail)
		return
	}
	respondJSON(w, http.StatusOK, wire.PrintResponse{Message: "Print job sent successfully", Printer: req.PrinterName})
}

// handlePrintZPLTCP handles POST /print/zpl/tcp.
func (s *Server) handlePrintZPLTCP(w http.ResponseWriter, r *http.Request) {
	var req wire.TCPRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if blank(req.IP) || req.Port <= 0 || blank(req.Zpl) {
		s.writeError(w, http.StatusBadRequest, "IP, Port, and Zpl are required")
		return
	}

	res := s.deps.Dispatcher.Dispatch(r.Context(), printjob.Job{Kind: printjob.KindZPLSocket, Host: req.IP, Port: req.Port, Payload: req.Zpl})
	if !res.Success {
		s.writeFailure(w, "Failed to send print job via TCP", res.Detail)
		return
	}
	respondJSON(w, http.StatusOK, wire.PrintResponse{Message: "Print job sent successfully via TCP", IP: req.IP, Port: req.Port})
}

// handlePrintImage handles POST /print/image.
func (s *Server) handlePrintImage(w http.ResponseWriter, r *http.Request) {
	var req wire.ImageRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if blank(req.PrinterName) || blank(req.Base64Png) {
		s.writeError(w, http.StatusBadRequest, "PrinterName and Base64Png are required")
		return
	}

	res := s.deps.Dispatcher.Dispatch(r.Context(), printjob.Job{Kind: printjob.KindImage, Printer: req.PrinterName, Payload: req.Base64Png})
	if !res.Success {
		s.writeFailure(w, "Failed to send image print job", res.Detail)
		return
	}
	respondJSON(w, http.StatusOK, wire.PrintResponse{Message: "Image print job sent successfully", Printer: req.PrinterName})
}

// handlePrintPDF handles POST /print/pdf.
func (s *Server) handlePrintPDF(w http.ResponseWriter, r *http.Request) {
	var req wire.PDFRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if blank(req.PrinterName) || blank(req.Base64Pdf) {
		s.writeError(w, http.StatusBadRequest, "PrinterName and Base64Pdf are required")
		return
	}

	res := s.deps.Dispatcher.Dispatch(r.Context(), printjob.Job{Kind: printjob.KindDocument, Printer: req.PrinterName, Payload: req.Base64Pdf})
	if !res.Success {
		s.writeFailure(w, "Failed to send PDF print job", res.Detail)
		return
	}
	respondJSON(w, http.StatusOK, wire.PrintResponse{Message: "PDF print job sent successfully", Printer: req.PrinterName})
}

// handleNetworkInfo handles GET /network/info.
func (s *Server) handleNetworkInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.deps.Local.Snapshot(r.Context()))
}

// handleRemoteInfo handles GET /network/remote/info?ip=&port=.
func (s *Server) handleRemoteInfo(w http.ResponseWriter, r *http.Request) {
	ip := strings.TrimSpace(r.URL.Query().Get("ip"))
	if ip == "" {
		s.writeError(w, http.StatusBadRequest, "IP address is required")
		return
	}

	port := printjob.DefaultAgentPort
	if raw := r.URL.Query().Get("port"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p <= 0 || p > 65535 {
			s.writeError(w, http.StatusBadRequest, "port must be between 1 and 65535")
			return
		}
		port = p
	}

	target := printjob.PeerTarget{Host: ip, Port: port}
	info := s.deps.Peers.QueryInfo(r.Context(), target)
	if info == nil {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("Could not connect to %s", target.Addr()))
		return
	}
	respondJSON(w, http.StatusOK, info)
}

// handleNetworkPrint handles POST /network/print.
func (s *Server) handleNetworkPrint(w http.ResponseWriter, r *http.Request) {
	var req wire.NetworkPrintRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	switch {
	case blank(req.TargetIP):
		s.writeNetworkError(w, "TargetIp is required")
		return
	case blank(req.PrinterName):
		s.writeNetworkError(w, "PrinterName is required")
		return
	case blank(req.PrintType):
		s.writeNetworkError(w, "PrintType is required (zpl, image, pdf)")
		return
	case blank(req.Data):
		s.writeNetworkError(w, "Data is required")
		return
	}

	if req.TargetPort == 0 {
		req.TargetPort = printjob.DefaultAgentPort
	}
	target := printjob.PeerTarget{Host: strings.TrimSpace(req.TargetIP), Port: req.TargetPort}

	err := s.deps.Peers.Forward(r.Context(), target, req.PrintType, req.PrinterName, req.Data)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, wire.NetworkPrintResponse{
			Success: true,
			Message: fmt.Sprintf("Print job successfully forwarded to %s", target.Addr()),
		})
	case errors.Is(err, printjob.ErrUnsupportedKind):
		s.writeNetworkError(w, "PrintType is required (zpl, image, pdf)")
	default:
		log.WithPeer(s.logger, target.Addr()).Warn("forward failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
		s.writeNetworkError(w, fmt.Sprintf("Failed to forward print job to %s", target.Addr()))
	}
}

func blank(v string) bool { return strings.TrimSpace(v) == "" }

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if _, err := wire.Decode(r.Body, v, wire.MaxBodyBytes); err != nil {
		if errors.Is(err, wire.ErrBodyTooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = wire.Encode(w, data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, wire.ErrorResponse{Error: message})
}

func (s *Server) writeFailure(w http.ResponseWriter, message, details string) {
	respondJSON(w, http.StatusBadRequest, wire.ErrorResponse{Error: message, Details: details})
}

func (s *Server) writeNetworkError(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusBadRequest, wire.NetworkPrintResponse{Success: false, Error: message})
}
