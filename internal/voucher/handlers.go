package voucher

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/zombor/check-scanner/internal/device"
)

type result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type devicesResponse struct {
	Devices []string `json:"devices"`
	Message string   `json:"message"`
}

type viewResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    *Voucher `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func (s *Server) handleSetDocType(w http.ResponseWriter, r *http.Request) {
	docType := r.PathValue("docType")
	mode, err := s.service.SetMode(docType)
	if err != nil {
		slog.Warn("Invalid document type", "doc_type", docType, "error", err)
		writeJSON(w, http.StatusBadRequest, result{Message: fmt.Sprintf("Invalid document type: %s", docType)})
		return
	}
	writeJSON(w, http.StatusOK, result{Success: true, Message: fmt.Sprintf("Document type set to %s", mode)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Status())
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	devices := s.service.Devices()
	message := "No devices found"
	if len(devices) > 0 {
		message = fmt.Sprintf("%d device(s) found", len(devices))
	}
	writeJSON(w, http.StatusOK, devicesResponse{Devices: devices, Message: message})
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if _, err := s.service.Connect(); err != nil {
		slog.Error("Error connecting to device", "error", err)
		writeJSON(w, http.StatusBadRequest, result{Message: deviceMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, result{Success: true})
}

func (s *Server) handleConnectDevice(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("deviceName")
	if err := s.service.ConnectDevice(name); err != nil {
		slog.Error("Error connecting to device", "device", name, "error", err)
		writeJSON(w, http.StatusBadRequest, result{Message: deviceMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, result{Success: true})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	v, err := s.service.Scan(r.PathValue("voucherNo"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, result{Message: deviceMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSaveBody)

	var v Voucher
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		slog.Error("Error decoding voucher", "error", err)
		writeJSON(w, http.StatusBadRequest, result{Message: "Invalid voucher data"})
		return
	}

	err := s.service.Save(v)
	var imgErr *ImageError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result{Success: true, Message: fmt.Sprintf("Voucher %s saved to database", NormalizeID(v.VoucherNo))})
	case errors.As(err, &imgErr):
		slog.Warn("Rejected voucher image", "voucher_no", v.VoucherNo, "error", err)
		writeJSON(w, http.StatusBadRequest, result{Message: capitalize(imgErr.Side) + " image " + imgErr.Reason})
	case errors.Is(err, ErrVoucherNoRequired):
		writeJSON(w, http.StatusBadRequest, result{Message: "Voucher number is required"})
	default:
		slog.Error("Error saving voucher", "voucher_no", v.VoucherNo, "error", err)
		writeJSON(w, http.StatusInternalServerError, result{Message: "Error saving to database"})
	}
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	v, err := s.service.View(id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, viewResponse{Success: true, Data: &v})
	case errors.Is(err, ErrVoucherNotFound):
		writeJSON(w, http.StatusOK, viewResponse{Message: fmt.Sprintf("No data found for voucher %s", id)})
	case errors.Is(err, ErrVoucherNoRequired):
		writeJSON(w, http.StatusBadRequest, viewResponse{Message: "Voucher number is required"})
	default:
		slog.Error("Error fetching voucher", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, viewResponse{Message: "Error fetching voucher data"})
	}
}

// deviceMessage turns a device-path error into the message shown to clients
func deviceMessage(err error) string {
	var (
		de *device.DriverError
		pe *ProcessError
	)
	switch {
	case errors.Is(err, device.ErrNoDevice):
		return "No device found"
	case errors.Is(err, device.ErrInvalidMode):
		return "Invalid document type"
	case errors.Is(err, device.ErrInvalidFeedType):
		return "Invalid document feed type for scan"
	case errors.Is(err, ErrNoData):
		return "No data captured from scan"
	case errors.As(err, &pe):
		return fmt.Sprintf("Process failed with ReturnCode %d", pe.ReturnCode)
	case errors.As(err, &de):
		switch {
		case de.Op == "open":
			return fmt.Sprintf("Failed to open device %s, code: %d", de.Device, de.Code)
		case de.Op == "reopen":
			return fmt.Sprintf("Failed to reopen device, code: %d", de.Code)
		case strings.HasPrefix(de.Op, "set option"):
			return fmt.Sprintf("Failed to setup options, code: %d", de.Code)
		}
		return fmt.Sprintf("Process check failed with code %d", de.Code)
	}
	return err.Error()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
