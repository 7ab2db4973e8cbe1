package voucher

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/zombor/check-scanner/internal/device"
	"github.com/zombor/check-scanner/internal/retry"
)

// Scan feeds one document through the device and decodes the result.
// voucherNo is carried into check vouchers; card vouchers take it from track 2.
func (s *Service) Scan(voucherNo string) (Voucher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scanID := s.idGenerator.Generate()
	mode := s.session.Mode()
	log := slog.With("scan_id", scanID)

	name, open := s.session.Current()
	if !open || name == "" {
		var ok bool
		name, ok = s.directory.First()
		if !ok {
			log.Error("No device found")
			return Voucher{}, device.ErrNoDevice
		}
		if err := s.session.EnsureOpen(name); err != nil {
			log.Error("Failed to open device", "device", name, "error", err)
			return Voucher{}, fmt.Errorf("opening device: %w", err)
		}
	}

	// Start every scan from a freshly opened device
	if err := s.session.Reset(); err != nil {
		log.Error("Failed to reset device", "device", name, "error", err)
		return Voucher{}, fmt.Errorf("resetting device: %w", err)
	}

	if mode == device.ModeInvalid {
		return Voucher{}, device.ErrInvalidMode
	}

	options, err := device.BuildOptions(s.driver, mode)
	if err != nil {
		log.Error("Failed to set up options", "device", name, "mode", mode, "error", err)
		return Voucher{}, fmt.Errorf("setting up options: %w", err)
	}

	response, err := retry.Do(s.opts.ScanRetry, func(attempt int) (string, error) {
		response, status := s.driver.ProcessCheck(name, options)
		log.Info("Scan attempt",
			"attempt", attempt,
			"device", name,
			"mode", mode,
			"status", status,
			"response_length", len(response),
		)
		switch {
		case status == device.StatusInvalidFeedType:
			return "", retry.Permanent(&device.DriverError{Op: "scan", Device: name, Code: status})
		case status != device.StatusOK:
			return "", &device.DriverError{Op: "scan", Device: name, Code: status}
		case response == "":
			return "", ErrNoData
		}
		return response, nil
	})
	if err != nil {
		log.Error("Scan failed", "device", name, "mode", mode, "error", err)
		return Voucher{}, fmt.Errorf("scanning: %w", err)
	}

	code := s.returnCode(response)
	log.Info("Scan command status", "return_code", code)
	if code != 0 {
		return Voucher{}, &ProcessError{ReturnCode: code}
	}

	return s.extractor.Extract(response, mode, name, voucherNo), nil
}

// returnCode reads CommandStatus/ReturnCode; anything unparsable is -1
func (s *Service) returnCode(response string) int {
	raw, status := s.driver.GetValue(response, "CommandStatus", "ReturnCode")
	if status != device.StatusOK {
		return -1
	}
	code, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return -1
	}
	return code
}
