package device

import (
	"fmt"
	"log/slog"
)

// Session tracks the single open device and the current document mode.
// It is not safe for concurrent use; callers serialise access.
type Session struct {
	driver Driver
	name   string
	open   bool
	mode   Mode
}

// NewSession creates a closed Session in Check mode
func NewSession(driver Driver) *Session {
	return &Session{driver: driver, mode: ModeCheck}
}

// Current returns the selected device name and whether it is open
func (s *Session) Current() (string, bool) {
	return s.name, s.open
}

// Mode returns the current document mode
func (s *Session) Mode() Mode {
	return s.mode
}

// SetMode changes the document mode used by the next scan
func (s *Session) SetMode(m Mode) error {
	if m != ModeCheck && m != ModeMagStripe {
		return fmt.Errorf("%w: %s", ErrInvalidMode, m)
	}
	s.mode = m
	slog.Info("Document type set", "mode", m)
	return nil
}

// EnsureOpen opens name, closing any other open device first.
// A failed open is retried once after a close.
func (s *Session) EnsureOpen(name string) error {
	if s.open && s.name == name {
		return nil
	}
	if s.open {
		s.Close()
	}

	s.name = name
	status := s.driver.OpenDevice(name)
	slog.Info("Opened device", "device", name, "status", status)
	if status != StatusOK {
		s.driver.CloseDevice(name)
		status = s.driver.OpenDevice(name)
		slog.Info("Retried opening device", "device", name, "status", status)
		if status != StatusOK {
			return &DriverError{Op: "open", Device: name, Code: status}
		}
	}
	s.open = true
	return nil
}

// Close closes the current device. The session is marked closed whatever the driver says.
func (s *Session) Close() {
	if !s.open {
		return
	}
	status := s.driver.CloseDevice(s.name)
	slog.Info("Closed device", "device", s.name, "status", status)
	s.open = false
}

// Reset closes and reopens the current device so no configuration from a
// previous operation survives into the next scan. A closed session is left alone.
func (s *Session) Reset() error {
	if !s.open {
		return nil
	}
	s.Close()
	status := s.driver.OpenDevice(s.name)
	slog.Info("Reopened device for reset", "device", s.name, "status", status)
	if status != StatusOK {
		return &DriverError{Op: "reopen", Device: s.name, Code: status}
	}
	s.open = true
	return nil
}
