package device

import (
	"errors"
	"fmt"
)

// Status is the integer code every vendor driver call returns
type Status int

const (
	StatusOK              Status = 0
	StatusDeviceNotFound  Status = -7
	StatusInvalidFeedType Status = -17
)

// Driver is the low-level call contract of the vendor MICR/MSR library.
// Option and response blobs are opaque strings owned by the driver.
type Driver interface {
	// OpenDevice opens an exclusive session with the named device
	OpenDevice(name string) Status

	// CloseDevice closes the session with the named device
	CloseDevice(name string) Status

	// GetDevice returns the device name at a 1-based enumeration index
	GetDevice(index int) (string, Status)

	// QueryInfo asks the device for a named piece of information
	QueryInfo(name, key string) (string, Status)

	// SetValue writes section/key=value into an options blob and returns the new blob
	SetValue(options, section, key, value string) (string, Status)

	// SetIndexValue writes an indexed section/key=value into an options blob
	SetIndexValue(options, section, key string, index int, value string) (string, Status)

	// GetValue reads section/key from a response blob
	GetValue(doc, section, key string) (string, Status)

	// GetIndexValue reads an indexed section/key from a response blob
	GetIndexValue(doc, section, key string, index int) (string, Status)

	// ProcessCheck feeds one document using options and returns the response blob
	ProcessCheck(name, options string) (string, Status)

	// GetImage copies a captured image into buf and returns the number of bytes written
	GetImage(name, imageID string, buf []byte) (int, Status)
}

var (
	// ErrNoDevice is returned when discovery finds nothing to open
	ErrNoDevice = errors.New("no device found")

	// ErrInvalidMode is returned when a scan is attempted with the Invalid document mode
	ErrInvalidMode = errors.New("invalid document type")

	// ErrInvalidFeedType matches any DriverError carrying StatusInvalidFeedType
	ErrInvalidFeedType = errors.New("invalid document feed type")
)

// DriverError reports a failed driver call and its raw status code
type DriverError struct {
	Op     string
	Device string
	Code   Status
}

func (e *DriverError) Error() string {
	if e.Device == "" {
		return fmt.Sprintf("%s: driver returned %d", e.Op, e.Code)
	}
	return fmt.Sprintf("%s %s: driver returned %d", e.Op, e.Device, e.Code)
}

// Is lets errors.Is(err, ErrInvalidFeedType) see through driver errors
func (e *DriverError) Is(target error) bool {
	return target == ErrInvalidFeedType && e.Code == StatusInvalidFeedType
}
