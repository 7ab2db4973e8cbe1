package voucher

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/check-scanner/internal/checkread"
	"github.com/zombor/check-scanner/internal/device"
	"github.com/zombor/check-scanner/internal/imaging"
	"github.com/zombor/check-scanner/internal/retry"
)

// IDGenerator generates scan correlation ids
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Options tunes scan and image retries
type Options struct {
	ScanRetry  retry.Policy
	ImageRetry retry.Policy
	// StatusRetry covers the device status query
	StatusRetry retry.Policy
}

// DefaultOptions returns the production retry settings
func DefaultOptions() Options {
	return Options{
		ScanRetry:   retry.Policy{Attempts: 3, Delay: 2 * time.Second},
		ImageRetry:  retry.Policy{Attempts: 5, Delay: time.Second},
		StatusRetry: retry.Policy{Attempts: 2},
	}
}

// DeviceStatus is the result of a status probe
type DeviceStatus struct {
	Connected      bool   `json:"connected"`
	DeviceName     string `json:"deviceName,omitempty"`
	StatusResponse string `json:"statusResponse,omitempty"`
	Message        string `json:"message,omitempty"`
}

// Service drives the scanner and stores vouchers. Every operation that
// touches the device holds mu; Save and View only touch the database.
type Service struct {
	mu        sync.Mutex
	driver    device.Driver
	directory *device.Directory
	session   *device.Session
	extractor *Extractor
	db        DB
	opts      Options

	// mode mirrors the session's document mode for Save
	mode atomic.Int32

	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a Service with a uuid id generator and the wall clock
func NewService(driver device.Driver, directory *device.Directory, session *device.Session, db DB, storage Storage, reader checkread.Reader, opts Options) *Service {
	return NewServiceWithDeps(driver, directory, session, db, storage, reader, opts, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a Service with custom dependencies for testing
func NewServiceWithDeps(driver device.Driver, directory *device.Directory, session *device.Session, db DB, storage Storage, reader checkread.Reader, opts Options, idGen IDGenerator, timeSrc TimeSource) *Service {
	s := &Service{
		driver:      driver,
		directory:   directory,
		session:     session,
		extractor:   NewExtractor(driver, storage, reader, timeSrc, opts.ImageRetry),
		db:          db,
		opts:        opts,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
	s.mode.Store(int32(session.Mode()))
	return s
}

// SetMode parses and applies a document type such as "CHECK" or "MSR"
func (s *Service) SetMode(docType string) (device.Mode, error) {
	m, err := device.ParseMode(docType)
	if err != nil {
		return m, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.SetMode(m); err != nil {
		return m, err
	}
	s.mode.Store(int32(m))
	return m, nil
}

// Mode returns the document mode the next scan will use
func (s *Service) Mode() device.Mode {
	return device.Mode(s.mode.Load())
}

// Devices lists the attached devices; an empty list is not an error
func (s *Service) Devices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.directory.List()
}

// Connect opens the preferred device unless one is already open
func (s *Service) Connect() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name, open := s.session.Current(); open {
		slog.Info("Device already open", "device", name, "mode", s.session.Mode())
		return name, nil
	}
	name, ok := s.directory.First()
	if !ok {
		return "", device.ErrNoDevice
	}
	if err := s.session.EnsureOpen(name); err != nil {
		return name, fmt.Errorf("connecting: %w", err)
	}
	return name, nil
}

// ConnectDevice opens name, closing any other open device first
func (s *Service) ConnectDevice(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return device.ErrNoDevice
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.session.EnsureOpen(name); err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	return nil
}

// Status opens the preferred device if needed and queries its status
func (s *Service) Status() DeviceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, ok := s.directory.First()
	if !ok {
		return DeviceStatus{Message: "No device found"}
	}

	if err := s.session.EnsureOpen(name); err != nil {
		code := device.Status(-1)
		var de *device.DriverError
		if errors.As(err, &de) {
			code = de.Code
		}
		slog.Error("Failed to open device for status", "device", name, "error", err)
		return DeviceStatus{DeviceName: name, Message: fmt.Sprintf("Failed to open device, code: %d", code)}
	}

	value, err := retry.Do(s.opts.StatusRetry, func(attempt int) (string, error) {
		value, status := s.driver.QueryInfo(name, "DeviceStatus")
		slog.Info("Queried device status", "device", name, "attempt", attempt, "status", status, "response", value)
		if status != device.StatusOK {
			return value, &device.DriverError{Op: "query status", Device: name, Code: status}
		}
		if strings.TrimSpace(value) == "" {
			return value, ErrNoData
		}
		return value, nil
	})

	return DeviceStatus{
		Connected:      err == nil,
		DeviceName:     name,
		StatusResponse: value,
	}
}

// Close closes the open device, if any
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Close()
}

// Save validates and stores a voucher. Images are only kept in check mode.
func (s *Service) Save(v Voucher) error {
	id := NormalizeID(v.VoucherNo)
	if id == "" {
		return ErrVoucherNoRequired
	}

	mode := s.Mode()
	record := &StoredVoucher{
		VoucherNo: id,
		Narration: v.Narration,
		Mode:      mode.String(),
		CreatedAt: s.timeSource.Now(),
	}

	if mode == device.ModeCheck {
		var err error
		if record.FrontImage, err = decodeImage("front", v.FrontImage); err != nil {
			return err
		}
		if record.BackImage, err = decodeImage("back", v.BackImage); err != nil {
			return err
		}
	}

	if err := s.db.SaveVoucher(record); err != nil {
		return fmt.Errorf("saving voucher to database: %w", err)
	}
	slog.Info("Saved voucher",
		"voucher_no", id,
		"mode", mode,
		"front_bytes", len(record.FrontImage),
		"back_bytes", len(record.BackImage),
	)
	return nil
}

// decodeImage returns nil for an empty image
func decodeImage(side, encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, &ImageError{Side: side, Reason: "is not a valid Base64 string", Err: err}
	}
	if len(data) > MaxImageSize {
		return nil, &ImageError{Side: side, Reason: "exceeds size limit (10MB)"}
	}
	if _, err := imaging.Detect(data); err != nil {
		return nil, &ImageError{Side: side, Reason: "is not a supported format", Err: err}
	}
	return data, nil
}

// View returns a stored voucher with its images re-encoded as base64
func (s *Service) View(id string) (Voucher, error) {
	if NormalizeID(id) == "" {
		return Voucher{}, ErrVoucherNoRequired
	}
	stored, err := s.db.GetVoucher(id)
	if err != nil {
		return Voucher{}, fmt.Errorf("getting voucher: %w", err)
	}

	v := Voucher{
		VoucherNo: stored.VoucherNo,
		Narration: stored.Narration,
	}
	if len(stored.FrontImage) > 0 {
		v.FrontImage = base64.StdEncoding.EncodeToString(stored.FrontImage)
	}
	if len(stored.BackImage) > 0 {
		v.BackImage = base64.StdEncoding.EncodeToString(stored.BackImage)
	}
	return v, nil
}
