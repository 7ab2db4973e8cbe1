package device

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/zombor/check-scanner/internal/retry"
)

// DefaultPreferredDevice is picked over every other discovered device
const DefaultPreferredDevice = "STX.STX001"

var errNoneFound = errors.New("no devices found")

// DirectoryConfig tunes device discovery
type DirectoryConfig struct {
	MaxDevices int
	Preferred  string
	FirstRetry retry.Policy
	ListRetry  retry.Policy
}

// DefaultDirectoryConfig returns the discovery settings used in production
func DefaultDirectoryConfig() DirectoryConfig {
	return DirectoryConfig{
		MaxDevices: 20,
		Preferred:  DefaultPreferredDevice,
		FirstRetry: retry.Policy{Attempts: 5, Delay: 2 * time.Second},
		ListRetry:  retry.Policy{Attempts: 3, Delay: time.Second},
	}
}

// Directory enumerates the devices the driver can see
type Directory struct {
	driver Driver
	cfg    DirectoryConfig
}

// NewDirectory creates a Directory
func NewDirectory(driver Driver, cfg DirectoryConfig) *Directory {
	if cfg.MaxDevices <= 0 {
		cfg.MaxDevices = 20
	}
	return &Directory{driver: driver, cfg: cfg}
}

// enumerate does one probing pass over the driver's device indices
func (d *Directory) enumerate(attempt int) []string {
	seen := make(map[string]bool)
	devices := make([]string, 0, 4)
	for index := 1; index <= d.cfg.MaxDevices; index++ {
		name, status := d.driver.GetDevice(index)
		slog.Debug("Probed device index", "attempt", attempt, "index", index, "status", status, "name", name)
		if status == StatusDeviceNotFound {
			break
		}
		if status != StatusOK || name == "" || seen[name] {
			continue
		}
		seen[name] = true
		devices = append(devices, name)
	}
	return devices
}

func (d *Directory) discover(policy retry.Policy) []string {
	devices, err := retry.Do(policy, func(attempt int) ([]string, error) {
		devices := d.enumerate(attempt)
		if len(devices) == 0 {
			slog.Info("No devices found, retrying", "attempt", attempt)
			return nil, errNoneFound
		}
		return devices, nil
	})
	if err != nil {
		slog.Warn("No devices found after all retries", "attempts", policy.Attempts)
		return []string{}
	}
	return devices
}

// List returns every discovered device name in index order without duplicates
func (d *Directory) List() []string {
	devices := d.discover(d.cfg.ListRetry)
	slog.Info("Device list", "devices", strings.Join(devices, ", "))
	return devices
}

// First returns the preferred device if present, otherwise the first discovered one
func (d *Directory) First() (string, bool) {
	devices := d.discover(d.cfg.FirstRetry)
	if len(devices) == 0 {
		return "", false
	}
	for _, name := range devices {
		if d.cfg.Preferred != "" && strings.EqualFold(name, d.cfg.Preferred) {
			slog.Info("Selected preferred device", "device", name)
			return name, true
		}
	}
	slog.Info("Selected device", "device", devices[0])
	return devices[0], true
}
