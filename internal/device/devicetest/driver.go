// Package devicetest provides a scriptable device.Driver for tests.
package devicetest

import (
	"fmt"
	"strings"
	"sync"

	"github.com/zombor/check-scanner/internal/device"
)

// StatusMissing is returned for response fields that were never scripted
const StatusMissing device.Status = -1

// ScanResult is what one ProcessCheck call returns
type ScanResult struct {
	Response string
	Status   device.Status
}

// QueryResult is what one QueryInfo call returns
type QueryResult struct {
	Value  string
	Status device.Status
}

// Driver records every call and answers from scripted values.
// Queues are consumed one entry per call; the last entry repeats.
type Driver struct {
	mu sync.Mutex

	// Devices are reported at indices 1..len(Devices); later indices are not found
	Devices []string
	// DeviceStatuses overrides the status of single enumeration indices
	DeviceStatuses map[int]device.Status

	OpenStatuses  []device.Status
	CloseStatuses []device.Status

	// SetFailures makes SetValue/SetIndexValue fail for a "Section/Key" or "Section/Key[i]"
	SetFailures map[string]device.Status

	ScanResults  []ScanResult
	QueryResults []QueryResult

	// Fields answers GetValue/GetIndexValue by "Section/Key" or "Section/Key[i]"
	Fields map[string]string
	// FieldQueues takes precedence over Fields while entries remain
	FieldQueues map[string][]string

	// Images answers GetImage by image id
	Images       map[string][]byte
	ImageFailure map[string]device.Status

	calls []string
}

// New returns a Driver with every map initialised
func New() *Driver {
	return &Driver{
		DeviceStatuses: make(map[int]device.Status),
		SetFailures:    make(map[string]device.Status),
		Fields:         make(map[string]string),
		FieldQueues:    make(map[string][]string),
		Images:         make(map[string][]byte),
		ImageFailure:   make(map[string]device.Status),
	}
}

// FieldKey formats the lookup key used by Fields and SetFailures
func FieldKey(section, key string, index int) string {
	if index == 0 {
		return section + "/" + key
	}
	return fmt.Sprintf("%s/%s[%d]", section, key, index)
}

// ParseOptions turns an options blob built by this driver back into a map
func ParseOptions(blob string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(blob, "\n") {
		k, v, ok := strings.Cut(line, "=")
		if ok {
			out[k] = v
		}
	}
	return out
}

func (d *Driver) record(format string, args ...any) {
	d.calls = append(d.calls, fmt.Sprintf(format, args...))
}

// Calls returns every recorded call in order, e.g. "OpenDevice STX.STX001"
func (d *Driver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// Methods returns the method names of every recorded call in order
func (d *Driver) Methods() []string {
	calls := d.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i], _, _ = strings.Cut(c, " ")
	}
	return out
}

// CallsTo counts recorded calls of one method
func (d *Driver) CallsTo(method string) int {
	n := 0
	for _, m := range d.Methods() {
		if m == method {
			n++
		}
	}
	return n
}

func nextStatus(queue *[]device.Status) device.Status {
	if len(*queue) == 0 {
		return device.StatusOK
	}
	s := (*queue)[0]
	if len(*queue) > 1 {
		*queue = (*queue)[1:]
	}
	return s
}

func (d *Driver) OpenDevice(name string) device.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("OpenDevice %s", name)
	return nextStatus(&d.OpenStatuses)
}

func (d *Driver) CloseDevice(name string) device.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CloseDevice %s", name)
	return nextStatus(&d.CloseStatuses)
}

func (d *Driver) GetDevice(index int) (string, device.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("GetDevice %d", index)
	if s, ok := d.DeviceStatuses[index]; ok {
		return "", s
	}
	if index < 1 || index > len(d.Devices) {
		return "", device.StatusDeviceNotFound
	}
	return d.Devices[index-1], device.StatusOK
}

func (d *Driver) QueryInfo(name, key string) (string, device.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("QueryInfo %s %s", name, key)
	if len(d.QueryResults) == 0 {
		return "", StatusMissing
	}
	r := d.QueryResults[0]
	if len(d.QueryResults) > 1 {
		d.QueryResults = d.QueryResults[1:]
	}
	return r.Value, r.Status
}

func (d *Driver) set(options, fieldKey, value string) (string, device.Status) {
	if s, ok := d.SetFailures[fieldKey]; ok {
		return options, s
	}
	return options + fieldKey + "=" + value + "\n", device.StatusOK
}

func (d *Driver) SetValue(options, section, key, value string) (string, device.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fk := FieldKey(section, key, 0)
	d.record("SetValue %s", fk)
	return d.set(options, fk, value)
}

func (d *Driver) SetIndexValue(options, section, key string, index int, value string) (string, device.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fk := FieldKey(section, key, index)
	d.record("SetIndexValue %s", fk)
	return d.set(options, fk, value)
}

func (d *Driver) get(fieldKey string) (string, device.Status) {
	if q := d.FieldQueues[fieldKey]; len(q) > 0 {
		v := q[0]
		if len(q) > 1 {
			d.FieldQueues[fieldKey] = q[1:]
		}
		return v, device.StatusOK
	}
	v, ok := d.Fields[fieldKey]
	if !ok {
		return "", StatusMissing
	}
	return v, device.StatusOK
}

func (d *Driver) GetValue(doc, section, key string) (string, device.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fk := FieldKey(section, key, 0)
	d.record("GetValue %s", fk)
	return d.get(fk)
}

func (d *Driver) GetIndexValue(doc, section, key string, index int) (string, device.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fk := FieldKey(section, key, index)
	d.record("GetIndexValue %s", fk)
	return d.get(fk)
}

func (d *Driver) ProcessCheck(name, options string) (string, device.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("ProcessCheck %s", name)
	if len(d.ScanResults) == 0 {
		return "", StatusMissing
	}
	r := d.ScanResults[0]
	if len(d.ScanResults) > 1 {
		d.ScanResults = d.ScanResults[1:]
	}
	return r.Response, r.Status
}

func (d *Driver) GetImage(name, imageID string, buf []byte) (int, device.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("GetImage %s %s", name, imageID)
	if s, ok := d.ImageFailure[imageID]; ok {
		return 0, s
	}
	img, ok := d.Images[imageID]
	if !ok {
		return 0, StatusMissing
	}
	return copy(buf, img), device.StatusOK
}
