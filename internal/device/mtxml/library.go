// Package mtxml binds the vendor MICR/MSR shared library (mtxmlmcr) without cgo.
package mtxml

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/ebitengine/purego"

	"github.com/zombor/check-scanner/internal/device"
)

const (
	stringBufferSize = 4096
	deviceNameSize   = 256
	// options blobs grow with every write, so they get a larger buffer than responses
	optionsBufferSize = 4 * stringBufferSize
)

// Library implements device.Driver on top of the vendor library
type Library struct {
	getDevice     func(index int32, name *byte) int32
	openDevice    func(name string) int32
	closeDevice   func(name string) int32
	queryInfo     func(name, parm string, resp *byte, respLen *int32) int32
	setValue      func(options *byte, section, key, value string, actualLen *int32) int32
	setIndexValue func(options *byte, section, key string, index int32, value string, actualLen *int32) int32
	getValue      func(doc, section, key string, resp *byte, respLen *int32) int32
	getIndexValue func(doc, section, key string, index int32, resp *byte, respLen *int32) int32
	processCheck  func(name, options string, resp *byte, respLen *int32) int32
	getImage      func(name, imageID string, buf *byte, bufLen *int32) int32
}

// Open loads the shared library at path and resolves every call the service uses
func Open(path string) (lib *Library, err error) {
	handle, err := openLibrary(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	// RegisterLibFunc panics on a missing symbol
	defer func() {
		if r := recover(); r != nil {
			lib = nil
			err = fmt.Errorf("resolving symbols in %s: %v", path, r)
		}
	}()

	lib = &Library{}
	purego.RegisterLibFunc(&lib.getDevice, handle, "MTMICRGetDevice")
	purego.RegisterLibFunc(&lib.openDevice, handle, "MTMICROpenDevice")
	purego.RegisterLibFunc(&lib.closeDevice, handle, "MTMICRCloseDevice")
	purego.RegisterLibFunc(&lib.queryInfo, handle, "MTMICRQueryInfo")
	purego.RegisterLibFunc(&lib.setValue, handle, "MTMICRSetValue")
	purego.RegisterLibFunc(&lib.setIndexValue, handle, "MTMICRSetIndexValue")
	purego.RegisterLibFunc(&lib.getValue, handle, "MTMICRGetValue")
	purego.RegisterLibFunc(&lib.getIndexValue, handle, "MTMICRGetIndexValue")
	purego.RegisterLibFunc(&lib.processCheck, handle, "MTMICRProcessCheck")
	purego.RegisterLibFunc(&lib.getImage, handle, "MTMICRGetImage")

	slog.Info("Vendor library loaded", "path", path)
	return lib, nil
}

// cString returns the bytes of buf up to the first NUL
func cString(buf []byte) string {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		return string(buf[:i])
	}
	return string(buf)
}

// optionsBuffer copies an options blob into a writable, NUL padded buffer
func optionsBuffer(options string) []byte {
	size := optionsBufferSize
	if len(options)+stringBufferSize > size {
		size = len(options) + stringBufferSize
	}
	buf := make([]byte, size)
	copy(buf, options)
	return buf
}

func (l *Library) OpenDevice(name string) device.Status {
	return device.Status(l.openDevice(name))
}

func (l *Library) CloseDevice(name string) device.Status {
	return device.Status(l.closeDevice(name))
}

func (l *Library) GetDevice(index int) (string, device.Status) {
	buf := make([]byte, deviceNameSize)
	status := l.getDevice(int32(index), &buf[0])
	return cString(buf), device.Status(status)
}

func (l *Library) QueryInfo(name, key string) (string, device.Status) {
	buf := make([]byte, stringBufferSize)
	n := int32(len(buf))
	status := l.queryInfo(name, key, &buf[0], &n)
	return cString(buf), device.Status(status)
}

func (l *Library) SetValue(options, section, key, value string) (string, device.Status) {
	buf := optionsBuffer(options)
	n := int32(len(buf))
	status := l.setValue(&buf[0], section, key, value, &n)
	return cString(buf), device.Status(status)
}

func (l *Library) SetIndexValue(options, section, key string, index int, value string) (string, device.Status) {
	buf := optionsBuffer(options)
	n := int32(len(buf))
	status := l.setIndexValue(&buf[0], section, key, int32(index), value, &n)
	return cString(buf), device.Status(status)
}

func (l *Library) GetValue(doc, section, key string) (string, device.Status) {
	buf := make([]byte, stringBufferSize)
	n := int32(len(buf))
	status := l.getValue(doc, section, key, &buf[0], &n)
	return cString(buf), device.Status(status)
}

func (l *Library) GetIndexValue(doc, section, key string, index int) (string, device.Status) {
	buf := make([]byte, stringBufferSize)
	n := int32(len(buf))
	status := l.getIndexValue(doc, section, key, int32(index), &buf[0], &n)
	return cString(buf), device.Status(status)
}

func (l *Library) ProcessCheck(name, options string) (string, device.Status) {
	buf := make([]byte, stringBufferSize)
	n := int32(len(buf))
	status := l.processCheck(name, options, &buf[0], &n)
	return cString(buf), device.Status(status)
}

func (l *Library) GetImage(name, imageID string, buf []byte) (int, device.Status) {
	if len(buf) == 0 {
		return 0, device.StatusOK
	}
	n := int32(len(buf))
	status := l.getImage(name, imageID, &buf[0], &n)
	if n < 0 {
		n = 0
	}
	if int(n) > len(buf) {
		n = int32(len(buf))
	}
	return int(n), device.Status(status)
}

var _ device.Driver = (*Library)(nil)
