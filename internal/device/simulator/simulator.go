// Package simulator is an in-memory scanner used to run the service without hardware.
package simulator

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/zombor/check-scanner/internal/device"
)

// DeviceName is the single device the simulator reports
const DeviceName = "STX.STX001"

// SampleMICR is the MICR line returned for every simulated check
const SampleMICR = "000002U90109?UT9040007857211U01T"

// Simulator implements device.Driver with a fake check/MSR reader
type Simulator struct {
	mu     sync.Mutex
	open   map[string]bool
	images map[string][]byte
	seq    int
}

// New creates a Simulator
func New() *Simulator {
	return &Simulator{
		open:   make(map[string]bool),
		images: make(map[string][]byte),
	}
}

func fieldKey(section, key string, index int) string {
	if index == 0 {
		return section + "." + key
	}
	return fmt.Sprintf("%s.%s.%d", section, key, index)
}

func decode(blob string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(blob, "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			out[k] = v
		}
	}
	return out
}

func encode(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
		b.WriteByte('\n')
	}
	return b.String()
}

func (s *Simulator) OpenDevice(name string) device.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name != DeviceName {
		return device.StatusDeviceNotFound
	}
	s.open[name] = true
	return device.StatusOK
}

func (s *Simulator) CloseDevice(name string) device.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.open, name)
	return device.StatusOK
}

func (s *Simulator) GetDevice(index int) (string, device.Status) {
	if index == 1 {
		return DeviceName, device.StatusOK
	}
	return "", device.StatusDeviceNotFound
}

func (s *Simulator) QueryInfo(name, key string) (string, device.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open[name] {
		return "", device.StatusDeviceNotFound
	}
	if key == "DeviceStatus" {
		return "READY", device.StatusOK
	}
	return "", device.StatusOK
}

func (s *Simulator) SetValue(options, section, key, value string) (string, device.Status) {
	return s.SetIndexValue(options, section, key, 0, value)
}

func (s *Simulator) SetIndexValue(options, section, key string, index int, value string) (string, device.Status) {
	fields := decode(options)
	fields[fieldKey(section, key, index)] = value
	return encode(fields), device.StatusOK
}

func (s *Simulator) GetValue(doc, section, key string) (string, device.Status) {
	return s.GetIndexValue(doc, section, key, 0)
}

func (s *Simulator) GetIndexValue(doc, section, key string, index int) (string, device.Status) {
	v, ok := decode(doc)[fieldKey(section, key, index)]
	if !ok {
		return "", device.StatusDeviceNotFound
	}
	return v, device.StatusOK
}

func (s *Simulator) ProcessCheck(name, options string) (string, device.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open[name] {
		return "", device.StatusDeviceNotFound
	}
	s.seq++
	// only the latest scan's images can be fetched
	clear(s.images)

	opts := decode(options)
	doc := map[string]string{
		"CommandStatus.ReturnCode":      "0",
		"DeviceInfo.DeviceSerialNumber": "SIM0001",
	}
	switch opts["ProcessOptions.DocFeed"] {
	case "MSR":
		doc["MSRInfo.TrackData1"] = "%B4111111111111111^DOE/JOHN^29121010000000000000?"
		doc["MSRInfo.TrackData2"] = fmt.Sprintf(";4111111111111111=2912101%08d?", s.seq)
		doc["MSRInfo.TrackData3"] = ""
		doc["MSRInfo.CardType"] = "FINANCIAL"
		doc["MSRInfo.MagnePrintStatus"] = "00000000"
		doc["MSRInfo.Track1Status"] = "0"
		doc["MSRInfo.Track2Status"] = "0"
		doc["MSRInfo.Track3Status"] = "1"
		doc["MSRInfo.GetScore"] = "95"
	case "MANUAL":
		doc["DocInfo.MICRRaw"] = SampleMICR
		for i, side := range []string{"front", "back"} {
			id := fmt.Sprintf("%s-%d", side, s.seq)
			img, err := sampleImage(i)
			if err != nil {
				slog.Error("Simulator failed to render image", "error", err)
				return "", device.StatusInvalidFeedType
			}
			s.images[id] = img
			doc[fieldKey("ImageInfo", "ImageSize", i+1)] = strconv.Itoa(len(img))
			doc[fieldKey("ImageInfo", "ImageURL", i+1)] = id
		}
	default:
		return "", device.StatusInvalidFeedType
	}
	return encode(doc), device.StatusOK
}

func (s *Simulator) GetImage(name, imageID string, buf []byte) (int, device.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.images[imageID]
	if !ok {
		return 0, device.StatusDeviceNotFound
	}
	return copy(buf, img), device.StatusOK
}

// sampleImage renders a small grey check face; shade differs per side
func sampleImage(side int) ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, 320, 140))
	shade := color.Gray{Y: uint8(230 - 40*side)}
	for y := 0; y < 140; y++ {
		for x := 0; x < 320; x++ {
			img.SetGray(x, y, shade)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 75}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var _ device.Driver = (*Simulator)(nil)
