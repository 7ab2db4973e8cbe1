package voucher

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/zombor/check-scanner/internal/checkread"
	"github.com/zombor/check-scanner/internal/device"
	"github.com/zombor/check-scanner/internal/retry"
)

var msrFields = []struct {
	key string
	set func(v *Voucher, value string)
}{
	{"TrackData1", func(v *Voucher, s string) { v.TrackData1 = s }},
	{"TrackData2", func(v *Voucher, s string) { v.TrackData2 = s }},
	{"TrackData3", func(v *Voucher, s string) { v.TrackData3 = s }},
	{"MPData", func(v *Voucher, s string) { v.MPData = s }},
	{"CardType", func(v *Voucher, s string) { v.CardType = s }},
	{"MagnePrintStatus", func(v *Voucher, s string) { v.MagnePrintStatus = s }},
	{"Track1Status", func(v *Voucher, s string) { v.Track1Status = s }},
	{"Track2Status", func(v *Voucher, s string) { v.Track2Status = s }},
	{"Track3Status", func(v *Voucher, s string) { v.Track3Status = s }},
	{"GetScore", func(v *Voucher, s string) { v.GetScore = s }},
	{"DUKPTSerialNumber", func(v *Voucher, s string) { v.DUKPTSerialNumber = s }},
	{"EncryptedSessionID", func(v *Voucher, s string) { v.EncryptedSessionID = s }},
	{"EncryptedTrack1", func(v *Voucher, s string) { v.EncryptedTrack1 = s }},
	{"EncryptedTrack2", func(v *Voucher, s string) { v.EncryptedTrack2 = s }},
	{"EncryptedTrack3", func(v *Voucher, s string) { v.EncryptedTrack3 = s }},
}

// image slots in the scan response
const (
	frontSlot = 1
	backSlot  = 2
)

var (
	errImageSize = errors.New("image size unavailable")
	errImageID   = errors.New("image id unavailable")
	errImageRead = errors.New("image read returned no data")
)

// Extractor decodes a successful scan response into a Voucher
type Extractor struct {
	driver     device.Driver
	storage    Storage
	reader     checkread.Reader
	timeSource TimeSource
	imageRetry retry.Policy
}

// NewExtractor creates an Extractor. reader may be nil.
func NewExtractor(driver device.Driver, storage Storage, reader checkread.Reader, timeSource TimeSource, imageRetry retry.Policy) *Extractor {
	return &Extractor{
		driver:     driver,
		storage:    storage,
		reader:     reader,
		timeSource: timeSource,
		imageRetry: imageRetry,
	}
}

// Extract never fails; anything missing from the response decodes to ""
func (e *Extractor) Extract(response string, mode device.Mode, deviceName, voucherNo string) Voucher {
	if mode == device.ModeMagStripe {
		return e.extractMagStripe(response)
	}
	return e.extractCheck(response, deviceName, voucherNo)
}

func (e *Extractor) value(response, section, key string) string {
	v, status := e.driver.GetValue(response, section, key)
	if status != device.StatusOK {
		slog.Debug("Response field unavailable", "section", section, "key", key, "status", status)
		return ""
	}
	return strings.TrimSpace(v)
}

func (e *Extractor) extractMagStripe(response string) Voucher {
	var v Voucher
	for _, f := range msrFields {
		f.set(&v, e.value(response, "MSRInfo", f.key))
	}
	v.DeviceSerialNumber = e.value(response, "DeviceInfo", "DeviceSerialNumber")
	v.VoucherNo = v.TrackData2
	v.VoucherType = v.CardType

	slog.Info("Extracted card data",
		"card_type", v.CardType,
		"track1_status", v.Track1Status,
		"track2_status", v.Track2Status,
		"track3_status", v.Track3Status,
	)
	return v
}

func (e *Extractor) extractCheck(response, deviceName, voucherNo string) Voucher {
	v := Voucher{VoucherNo: voucherNo}

	v.MICR = e.value(response, "DocInfo", "MICRRaw")
	fields := ParseMICR(v.MICR)
	v.CheckNumber = fields.CheckNumber
	v.RoutingNumber = fields.RoutingNumber
	v.AccountNumber = fields.AccountNumber
	v.BankCode = fields.BankCode
	if v.AccountNumber == "" {
		v.AccountNumber = e.value(response, "DocInfo", "AccountNumber")
	}
	if v.RoutingNumber == "" {
		v.RoutingNumber = e.value(response, "DocInfo", "RoutingNumber")
	}

	front := e.captureImage(response, deviceName, frontSlot)
	back := e.captureImage(response, deviceName, backSlot)
	stamp := e.timeSource.Now().Format("20060102_150405")
	v.FrontImage, v.FrontImagePath = e.encode("front", stamp, front)
	v.BackImage, v.BackImagePath = e.encode("back", stamp, back)

	if e.reader != nil && len(front) > 0 {
		e.readFace(&v, front)
	}

	slog.Info("Extracted check data",
		"voucher_no", v.VoucherNo,
		"check_number", v.CheckNumber,
		"routing_number", v.RoutingNumber,
		"front_bytes", len(front),
		"back_bytes", len(back),
	)
	return v
}

// captureImage fetches one image slot, returning nil when every attempt fails
func (e *Extractor) captureImage(response, deviceName string, slot int) []byte {
	data, err := retry.Do(e.imageRetry, func(attempt int) ([]byte, error) {
		data, err := e.fetchImage(response, deviceName, slot)
		if err != nil {
			slog.Warn("Image fetch attempt failed", "slot", slot, "attempt", attempt, "error", err)
		}
		return data, err
	})
	if err != nil {
		slog.Error("Giving up on image", "slot", slot, "error", err)
		return nil
	}
	return data
}

func (e *Extractor) fetchImage(response, deviceName string, slot int) ([]byte, error) {
	raw, status := e.driver.GetIndexValue(response, "ImageInfo", "ImageSize", slot)
	if status != device.StatusOK {
		return nil, fmt.Errorf("%w: status %d", errImageSize, status)
	}
	size, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || size <= 0 {
		return nil, fmt.Errorf("%w: %q", errImageSize, raw)
	}

	id, status := e.driver.GetIndexValue(response, "ImageInfo", "ImageURL", slot)
	id = strings.TrimSpace(id)
	if status != device.StatusOK || id == "" {
		return nil, fmt.Errorf("%w: status %d", errImageID, status)
	}

	buf := make([]byte, size)
	n, status := e.driver.GetImage(deviceName, id, buf)
	if status != device.StatusOK || n <= 0 {
		return nil, fmt.Errorf("%w: status %d", errImageRead, status)
	}
	if n > size {
		n = size
	}
	return buf[:n], nil
}

// encode returns the base64 image and the audit file name; an audit failure only loses the name
func (e *Extractor) encode(side, stamp string, data []byte) (string, string) {
	if len(data) == 0 {
		return "", ""
	}
	encoded := base64.StdEncoding.EncodeToString(data)

	filename := fmt.Sprintf("%s_%s.jpg", side, stamp)
	path, err := e.storage.Save(filename, data)
	if err != nil {
		slog.Error("Failed to write audit image", "side", side, "filename", filename, "error", err)
		return encoded, ""
	}

	stored, err := e.storage.Get(path)
	if err != nil {
		slog.Error("Failed to read back audit image", "side", side, "path", path, "error", err)
		return encoded, ""
	}
	if !bytes.Equal(stored, data) {
		slog.Error("Audit image does not match capture", "side", side, "path", path, "stored_bytes", len(stored), "bytes", len(data))
		return encoded, ""
	}
	return encoded, path
}

func (e *Extractor) readFace(v *Voucher, front []byte) {
	face, err := e.reader.ReadCheck(front, "image/jpeg")
	if err != nil {
		slog.Warn("Failed to read check face", "voucher_no", v.VoucherNo, "error", err)
		return
	}
	v.CheckDate = face.Date
	v.Amount = face.Amount
	v.AmountWords = face.AmountWords
	v.AccountHolder = face.AccountHolder
}
