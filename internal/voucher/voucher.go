package voucher

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxImageSize is the largest decoded image accepted by Save
const MaxImageSize = 10 << 20

// Voucher is the decoded result of one scan. Fields that do not apply to
// the scan's document mode are empty strings.
type Voucher struct {
	VoucherNo          string `json:"voucherNo"`
	VoucherType        string `json:"voucherType"`
	MICR               string `json:"micr"`
	FrontImage         string `json:"frontImage"` // base64
	BackImage          string `json:"backImage"`  // base64
	Narration          string `json:"narration"`
	FrontImagePath     string `json:"frontImagePath"` // file name within the images directory
	BackImagePath      string `json:"backImagePath"`  // file name within the images directory
	TrackData1         string `json:"trackData1"`
	TrackData2         string `json:"trackData2"`
	TrackData3         string `json:"trackData3"`
	MPData             string `json:"mpData"`
	CardType           string `json:"cardType"`
	MagnePrintStatus   string `json:"magnePrintStatus"`
	Track1Status       string `json:"track1Status"`
	Track2Status       string `json:"track2Status"`
	Track3Status       string `json:"track3Status"`
	GetScore           string `json:"getScore"`
	DeviceSerialNumber string `json:"deviceSerialNumber"`
	DUKPTSerialNumber  string `json:"dukptSerialNumber"`
	EncryptedSessionID string `json:"encryptedSessionId"`
	EncryptedTrack1    string `json:"encryptedTrack1"`
	EncryptedTrack2    string `json:"encryptedTrack2"`
	EncryptedTrack3    string `json:"encryptedTrack3"`
	CheckNumber        string `json:"checkNumber"`
	AccountNumber      string `json:"accountNumber"`
	RoutingNumber      string `json:"routingNumber"`
	BankCode           string `json:"bankCode"`
	CheckDate          string `json:"checkDate"`
	Amount             string `json:"amount"`
	AmountWords        string `json:"amountWords"`
	AccountHolder      string `json:"accountHolder"`
	Signature          string `json:"signature"`
}

// StoredVoucher is the persisted form of a saved voucher
type StoredVoucher struct {
	VoucherNo  string    `json:"voucher_no"`
	Narration  string    `json:"narration"`
	Mode       string    `json:"mode"`
	FrontImage []byte    `json:"front_image,omitempty"`
	BackImage  []byte    `json:"back_image,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NormalizeID is the key vouchers are stored and looked up by
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

var (
	// ErrNoData is returned when every scan attempt succeeded with an empty response
	ErrNoData = errors.New("no data captured from scan")

	// ErrVoucherNoRequired is returned by Save and View for a blank voucher number
	ErrVoucherNoRequired = errors.New("voucher number is required")

	// ErrVoucherNotFound is returned when no voucher is stored under an id
	ErrVoucherNotFound = errors.New("voucher not found")
)

// ProcessError reports a scan the device completed with a non-zero command status
type ProcessError struct {
	ReturnCode int
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("process failed with ReturnCode %d", e.ReturnCode)
}

// ImageError rejects an image submitted to Save
type ImageError struct {
	Side   string
	Reason string
	Err    error
}

func (e *ImageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s image %s: %v", e.Side, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s image %s", e.Side, e.Reason)
}

func (e *ImageError) Unwrap() error {
	return e.Err
}
