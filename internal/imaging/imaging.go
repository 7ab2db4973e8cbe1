package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// Format names an accepted image container
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatGIF  Format = "gif"
	FormatHEIC Format = "heic"
	FormatPDF  Format = "pdf"
)

// ErrUnsupportedFormat is returned for data that is not one of the accepted formats
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Detect identifies the format of data and checks that its header decodes
func Detect(data []byte) (Format, error) {
	switch {
	case len(data) == 0:
		return "", fmt.Errorf("%w: empty image", ErrUnsupportedFormat)
	case isPDF(data):
		doc, err := fitz.NewFromMemory(data)
		if err != nil {
			return "", fmt.Errorf("%w: opening PDF: %v", ErrUnsupportedFormat, err)
		}
		defer doc.Close()
		if doc.NumPage() < 1 {
			return "", fmt.Errorf("%w: PDF has no pages", ErrUnsupportedFormat)
		}
		return FormatPDF, nil
	case isHEICFormat(data):
		if _, err := heic.DecodeConfig(bytes.NewReader(data)); err != nil {
			return "", fmt.Errorf("%w: decoding HEIC header: %v", ErrUnsupportedFormat, err)
		}
		return FormatHEIC, nil
	}

	_, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	switch name {
	case "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "gif":
		return FormatGIF, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
}

func isPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

// isHEICFormat checks for an ftyp box with a HEIC/HEIF brand at offset 4
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMimeType(mimeType string) bool {
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

// pdfToImage renders the first page of a PDF
func pdfToImage(data []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return img, nil
}

// ToPNG converts a JPEG, GIF, HEIC or PDF payload to PNG. PNG input is returned as is.
func ToPNG(data []byte, contentType string) ([]byte, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))

	var (
		img image.Image
		err error
	)
	switch {
	case mimeType == "application/pdf" || isPDF(data):
		img, err = pdfToImage(data)
	case isHEICFormat(data) || isHEICMimeType(mimeType):
		img, err = heic.Decode(bytes.NewReader(data))
		if err != nil {
			err = fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
	default:
		var name string
		img, name, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding image: %w", err)
		}
		if name == "png" {
			return data, nil
		}
	}
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}
