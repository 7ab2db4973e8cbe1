package device

import (
	"fmt"
	"log/slog"
)

// option is one key/value write into an options blob. Index 0 means not indexed.
type option struct {
	section string
	key     string
	index   int
	value   string
}

func (o option) String() string {
	if o.index == 0 {
		return fmt.Sprintf("%s/%s=%s", o.section, o.key, o.value)
	}
	return fmt.Sprintf("%s/%s[%d]=%s", o.section, o.key, o.index, o.value)
}

var magStripeOptions = []option{
	{section: "ProcessOptions", key: "DocFeed", value: "MSR"},
	{section: "ProcessOptions", key: "DocFeedTimeout", value: "15000"},
	{section: "ProcessOptions", key: "MSRFmt", value: "ISO"},
}

var checkOptions = buildCheckOptions()

func buildCheckOptions() []option {
	opts := []option{
		{section: "Application", key: "Transfer", value: "HTTP"},
		{section: "Application", key: "DocUnits", value: "ENGLISH"},
		{section: "ProcessOptions", key: "DocFeedTimeout", value: "10000"},
		{section: "ProcessOptions", key: "DocFeed", value: "MANUAL"},
		{section: "ImageOptions", key: "Number", value: "2"},
	}
	sides := []string{"FRONT", "BACK"}
	perImage := []struct{ key, value string }{
		{"ImageSide", ""},
		{"ImageColor", "COL24"},
		{"Resolution", "100x100"},
		{"Compression", "JPEG"},
		{"FileType", "JPG"},
	}
	for _, field := range perImage {
		for i, side := range sides {
			value := field.value
			if field.key == "ImageSide" {
				value = side
			}
			opts = append(opts, option{section: "ImageOptions", key: field.key, index: i + 1, value: value})
		}
	}
	return append(opts,
		option{section: "ProcessOptions", key: "ReadMICR", value: "E13B"},
		option{section: "ProcessOptions", key: "MICRFmt", value: "6200"},
	)
}

// BuildOptions produces the options blob for the next scan in mode m.
// The first failing write aborts the build and no blob is returned.
func BuildOptions(driver Driver, m Mode) (string, error) {
	var opts []option
	switch m {
	case ModeMagStripe:
		opts = magStripeOptions
	case ModeCheck:
		opts = checkOptions
	default:
		slog.Warn("Cannot build options for document type", "mode", m)
		return "", &DriverError{Op: "build options", Code: StatusInvalidFeedType}
	}

	var (
		blob   string
		status Status
	)
	for _, o := range opts {
		if o.index == 0 {
			blob, status = driver.SetValue(blob, o.section, o.key, o.value)
		} else {
			blob, status = driver.SetIndexValue(blob, o.section, o.key, o.index, o.value)
		}
		if status != StatusOK {
			slog.Error("Failed to set option", "option", o.String(), "status", status)
			return "", &DriverError{Op: "set option " + o.String(), Code: status}
		}
	}
	slog.Debug("Options built", "mode", m, "options", blob)
	return blob, nil
}
