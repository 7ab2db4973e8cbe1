package checkread

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"02 Jan 2006",
}

// parseCheckJSON pulls the first JSON object out of a model answer
func parseCheckJSON(text string) (*CheckFace, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	// Models sometimes answer amounts as numbers
	var raw map[string]any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	face := &CheckFace{
		Date:          normaliseDate(field(raw, "date")),
		Amount:        normaliseAmount(field(raw, "amount")),
		AmountWords:   field(raw, "amount_words"),
		AccountHolder: field(raw, "account_holder"),
	}
	return face, nil
}

func field(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// normaliseDate keeps unparseable values verbatim
func normaliseDate(s string) string {
	for _, format := range dateFormats {
		if d, err := time.Parse(format, s); err == nil {
			return d.Format("2006-01-02")
		}
	}
	return s
}

func normaliseAmount(s string) string {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if cleaned == "" {
		return ""
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return s
	}
	return fmt.Sprintf("%.2f", f)
}
