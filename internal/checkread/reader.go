package checkread

// CheckFace holds the fields printed on the front of a check
type CheckFace struct {
	Date          string `json:"date"` // YYYY-MM-DD when the model's answer parses
	Amount        string `json:"amount"`
	AmountWords   string `json:"amount_words"`
	AccountHolder string `json:"account_holder"`
}

// Reader reads the printed fields of a check image
type Reader interface {
	// ReadCheck analyzes a check front image and extracts its printed fields
	ReadCheck(imageData []byte, contentType string) (*CheckFace, error)
	// Close releases any client resources
	Close() error
}

// checkReadPrompt is shared by every model provider
const checkReadPrompt = `You are looking at the front of a bank check. Read the printed and handwritten text and extract:

1. date: the date written on the check, formatted YYYY-MM-DD
2. amount: the numeric amount in the courtesy box, digits only with a decimal point (e.g. 1250.00)
3. amount_words: the amount as written out in words on the legal line
4. account_holder: the name of the account holder printed in the top left corner

Ignore the MICR line at the bottom of the check.

Return ONLY a JSON object with exactly these keys and string values:
{"date": "...", "amount": "...", "amount_words": "...", "account_holder": "..."}

Use an empty string for anything you cannot read. Do not include any other text.`
