package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/garyjia/finnexus/internal/domain/entity"
)

// rawExtraction is the reply as the model sends it. Amounts may come as
// numbers or strings, so they stay raw like the dates until validated.
type rawExtraction struct {
	InvoiceNo  *string         `json:"invoiceNo"`
	ClientName *string         `json:"clientName"`
	Amount     json.RawMessage `json:"amount"`
	TaxAmount  json.RawMessage `json:"taxAmount"`
	Date       *string         `json:"date"`
	DueDate    *string         `json:"dueDate"`
}

type parsedExtraction struct {
	entity.ExtractedFields
	present []string
}

// parseExtraction decodes a reply, tolerating markdown fences around the object.
// Unparsable dates and amounts count as absent.
func parseExtraction(content string) (parsedExtraction, error) {
	var raw rawExtraction
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		jsonStr := extractJSON(content)
		if jsonStr == "" {
			return parsedExtraction{}, fmt.Errorf("%w: %v", ErrUnparsable, err)
		}
		if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
			return parsedExtraction{}, fmt.Errorf("%w: %v", ErrUnparsable, err)
		}
	}

	var out parsedExtraction
	if raw.InvoiceNo != nil {
		out.InvoiceNo = raw.InvoiceNo
		out.present = append(out.present, "invoiceNo")
	}
	if raw.ClientName != nil {
		out.ClientName = raw.ClientName
		out.present = append(out.present, "clientName")
	}
	if d := parseOptionalAmount(raw.Amount); d != nil {
		out.Amount = d
		out.present = append(out.present, "amount")
	}
	if d := parseOptionalAmount(raw.TaxAmount); d != nil {
		out.TaxAmount = d
		out.present = append(out.present, "taxAmount")
	}
	if d := parseOptionalDate(raw.Date); d != nil {
		out.Date = d
		out.present = append(out.present, "date")
	}
	if d := parseOptionalDate(raw.DueDate); d != nil {
		out.DueDate = d
		out.present = append(out.present, "dueDate")
	}
	return out, nil
}

func parseOptionalDate(s *string) *entity.Date {
	if s == nil {
		return nil
	}
	d, err := entity.ParseDate(strings.TrimSpace(*s))
	if err != nil {
		return nil
	}
	return &d
}

// parseOptionalAmount accepts a JSON number or a numeric string. Anything
// else, including amounts out of range, is treated as absent.
func parseOptionalAmount(raw json.RawMessage) *decimal.Decimal {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return nil
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		text = strings.TrimSpace(s)
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return nil
	}
	if err := entity.CheckAmount(d); err != nil {
		return nil
	}
	return &d
}

// extractJSON returns the first balanced {...} block in content
func extractJSON(content string) string {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return ""
	}
	end := findJSONEnd(content, start)
	if end <= start {
		return ""
	}
	return content[start:end]
}

// findJSONEnd returns the index after the brace closing the object at start
func findJSONEnd(content string, start int) int {
	depth := 0
	inString := false
	escapeNext := false

	for i := start; i < len(content); i++ {
		char := content[i]

		if escapeNext {
			escapeNext = false
			continue
		}
		if char == '\\' {
			escapeNext = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch char {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}
