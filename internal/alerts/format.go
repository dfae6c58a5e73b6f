package alerts

import (
	"fmt"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	DefaultLocale   = "ko-KR"
	DefaultCurrency = "KRW"
)

// Formatter renders amounts for alert messages, e.g. "30,000 KRW".
type Formatter struct {
	printer *message.Printer
	unit    currency.Unit
}

func NewFormatter(locale, code string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse alert locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("parse alert currency %q: %w", code, err)
	}
	return &Formatter{printer: message.NewPrinter(tag), unit: unit}, nil
}

// DefaultFormatter formats for ko-KR and KRW.
func DefaultFormatter() *Formatter {
	f, err := NewFormatter(DefaultLocale, DefaultCurrency)
	if err != nil {
		panic(err)
	}
	return f
}

// Amount groups digits the locale's way and appends the ISO code.
func (f *Formatter) Amount(v int64) string {
	return f.printer.Sprintf("%d %s", v, f.unit.String())
}
