package invoice

import (
	"fmt"
	"regexp"
)

var (
	customerNumberReplacer = regexp.MustCompile(`%CN%`)
	counterReplacer        = regexp.MustCompile(`%(0?)(\d*)C%`)
	year4Replacer          = regexp.MustCompile(`%YYYY%`)
	year2Replacer          = regexp.MustCompile(`%YY%`)
)

// CounterSource provides the next free invoice counter for an owner.
// *model.ZeitDatenbank satisfies this.
type CounterSource interface {
	NextInvoiceCounter(ownerID uint) (uint, error)
}

// NumberGenerator produces the next invoice number for a model. Generators
// are registered by name and selected via the template's generator field.
type NumberGenerator interface {
	Name() string
	Generate(m *Model) (string, error)
}

// DateNumberGenerator numbers invoices by their invoice date (ymd).
type DateNumberGenerator struct{}

func (DateNumberGenerator) Name() string { return "default" }

func (DateNumberGenerator) Generate(m *Model) (string, error) {
	return m.InvoiceDate.Format("060102"), nil
}

// PatternNumberGenerator expands the template's number pattern. Supported
// placeholders: %YYYY%, %YY%, %CN% (customer number) and %C% with an
// optional zero-padded width, e.g. %04C%.
type PatternNumberGenerator struct {
	Counters CounterSource
}

func (PatternNumberGenerator) Name() string { return "pattern" }

func (g PatternNumberGenerator) Generate(m *Model) (string, error) {
	if m.Template == nil || m.Template.NumberPattern == "" {
		return "", fmt.Errorf("number pattern is empty")
	}
	counter, err := g.Counters.NextInvoiceCounter(m.Query.OwnerID)
	if err != nil {
		return "", err
	}
	m.counter = counter
	customerNumber := ""
	if m.Customer != nil {
		customerNumber = m.Customer.Number
	}
	return expandNumberPattern(m.Template.NumberPattern, customerNumber, m.InvoiceDate.Year(), int(counter)), nil
}

func expandNumberPattern(in string, customernumber string, year int, counter int) string {
	// Replace customer number
	in = customerNumberReplacer.ReplaceAllLiteralString(in, customernumber)

	// Replace year placeholders
	in = year4Replacer.ReplaceAllLiteralString(in, fmt.Sprintf("%04d", year))
	in = year2Replacer.ReplaceAllLiteralString(in, fmt.Sprintf("%02d", year%100))

	// Replace counter
	if counterReplacer.MatchString(in) {
		x := counterReplacer.FindAllStringSubmatch(in, -1)
		for _, m := range x {
			var formatted string
			if m[2] == "" { // no width → just %d
				formatted = fmt.Sprintf("%d", counter)
			} else if m[1] == "0" {
				formatted = fmt.Sprintf("%0"+m[2]+"d", counter)
			} else {
				// width given but no leading zero → %d
				formatted = fmt.Sprintf("%d", counter)
			}
			in = counterReplacer.ReplaceAllString(in, formatted)
		}
	}
	return in
}

var _ NumberGenerator = DateNumberGenerator{}
var _ NumberGenerator = PatternNumberGenerator{}
