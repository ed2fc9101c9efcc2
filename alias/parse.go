// Package alias parses "[ticker:]alias[+tag]$domain" identifiers.
//
// Parse applies the client-side rules: it only needs the domain and the
// optional ticker prefix and never performs I/O. ParseStrict applies the full
// grammar a resolver uses to look aliases up.
package alias

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ruteri/cryptalias/interfaces"
)

var strictPattern = regexp.MustCompile(`^(?:([a-z0-9.-]+):)?([a-z0-9.-]+)(?:\+([a-z0-9.-]+))?\$([a-z0-9.-]+(?::[0-9]{1,5})?)$`)

func invalidFormat(input, msg string) error {
	return interfaces.NewError(interfaces.KindInvalidFormat, msg).
		WithValue(input).
		WithExpected(interfaces.AliasFormat)
}

// Parse splits an alias into its ticker prefix and domain.
//
// The final "$" separates the domain and must not be the last character. A
// ":" left of it introduces a ticker prefix; it may appear once and neither
// first nor last. The prefix is returned lower-cased.
func Parse(input string) (interfaces.ParsedAlias, error) {
	idx := strings.LastIndex(input, "$")
	if idx == -1 || idx == len(input)-1 {
		return interfaces.ParsedAlias{}, invalidFormat(input, "alias must contain a domain after the final '$'")
	}
	left, domain := input[:idx], input[idx+1:]

	var prefix string
	local := left
	if colon := strings.Index(left, ":"); colon != -1 {
		if colon == 0 || colon == len(left)-1 || strings.Contains(left[colon+1:], ":") {
			return interfaces.ParsedAlias{}, invalidFormat(input, "invalid ticker prefix")
		}
		prefix = strings.ToLower(left[:colon])
		local = left[colon+1:]
	}

	name, tag, _ := strings.Cut(local, "+")
	return interfaces.ParsedAlias{
		TickerPrefix: prefix,
		Domain:       domain,
		Local:        local,
		Name:         name,
		Tag:          tag,
	}, nil
}

// NormalizeTicker lower-cases and trims a caller-supplied ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToLower(strings.TrimSpace(ticker))
}

// CheckArguments rejects an empty ticker or alias and returns the normalized ticker.
func CheckArguments(ticker, input string) (string, error) {
	if ticker == "" || input == "" {
		return "", interfaces.NewError(interfaces.KindMissingArgument, "ticker and alias are required")
	}
	normalized := NormalizeTicker(ticker)
	if normalized == "" {
		return "", interfaces.NewError(interfaces.KindMissingArgument, "ticker and alias are required").WithValue(ticker)
	}
	return normalized, nil
}

// CheckTicker fails with KindTickerMismatch when the alias carries a ticker
// prefix that differs from the caller's ticker.
func CheckTicker(ticker string, parsed interfaces.ParsedAlias) error {
	if parsed.TickerPrefix == "" {
		return nil
	}
	normalized := NormalizeTicker(ticker)
	if normalized == "" || strings.EqualFold(parsed.TickerPrefix, normalized) {
		return nil
	}
	return interfaces.NewError(interfaces.KindTickerMismatch, "alias ticker prefix does not match ticker").
		WithValue(parsed.TickerPrefix).
		WithExpected(normalized)
}

// ParseStrict validates the complete alias grammar after lower-casing and
// trimming. Every label must start and end with a letter or digit and must
// not contain consecutive dots. The domain may carry a port.
func ParseStrict(input string) (interfaces.ParsedAlias, error) {
	clean := strings.ToLower(strings.TrimSpace(input))
	if clean == "" {
		return interfaces.ParsedAlias{}, invalidFormat(input, "empty identifier")
	}
	m := strictPattern.FindStringSubmatch(clean)
	if m == nil {
		return interfaces.ParsedAlias{}, invalidFormat(input, "invalid format")
	}
	prefix, name, tag, domain := m[1], m[2], m[3], m[4]

	if prefix != "" {
		if err := validateLabel(prefix, "ticker"); err != nil {
			return interfaces.ParsedAlias{}, invalidFormat(input, err.Error())
		}
	}
	if err := validateLabel(name, "alias"); err != nil {
		return interfaces.ParsedAlias{}, invalidFormat(input, err.Error())
	}
	if tag != "" {
		if err := validateLabel(tag, "tag"); err != nil {
			return interfaces.ParsedAlias{}, invalidFormat(input, err.Error())
		}
	}

	local := name
	if tag != "" {
		local = name + "+" + tag
	}
	return interfaces.ParsedAlias{
		TickerPrefix: prefix,
		Domain:       domain,
		Local:        local,
		Name:         name,
		Tag:          tag,
	}, nil
}

func validateLabel(s, field string) error {
	if s == "" {
		return fmt.Errorf("%s is empty", field)
	}
	isAlnum := func(b byte) bool {
		return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
	}
	if !isAlnum(s[0]) || !isAlnum(s[len(s)-1]) {
		return fmt.Errorf("%s must start and end with a letter or digit", field)
	}
	if strings.Contains(s, "..") {
		return fmt.Errorf("%s must not contain consecutive dots", field)
	}
	return nil
}
