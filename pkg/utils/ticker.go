// Package utils provides common utility functions for stockscore.
package utils

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrInvalidTicker is returned for symbols Yahoo Finance cannot accept.
var ErrInvalidTicker = eris.New("invalid ticker symbol")

// Yahoo symbols: letters, digits and a few separators, with optional
// exchange suffix (e.g. "BRK-B", "RELIANCE.NS", "^GSPC", "BTC-USD").
var tickerPattern = regexp.MustCompile(`^\^?[A-Z0-9][A-Z0-9.\-=&]{0,19}$`)

// Indian exchange suffixes used by Yahoo Finance.
const (
	SuffixNSE = ".NS"
	SuffixBSE = ".BO"
)

// NormalizeTicker uppercases and trims a user-input ticker. It strips a
// leading $ (common in chat) and validates the result.
func NormalizeTicker(ticker string) (string, error) {
	ticker = strings.TrimSpace(strings.ToUpper(ticker))
	ticker = strings.TrimPrefix(ticker, "$")

	if !tickerPattern.MatchString(ticker) {
		return "", eris.Wrapf(ErrInvalidTicker, "%q", ticker)
	}
	return ticker, nil
}

// Exchange returns "NSE" or "BSE" for Indian listings, "" otherwise.
func Exchange(ticker string) string {
	switch {
	case strings.HasSuffix(ticker, SuffixNSE):
		return "NSE"
	case strings.HasSuffix(ticker, SuffixBSE):
		return "BSE"
	}
	return ""
}

// IsIndianListing reports whether the ticker trades on NSE or BSE.
func IsIndianListing(ticker string) bool {
	return Exchange(ticker) != ""
}

// BaseSymbol strips the .NS or .BO suffix to get the exchange symbol.
func BaseSymbol(ticker string) string {
	ticker = strings.TrimSuffix(ticker, SuffixNSE)
	return strings.TrimSuffix(ticker, SuffixBSE)
}
