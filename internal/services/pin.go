package services

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

const pinLength = 6

var sixDigitRun = regexp.MustCompile(`[0-9]{6}`)

// numberWords maps spoken digit words (English and Hindi) to their digit
var numberWords = map[string]byte{
	"zero": '0',
	"one": '1', "two": '2', "three": '3', "four": '4', "five": '5',
	"six": '6', "seven": '7', "eight": '8', "nine": '9',

	"शून्य": '0', "शुन्य": '0', "जीरो": '0', "ज़ीरो": '0',
	"एक": '1', "दो": '2', "तीन": '3', "चार": '4',
	"पाँच": '5', "पांच": '5', "पाच": '5',
	"छह": '6', "छः": '6', "छे": '6', "छै": '6',
	"सात": '7', "आठ": '8', "नौ": '9', "नो": '9',
}

// numberWordsByLength lists numberWords longest first for prefix matching
var numberWordsByLength = func() []string {
	words := make([]string, 0, len(numberWords))
	for w := range numberWords {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool { return len(words[i]) > len(words[j]) })
	return words
}()

// ExtractPIN finds a 6-digit postal code in DTMF digits or a speech transcript.
// DTMF wins when it is exactly six digits; otherwise the transcript is searched for
// a six digit run and then assembled from digit characters and number words.
func ExtractPIN(digits, speech string) (string, bool) {
	digits = strings.TrimSpace(digits)
	if isASCIIDigits(digits) && len(digits) == pinLength {
		return digits, true
	}

	transcript := normalizeDigits(speech)
	if run := sixDigitRun.FindString(transcript); run != "" {
		return run, true
	}

	collected := make([]byte, 0, pinLength)
	for _, token := range tokenize(strings.ToLower(transcript)) {
		collected = appendTokenDigits(collected, token)
		if len(collected) >= pinLength {
			return string(collected[:pinLength]), true
		}
	}
	return "", false
}

// normalizeDigits rewrites Devanagari digits (०-९) as ASCII digits
func normalizeDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '०' && r <= '९' {
			return '0' + (r - '०')
		}
		return r
	}, s)
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}

func appendTokenDigits(out []byte, token string) []byte {
	if d, ok := numberWords[token]; ok {
		return append(out, d)
	}
	if isASCIIDigits(token) {
		return append(out, token...)
	}
	if words, ok := splitNumberWords(token); ok {
		return append(out, words...)
	}

	// fallback: any digit characters inside an unrecognised word
	for i := 0; i < len(token); i++ {
		if token[i] >= '0' && token[i] <= '9' {
			out = append(out, token[i])
		}
	}
	return out
}

// splitNumberWords decodes a token made only of glued number words, e.g. "onetwo" or "एकदो"
func splitNumberWords(token string) ([]byte, bool) {
	var out []byte
	rest := token
	for rest != "" {
		matched := false
		for _, w := range numberWordsByLength {
			if strings.HasPrefix(rest, w) {
				out = append(out, numberWords[w])
				rest = rest[len(w):]
				matched = true
				break
			}
		}
		if !matched {
			return nil, false
		}
	}
	return out, len(out) > 0
}

func isASCIIDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
