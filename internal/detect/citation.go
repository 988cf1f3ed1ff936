package detect

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

type Bucket string

const (
	BucketCitedAndQuoted    Bucket = "citedAndQuoted"
	BucketMissingCitation   Bucket = "missingCitation"
	BucketMissingQuotations Bucket = "missingQuotations"
	BucketNotCitedOrQuoted  Bucket = "notCitedOrQuoted"
)

const (
	citationLookBehind = 100
	citationLookAhead  = 200
)

var quotePairs = [][2]string{
	{`["“]`, `["”]`},
	{`['‘’]`, `['‘’]`},
	{`«`, `»`},
}

var citationPatterns = []*regexp.Regexp{
	// (Author, 2020) and (Author et al., 2020)
	regexp.MustCompile(`\([A-Z][A-Za-z'’\-]+(?:\s+et\s+al\.?)?,\s*\d{4}[a-z]?\)`),
	// [1], [1,2], [1-3]
	regexp.MustCompile(`\[\d+(?:\s*[,\-–]\s*\d+)*\]`),
	// (Smith 2020)
	regexp.MustCompile(`\([A-Z][A-Za-z'’\-]+\s+\d{4}[a-z]?\)`),
	// (Smith & Jones, 2020)
	regexp.MustCompile(`\([A-Z][A-Za-z'’\-]+\s*&\s*[A-Z][A-Za-z'’\-]+,?\s*\d{4}[a-z]?\)`),
	regexp.MustCompile(`\((?:see|cf\.)\s+[A-Z]`),
	regexp.MustCompile(`\(ibid\.?\)`),
}

// IsQuoted reports whether sentence appears in text wrapped in a quotation
// mark pair, whitespace allowed on either side.
func IsQuoted(text, sentence string) bool {
	if sentence == "" {
		return false
	}
	lit := regexp.QuoteMeta(sentence)
	for _, p := range quotePairs {
		re, err := regexp.Compile(p[0] + `\s*` + lit + `\s*` + p[1])
		if err != nil {
			continue
		}
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// HasCitation looks for a citation pattern within 100 characters before and
// 200 characters after the first verbatim occurrence of sentence.
func HasCitation(text, sentence string) bool {
	if sentence == "" {
		return false
	}
	idx := strings.Index(text, sentence)
	if idx < 0 {
		return false
	}
	start := idx
	for n := 0; n < citationLookBehind && start > 0; n++ {
		_, size := utf8.DecodeLastRuneInString(text[:start])
		start -= size
	}
	end := idx + len(sentence)
	for n := 0; n < citationLookAhead && end < len(text); n++ {
		_, size := utf8.DecodeRuneInString(text[end:])
		end += size
	}
	window := text[start:end]
	for _, re := range citationPatterns {
		if re.MatchString(window) {
			return true
		}
	}
	return false
}

const quoteMarks = "\"'‘’“”«» "

// Classify places a matched sentence into exactly one compliance bucket.
// Quote marks the segmenter kept on the sentence edges are stripped first.
func Classify(text, sentence string) Bucket {
	core := strings.Trim(sentence, quoteMarks)
	quoted := IsQuoted(text, core)
	cited := HasCitation(text, core)
	switch {
	case quoted && cited:
		return BucketCitedAndQuoted
	case quoted:
		return BucketMissingCitation
	case cited:
		return BucketMissingQuotations
	default:
		return BucketNotCitedOrQuoted
	}
}
