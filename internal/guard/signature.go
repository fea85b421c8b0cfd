package guard

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// minSignatureText is the shortest text worth fingerprinting.
	minSignatureText = 50
	// signatureWords is how many of the most frequent words make up a
	// signature.
	signatureWords = 5
	// minWordLen excludes short words; only longer words are significant.
	minWordLen = 3
)

var stopWords = func() map[string]struct{} {
	words := strings.Fields(`
		the a an is are was were be been being have has had do does did will
		would could should may might shall can need dare ought used to of in
		for on with at by from as into through during before after above
		below between out off over under again further then once here there
		when where why how all both each few more most other some such no nor
		not only own same so than too very just don now and but or if while
		that this it i you we they he she my your his her its our their what
		which who whom okay yes thanks thank please sorry hello hi hey sure
		right well also still already done going want like know think make
		take get see come look use find give tell work`)
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// ExtractSignature fingerprints text by its most frequent significant
// words: lowercased, punctuation removed, words of more than three letters
// that are not stop words. The top five by frequency (earlier words win
// ties) are sorted and joined with commas. It returns "" when text is
// shorter than 50 characters or yields fewer than minWords words.
func ExtractSignature(text string, minWords int) string {
	if utf8.RuneCountInString(text) < minSignatureText {
		return ""
	}

	normalized := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, strings.ToLower(text))

	freq := map[string]int{}
	var order []string
	for _, w := range strings.Fields(normalized) {
		if utf8.RuneCountInString(w) <= minWordLen {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if freq[w] == 0 {
			order = append(order, w)
		}
		freq[w]++
	}

	sort.SliceStable(order, func(i, j int) bool { return freq[order[i]] > freq[order[j]] })
	if len(order) > signatureWords {
		order = order[:signatureWords]
	}
	if len(order) < minWords || len(order) == 0 {
		return ""
	}
	sort.Strings(order)
	return strings.Join(order, ",")
}

// Jaccard returns |A∩B| / |A∪B| over the comma-separated words of two
// signatures.
func Jaccard(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	union := len(setA)
	inter := 0
	for w := range setB {
		if _, ok := setA[w]; ok {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func wordSet(sig string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range strings.Split(sig, ",") {
		set[w] = struct{}{}
	}
	return set
}

// BuildNudge renders the self-reflection prompt injected when a loop is
// detected.
func BuildNudge(signature, userName string) string {
	if userName == "" {
		userName = DefaultUserName
	}
	words := strings.Join(strings.Split(signature, ","), ", ")
	return fmt.Sprintf(`<stuck-detection>
SELF-REFLECTION: Loop detected. Analysis:
- Repeating topic words: %s
- Pattern: You may be repeating information or giving unsolicited updates

BREAK THE LOOP:
1. Ask %s a direct question about what they want
2. Wait for input instead of volunteering information
3. If you must respond, try a completely different topic
4. Do NOT repeat status updates unless explicitly asked
</stuck-detection>`, words, userName)
}
