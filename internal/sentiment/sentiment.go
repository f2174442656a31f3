// Package sentiment scores news text with a keyword-ratio heuristic. Scoring
// is pure and synchronous; callers may parallelize across items freely.
package sentiment

import "strings"

// Keyword lists for CN financial news. Score sign follows the majority side.
var (
	positiveKeywords = []string{"上涨", "利好", "增长", "盈利", "突破", "买入", "推荐"}
	negativeKeywords = []string{"下跌", "利空", "亏损", "风险", "下调", "卖出", "减持"}
)

// Score is one text's sentiment annotation. Value is in [-1, 1];
// LowConfidence marks items that could not be meaningfully scored
// (empty or whitespace-only text) rather than dropping them.
type Score struct {
	Value         float64
	Confidence    float64
	LowConfidence bool
}

// Analyze scores a single text. Empty text scores neutral with zero
// confidence and the low-confidence flag set.
func Analyze(text string) Score {
	if strings.TrimSpace(text) == "" {
		return Score{Value: 0, Confidence: 0, LowConfidence: true}
	}

	var pos, neg int
	for _, kw := range positiveKeywords {
		if strings.Contains(text, kw) {
			pos++
		}
	}
	for _, kw := range negativeKeywords {
		if strings.Contains(text, kw) {
			neg++
		}
	}

	switch {
	case pos > neg:
		v := min(float64(pos)/float64(len(positiveKeywords)), 1)
		return Score{Value: v, Confidence: v}
	case neg > pos:
		v := min(float64(neg)/float64(len(negativeKeywords)), 1)
		return Score{Value: -v, Confidence: v}
	default:
		// No signal either way: neutral, but the text was readable.
		return Score{Value: 0, Confidence: 0.5}
	}
}
