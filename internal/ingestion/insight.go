package ingestion

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/jdkato/prose/v2"
	"go.uber.org/zap"

	"github.com/rfp-agent/backend/internal/rfp"
	"github.com/rfp-agent/backend/pkg/logger"
)

const (
	BudgetNotMentioned    = "Budget not mentioned"
	TimelineNotMentioned  = "Timeline not mentioned"
	NoBusinessRequirement = "No clear business requirements found."
)

var (
	budgetPatterns = []*regexp.Regexp{
		regexp.MustCompile(`₹[\d,]+`),
		regexp.MustCompile(`\$[\d,]+`),
		regexp.MustCompile(`(?i)\d+\s?(crore|lakh|million|billion)`),
		regexp.MustCompile(`(?i)budget[^0-9]*[\d,.]+`),
	}

	timelinePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\d+\s?(days|weeks|months|quarters|years)`),
		regexp.MustCompile(`(?i)timeline[^0-9]*[\d,.]+\s?(days|weeks|months)`),
	}

	requirementKeywords = []string{"business need", "goal", "objective", "problem", "requirement", "use case", "scope"}
	requirementPatterns = compileRequirementPatterns(requirementKeywords)
)

func compileRequirementPatterns(keywords []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(keywords))
	for _, k := range keywords {
		patterns = append(patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(k)+`[^.]*\.`))
	}
	return patterns
}

// Insight computes the qualitative sales signals of an RFP.
func Insight(doc rfp.RFP) rfp.SalesInsight {
	text := insightText(doc)
	reqs := businessRequirements(strings.ToLower(text))
	budget := extractBudget(text)
	timeline := extractTimeline(text)

	return rfp.SalesInsight{
		BusinessRequirements: reqs,
		Budget:               budget,
		Timeline:             timeline,
		SalesFitScore:        fitScore(budget, timeline, reqs),
	}
}

// FitScore is the 0-100 sales fit: +30 for a budget, +20 for a timeline and
// +50 for more than one business requirement sentence.
func FitScore(doc rfp.RFP) int {
	return Insight(doc).SalesFitScore
}

func fitScore(budget, timeline string, reqs []string) int {
	score := 0
	if budget != BudgetNotMentioned {
		score += 30
	}
	if timeline != TimelineNotMentioned {
		score += 20
	}
	if len(reqs) > 1 {
		score += 50
	}
	if score > 100 {
		score = 100
	}
	return score
}

// insightText is the serialized RFP the signal patterns are searched over.
func insightText(doc rfp.RFP) string {
	data, err := json.Marshal(doc)
	if err != nil {
		logger.Warn("Failed to serialize RFP for insight", zap.String("rfp_id", doc.ID.String()), zap.Error(err))
		return ""
	}
	return string(data)
}

func extractBudget(text string) string {
	for _, p := range budgetPatterns {
		if m := p.FindString(text); m != "" {
			return m
		}
	}
	return BudgetNotMentioned
}

func extractTimeline(text string) string {
	for _, p := range timelinePatterns {
		if m := p.FindString(text); m != "" {
			return m
		}
	}
	return TimelineNotMentioned
}

// businessRequirements returns, per sentence, each fragment running from a
// requirement keyword to the next full stop, lower-cased and de-duplicated in
// order of appearance. A keyword with no full stop after it contributes nothing.
func businessRequirements(text string) []string {
	sentences := []string{text}
	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		logger.Debug("Sentence segmentation failed", zap.Error(err))
	} else if segmented := doc.Sentences(); len(segmented) > 0 {
		sentences = sentences[:0]
		for _, s := range segmented {
			sentences = append(sentences, s.Text)
		}
	}

	seen := make(map[string]bool)
	var reqs []string
	for _, sentence := range sentences {
		for _, p := range requirementPatterns {
			for _, m := range p.FindAllString(sentence, -1) {
				frag := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(m)), ".")
				if frag == "" || seen[frag] {
					continue
				}
				seen[frag] = true
				reqs = append(reqs, frag)
			}
		}
	}

	if len(reqs) == 0 {
		return []string{NoBusinessRequirement}
	}
	return reqs
}
