package ingestion

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/rfp-agent/backend/internal/rfp"
)

var (
	titleLabels = []string{"title:", "rfp title:", "request for proposal"}
	dueLabels   = []string{"due date:", "submission date:", "due:"}
	testLabels  = []string{"required tests:", "tests:"}
)

// ExtractField returns the rest of the line following the first label found,
// trying labels in order and matching case-insensitively. Leading whitespace
// and punctuation are stripped; the value keeps the case of the source text.
func ExtractField(text string, labels []string) string {
	for _, label := range labels {
		if label == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label))
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}

		rest := text[loc[1]:]
		if idx := strings.IndexAny(rest, "\r\n"); idx >= 0 {
			rest = rest[:idx]
		}
		rest = strings.TrimLeftFunc(rest, func(r rune) bool {
			return unicode.IsSpace(r) || unicode.IsPunct(r)
		})
		rest = strings.TrimSpace(rest)
		if rest != "" {
			return rest
		}
	}
	return ""
}

// descriptionLookback is how many lines above a spec line are searched for
// an item description.
const descriptionLookback = 3

var (
	voltagePattern    = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s?(kv|v)`)
	conductorPattern  = regexp.MustCompile(`(?i)\b(aluminium|aluminum|copper|steel)\b`)
	insulationPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s?mm\b`)
)

type scopeState int

const (
	stateIdle scopeState = iota
	stateAccumulating
)

type pendingItem struct {
	description string
	specs       rfp.Specs
}

// complete reports whether the item carries enough to be emitted.
func (p *pendingItem) complete() bool {
	return p.specs.String(rfp.SpecVoltage) != "" || p.specs.String(rfp.SpecConductor) != ""
}

// ExtractScope scans plain text for cable scope items. A line mentioning
// voltage, conductor or insulation opens an item (Idle -> Accumulating) and
// contributes whatever values it carries. The item is emitted as soon as it
// has a voltage or a conductor; an item still pending at the end is dropped.
func ExtractScope(text string) []rfp.ScopeItem {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	items := []rfp.ScopeItem{}

	state := stateIdle
	var cur *pendingItem

	for i, line := range lines {
		low := strings.ToLower(line)
		hasVoltage := strings.Contains(low, "voltage")
		hasConductor := strings.Contains(low, "conductor")
		hasInsulation := strings.Contains(low, "insulation")
		if !hasVoltage && !hasConductor && !hasInsulation {
			continue
		}

		if state == stateIdle {
			cur = &pendingItem{specs: rfp.Specs{}}
			state = stateAccumulating
		}

		if cur.description == "" {
			cur.description = lookbackDescription(lines, i)
		}

		if hasVoltage {
			if m := voltagePattern.FindStringSubmatch(line); m != nil {
				cur.specs[rfp.SpecVoltage] = normalizeVoltage(m[1], m[2])
			}
		}
		if hasConductor {
			if m := conductorPattern.FindStringSubmatch(line); m != nil {
				cur.specs[rfp.SpecConductor] = capitalize(m[1])
			}
		}
		if hasInsulation {
			if m := insulationPattern.FindStringSubmatch(line); m != nil {
				if v, err := strconv.ParseFloat(m[1], 64); err == nil {
					cur.specs[rfp.SpecInsulationThickness] = v
				}
			}
		}

		if cur.complete() {
			n := len(items) + 1
			desc := cur.description
			if desc == "" {
				desc = "Item " + strconv.Itoa(n)
			}
			items = append(items, rfp.ScopeItem{
				ItemID:      rfp.ID(strconv.Itoa(n)),
				Description: desc,
				Specs:       cur.specs,
				QuantityKM:  1,
			})
			cur = nil
			state = stateIdle
		}
	}

	return items
}

func lookbackDescription(lines []string, at int) string {
	for j := at - 1; j >= 0 && j >= at-descriptionLookback; j-- {
		if s := strings.TrimSpace(lines[j]); s != "" {
			return s
		}
	}
	return ""
}

func normalizeVoltage(value, unit string) string {
	if strings.EqualFold(unit, "kv") {
		return value + "kV"
	}
	return value + "V"
}

func capitalize(s string) string {
	s = strings.ToLower(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func splitTests(field string) []string {
	tests := []string{}
	for _, part := range strings.FieldsFunc(field, func(r rune) bool { return r == ',' || r == ';' }) {
		if t := strings.TrimSpace(part); t != "" {
			tests = append(tests, t)
		}
	}
	return tests
}
