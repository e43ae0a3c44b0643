package advisor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/bher20/eimpactmanager/internal/calc"
)

// Defaults for fields a model reply leaves out.
const (
	defaultCategory  = "General"
	defaultROIMonths = 24
	defaultPriority  = 0.5
)

// ParseReply extracts recommendations from a model reply. The reply may be a
// {"recommendations": [...]} object or a bare list, optionally inside a
// markdown code fence. Models drift on key names, so common aliases are
// accepted.
func ParseReply(reply string) ([]Recommendation, error) {
	body := stripFence(reply)
	if body == "" {
		return nil, ErrEmptyReply
	}

	var items []map[string]any
	if strings.HasPrefix(body, "[") {
		if err := json.Unmarshal([]byte(body), &items); err != nil {
			return nil, wrapReply(err)
		}
	} else {
		var doc map[string]any
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return nil, wrapReply(err)
		}
		list, ok := doc["recommendations"].([]any)
		if !ok {
			return nil, ErrBadReply
		}
		for _, x := range list {
			if m, ok := x.(map[string]any); ok {
				items = append(items, m)
			}
		}
	}

	recs := make([]Recommendation, 0, len(items))
	for _, m := range items {
		title := text(m, "title", "recommendation", "name")
		if title == "" {
			continue
		}
		rec := Recommendation{
			ID:                    text(m, "id"),
			Title:                 title,
			Description:           text(m, "description", "details"),
			Category:              text(m, "category"),
			EstimatedCostSavings:  calc.Round(number(m, "estimated_cost_savings", "cost_savings", "savings"), 2),
			EstimatedCO2Reduction: calc.Round(number(m, "estimated_co2_reduction", "co2_reduction"), 2),
			ROIMonths:             int(number(m, "roi_months", "payback_months")),
			PriorityScore:         number(m, "priority_score", "priority"),
			ImplementationSteps:   list(m, "implementation_steps", "steps"),
			Reasoning:             text(m, "reasoning", "explanation"),
		}
		if rec.ID == "" {
			rec.ID = fmt.Sprintf("ai-rec-%d", len(recs)+1)
		}
		if rec.Category == "" {
			rec.Category = defaultCategory
		}
		if rec.ROIMonths <= 0 {
			rec.ROIMonths = defaultROIMonths
		}
		if rec.PriorityScore <= 0 || rec.PriorityScore > 1 {
			rec.PriorityScore = defaultPriority
		}
		d, err := calc.ParseDifficulty(text(m, "difficulty"))
		if err != nil {
			d = calc.Medium
		}
		rec.Difficulty = d
		recs = append(recs, rec)
	}
	if len(recs) == 0 {
		return nil, ErrBadReply
	}
	return recs, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:] // language tag
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func text(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// number accepts JSON numbers and numeric strings such as "$1,200".
func number(m map[string]any, keys ...string) float64 {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return v
		case string:
			clean := strings.NewReplacer("$", "", ",", "", " ", "").Replace(v)
			if f, err := strconv.ParseFloat(clean, 64); err == nil {
				return f
			}
		}
	}
	return 0
}

func list(m map[string]any, keys ...string) []string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case []any:
			out := make([]string, 0, len(v))
			for _, x := range v {
				if s, ok := x.(string); ok && strings.TrimSpace(s) != "" {
					out = append(out, strings.TrimSpace(s))
				}
			}
			if len(out) > 0 {
				return out
			}
		case string:
			if v = strings.TrimSpace(v); v != "" {
				return []string{v}
			}
		}
	}
	return nil
}
