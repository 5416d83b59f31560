// Package feedback turns the provider's closing assessment into a well-formed
// Feedback value. Malformed fields fall back to named defaults one by one.
package feedback

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"interview/internal/models"
	"interview/internal/utils"
)

const (
	DefaultOverallAnalysis = "No overall analysis was provided."
	DefaultFinalTip        = "Keep practicing and reflect on each answer."
	DefaultOverallMark     = 0

	MinMark = 0
	MaxMark = 100
)

// Default is the fixed result used when no assessment can be salvaged.
func Default() models.Feedback {
	return models.Feedback{
		OverallAnalysis:     DefaultOverallAnalysis,
		NotableStrengths:    []string{},
		AreasForImprovement: []string{},
		OverallMark:         DefaultOverallMark,
		MarksCutdownPoints:  []string{},
		FinalTip:            DefaultFinalTip,
	}
}

// Parse validates raw provider output field by field. ok is false when no JSON
// object could be recovered at all, in which case Default is returned.
func Parse(raw string) (fb models.Feedback, ok bool) {
	var data map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &data); err != nil || data == nil {
		return Default(), false
	}

	fb = Default()
	if s := coerceString(data["overall_analysis"]); s != "" {
		fb.OverallAnalysis = s
	}
	fb.NotableStrengths = coerceStrings(data["notable_strengths"])
	fb.AreasForImprovement = coerceStrings(data["areas_for_improvement"])
	fb.MarksCutdownPoints = coerceStrings(data["marks_cutdown_points"])
	fb.OverallMark = clampMark(coerceFloat(data["overall_mark"]))
	if s := coerceString(data["final_tip"]); s != "" {
		fb.FinalTip = s
	}
	return fb, true
}

// extractJSON strips code fences and any prose around the outermost object.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```JSON")
		raw = strings.TrimPrefix(raw, "```")
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end < start {
		return strings.TrimSpace(raw)
	}
	return raw[start : end+1]
}

func clampMark(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return DefaultOverallMark
	}
	m := int(math.Round(v))
	if m < MinMark {
		return MinMark
	}
	if m > MaxMark {
		return MaxMark
	}
	return m
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(val), "%")
		f, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// coerceStrings accepts a list of strings or a single string. Anything else is empty.
func coerceStrings(v any) []string {
	out := []string{}
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		if s := strings.TrimSpace(val); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Source produces the raw assessment text for a finished interview.
type Source interface {
	FinalFeedback(ctx context.Context, resume string, transcript []models.Message) (string, error)
}

type Generator struct {
	source Source
	log    *zap.Logger
}

func NewGenerator(source Source, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{source: source, log: log}
}

// Generate always yields feedback. fellBack reports that Default was used.
func (g *Generator) Generate(ctx context.Context, resume string, transcript []models.Message) (fb models.Feedback, fellBack bool) {
	raw, err := g.source.FinalFeedback(ctx, resume, transcript)
	if err != nil {
		g.log.Warn("feedback generation failed, using default", zap.Error(err))
		return Default(), true
	}
	fb, ok := Parse(raw)
	if !ok {
		g.log.Warn("feedback response was not JSON, using default",
			zap.String("raw", utils.TruncateForLog(raw, 300)))
		return fb, true
	}
	return fb, false
}
