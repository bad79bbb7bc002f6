package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const scoringSchemaJSON = `{
  "type": "object",
  "required": ["veto_check", "score_details", "base_score", "grade_suggestion", "summary"],
  "properties": {
    "veto_check": {
      "type": "object",
      "required": ["triggered", "reason"],
      "properties": {
        "triggered": {"type": "boolean"},
        "reason": {"type": "string"}
      }
    },
    "score_details": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["indicator", "score", "max_score", "reason"],
        "properties": {
          "indicator": {"type": "string"},
          "score": {"type": "number"},
          "max_score": {"type": "number"},
          "reason": {"type": "string"}
        }
      }
    },
    "base_score": {"type": "number", "minimum": 0},
    "grade_suggestion": {"type": "string"},
    "summary": {"type": "string", "minLength": 1}
  }
}`

var scoringSchema = jsonschema.MustCompileString("scoring_response.json", scoringSchemaJSON)

var gradeSynonyms = map[string]string{
	"优秀":           "Excellent",
	"excellent":    "Excellent",
	"a":            "Excellent",
	"良好":           "Good",
	"good":         "Good",
	"b":            "Good",
	"合格":           "Pass",
	"及格":           "Pass",
	"pass":         "Pass",
	"qualified":    "Pass",
	"c":            "Pass",
	"不合格":          "Fail",
	"不及格":          "Fail",
	"fail":         "Fail",
	"unqualified":  "Fail",
	"d":            "Fail",
	"needs review": "Fail",
}

// NormalizeGrade maps a Chinese or English grade label onto Excellent,
// Good, Pass or Fail.
func NormalizeGrade(label string) (string, bool) {
	grade, ok := gradeSynonyms[strings.ToLower(strings.TrimSpace(label))]
	return grade, ok
}

// ExtractJSON finds the JSON object in a model reply. It tries the whole
// string, then the first ```json fence, then the span between the first
// '{' and the last '}' (repairing that span if strict parsing fails).
func ExtractJSON(content string) (string, map[string]interface{}, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", nil, invalid("empty response content", nil)
	}

	if obj, err := decodeObject(trimmed); err == nil {
		return trimmed, obj, nil
	}

	if candidate, ok := fencedBlock(trimmed); ok {
		if obj, err := decodeObject(candidate); err == nil {
			return candidate, obj, nil
		}
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		candidate := trimmed[start : end+1]
		if obj, err := decodeObject(candidate); err == nil {
			return candidate, obj, nil
		}
		if repaired, err := jsonrepair.JSONRepair(candidate); err == nil {
			if obj, err := decodeObject(repaired); err == nil {
				return repaired, obj, nil
			}
		}
	}

	return "", nil, invalid("no json object found in response", nil)
}

func fencedBlock(content string) (string, bool) {
	const fence = "```json"
	idx := strings.Index(content, fence)
	if idx < 0 {
		return "", false
	}
	rest := content[idx+len(fence):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

func decodeObject(raw string) (map[string]interface{}, error) {
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.UseNumber()

	var value interface{}
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("trailing data after json value")
	}

	obj, ok := value.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("json value is not an object")
	}
	return obj, nil
}

// ParseScoringResponse extracts, validates and decodes a model reply.
func ParseScoringResponse(content string, totalScore float64) (ScoringResponse, error) {
	candidate, obj, err := ExtractJSON(content)
	if err != nil {
		return ScoringResponse{}, err
	}

	if err := scoringSchema.Validate(obj); err != nil {
		return ScoringResponse{}, invalid("schema mismatch", err)
	}

	var payload ScoringResponse
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		return ScoringResponse{}, invalid("decode scoring object", err)
	}

	if totalScore > 0 && payload.BaseScore > totalScore+1e-9 {
		return ScoringResponse{}, invalid(fmt.Sprintf("base_score %.2f exceeds total score %.2f", payload.BaseScore, totalScore), nil)
	}

	grade, ok := NormalizeGrade(payload.GradeSuggestion)
	if !ok {
		return ScoringResponse{}, invalid(fmt.Sprintf("unknown grade_suggestion %q", payload.GradeSuggestion), nil)
	}
	payload.GradeSuggestion = grade

	payload.Summary = strings.TrimSpace(payload.Summary)
	if payload.Summary == "" {
		return ScoringResponse{}, invalid("summary is blank", nil)
	}

	payload.VetoCheck.Reason = strings.TrimSpace(payload.VetoCheck.Reason)
	if payload.ScoreDetails == nil {
		payload.ScoreDetails = []IndicatorScore{}
	}

	return payload, nil
}
