package questions

import (
	"encoding/xml"
	"fmt"
	"math"
	"strings"

	apierr "github.com/callendorph/mturkemu/internal/errors"
)

// ScoreMapping remaps a summed score to the final qualification value.
type ScoreMapping interface {
	Map(total int) int
}

// PercentageMapping scales the total against a maximum summed score.
type PercentageMapping struct {
	MaxSummedScore int
}

func (m PercentageMapping) Map(total int) int {
	if m.MaxSummedScore == 0 {
		return 0
	}
	return int(math.Round(float64(total) / float64(m.MaxSummedScore) * 100.0))
}

// ScaleMapping multiplies the total by a fixed factor.
type ScaleMapping struct {
	Multiplier float64
}

func (m ScaleMapping) Map(total int) int {
	return int(math.Round(float64(total) * m.Multiplier))
}

// ScoreRange maps an inclusive range of totals to a qualification value.
type ScoreRange struct {
	Lower int
	Upper int
	Value int
}

// RangeMapping maps the total through a list of inclusive ranges, falling
// back to an out-of-range value when none contains it.
type RangeMapping struct {
	Ranges     []ScoreRange
	OutOfRange int
}

func (m RangeMapping) Map(total int) int {
	for _, r := range m.Ranges {
		if total >= r.Lower && total <= r.Upper {
			return r.Value
		}
	}
	return m.OutOfRange
}

// AnswerOption is one scored selection set for a question.
type AnswerOption struct {
	Selections []string
	Score      int
}

// QuestionAnswer is the answer key entry for one question.
type QuestionAnswer struct {
	QuestionID   string
	Options      []AnswerOption
	DefaultScore int
}

// AnswerKey scores a worker's test submission.
type AnswerKey struct {
	Questions []QuestionAnswer
	Mapping   ScoreMapping
}

type xmlAnswerKey struct {
	Questions []xmlKeyQuestion `xml:"Question"`
	Mapping   *xmlQualMapping  `xml:"QualificationValueMapping"`
}

type xmlKeyQuestion struct {
	QuestionIdentifier string         `xml:"QuestionIdentifier"`
	AnswerOptions      []xmlKeyOption `xml:"AnswerOption"`
	DefaultScore       int            `xml:"DefaultScore"`
}

type xmlKeyOption struct {
	SelectionIdentifiers []string `xml:"SelectionIdentifier"`
	AnswerScore          int      `xml:"AnswerScore"`
}

type xmlQualMapping struct {
	Percentage *struct {
		MaximumSummedScore int `xml:"MaximumSummedScore"`
	} `xml:"PercentageMapping"`
	Scale *struct {
		SummedScoreMultiplier float64 `xml:"SummedScoreMultiplier"`
	} `xml:"ScaleMapping"`
	Range *struct {
		SummedScoreRanges []struct {
			InclusiveLowerBound int `xml:"InclusiveLowerBound"`
			InclusiveUpperBound int `xml:"InclusiveUpperBound"`
			QualificationValue  int `xml:"QualificationValue"`
		} `xml:"SummedScoreRange"`
		OutOfRangeQualificationValue int `xml:"OutOfRangeQualificationValue"`
	} `xml:"RangeMapping"`
}

// ParseAnswerKey parses an AnswerKey blob into its scoring rules.
func ParseAnswerKey(content string) (*AnswerKey, error) {
	var doc xmlAnswerKey
	if err := xml.NewDecoder(strings.NewReader(content)).Decode(&doc); err != nil {
		return nil, apierr.InvalidContent(fmt.Sprintf("malformed AnswerKey: %v", err))
	}
	if len(doc.Questions) == 0 {
		return nil, apierr.InvalidContent("AnswerKey contains no questions")
	}

	key := &AnswerKey{}
	for _, xq := range doc.Questions {
		if xq.QuestionIdentifier == "" {
			return nil, apierr.InvalidContent("AnswerKey question has no QuestionIdentifier")
		}
		qa := QuestionAnswer{
			QuestionID:   xq.QuestionIdentifier,
			DefaultScore: xq.DefaultScore,
		}
		for _, opt := range xq.AnswerOptions {
			qa.Options = append(qa.Options, AnswerOption{
				Selections: opt.SelectionIdentifiers,
				Score:      opt.AnswerScore,
			})
		}
		key.Questions = append(key.Questions, qa)
	}

	if doc.Mapping != nil {
		switch {
		case doc.Mapping.Percentage != nil:
			key.Mapping = PercentageMapping{
				MaxSummedScore: doc.Mapping.Percentage.MaximumSummedScore,
			}
		case doc.Mapping.Scale != nil:
			key.Mapping = ScaleMapping{
				Multiplier: doc.Mapping.Scale.SummedScoreMultiplier,
			}
		case doc.Mapping.Range != nil:
			rm := RangeMapping{
				OutOfRange: doc.Mapping.Range.OutOfRangeQualificationValue,
			}
			for _, r := range doc.Mapping.Range.SummedScoreRanges {
				rm.Ranges = append(rm.Ranges, ScoreRange{
					Lower: r.InclusiveLowerBound,
					Upper: r.InclusiveUpperBound,
					Value: r.QualificationValue,
				})
			}
			key.Mapping = rm
		default:
			return nil, apierr.InvalidContent("QualificationValueMapping has no known mapping")
		}
	}

	return key, nil
}

// Score sums the option scores matching the submission and applies the
// remapping function when one is configured. Every scored question must
// have a submitted value. An option matches only when its selection set
// exactly equals the submitted set; otherwise the question contributes
// its default score.
func (k *AnswerKey) Score(sub Submission) (int, error) {
	total := 0
	for _, qa := range k.Questions {
		values, ok := sub[qa.QuestionID]
		if !ok || len(values) == 0 {
			return 0, apierr.MissingAnswer(qa.QuestionID)
		}
		observed := toSet(values)
		matched := false
		for _, opt := range qa.Options {
			if setsEqual(observed, toSet(opt.Selections)) {
				total += opt.Score
				matched = true
			}
		}
		if !matched {
			total += qa.DefaultScore
		}
	}
	if k.Mapping != nil {
		total = k.Mapping.Map(total)
	}
	return total, nil
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func setsEqual(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
