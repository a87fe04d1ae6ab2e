package questions

import (
	"encoding/xml"
	"fmt"
	"strings"

	apierr "github.com/callendorph/mturkemu/internal/errors"
)

// AnswerSpec is the closed set of answer shapes a question can take.
type AnswerSpec interface {
	answerSpec()
}

// FreeTextSpec accepts a single text value.
type FreeTextSpec struct {
	MaxLength int
}

// SelectionSpec accepts a bounded set of selection identifiers.
type SelectionSpec struct {
	MinSelections int
	MaxSelections int
	Identifiers   []string
}

// FileUploadSpec is recognized but not accepted by the emulator.
type FileUploadSpec struct {
	MinFileSize int64
	MaxFileSize int64
}

func (FreeTextSpec) answerSpec()   {}
func (SelectionSpec) answerSpec()  {}
func (FileUploadSpec) answerSpec() {}

// Question is one entry of a parsed QuestionForm.
type Question struct {
	ID       string
	Name     string
	Required bool
	Spec     AnswerSpec
}

// Form is a parsed QuestionForm document.
type Form struct {
	Questions []Question
}

// Submission maps question identifiers to the values a worker submitted.
type Submission map[string][]string

type xmlQuestionForm struct {
	Questions []xmlQuestion `xml:"Question"`
}

type xmlQuestion struct {
	QuestionIdentifier  string       `xml:"QuestionIdentifier"`
	DisplayName         string       `xml:"DisplayName"`
	IsRequired          bool         `xml:"IsRequired"`
	AnswerSpecification xmlAnswerSpec `xml:"AnswerSpecification"`
}

type xmlAnswerSpec struct {
	FreeText   *xmlFreeTextAnswer   `xml:"FreeTextAnswer"`
	Selection  *xmlSelectionAnswer  `xml:"SelectionAnswer"`
	FileUpload *xmlFileUploadAnswer `xml:"FileUploadAnswer"`
}

type xmlFreeTextAnswer struct {
	Constraints struct {
		Length struct {
			MaxLength int `xml:"maxLength,attr"`
		} `xml:"Length"`
	} `xml:"Constraints"`
}

type xmlSelectionAnswer struct {
	MinSelectionCount int `xml:"MinSelectionCount"`
	MaxSelectionCount int `xml:"MaxSelectionCount"`
	Selections        struct {
		Selection []struct {
			SelectionIdentifier string `xml:"SelectionIdentifier"`
		} `xml:"Selection"`
	} `xml:"Selections"`
}

type xmlFileUploadAnswer struct {
	MinFileSizeInBytes int64 `xml:"MinFileSizeInBytes"`
	MaxFileSizeInBytes int64 `xml:"MaxFileSizeInBytes"`
}

// ParseForm extracts the question definitions of a QuestionForm blob.
func (v *Validator) ParseForm(content string) (*Form, error) {
	var doc xmlQuestionForm
	if err := xml.NewDecoder(strings.NewReader(content)).Decode(&doc); err != nil {
		return nil, apierr.InvalidContent(fmt.Sprintf("malformed QuestionForm: %v", err))
	}

	form := &Form{}
	for i, xq := range doc.Questions {
		if xq.QuestionIdentifier == "" {
			return nil, apierr.InvalidContent(
				fmt.Sprintf("question %d has no QuestionIdentifier", i))
		}
		q := Question{
			ID:       xq.QuestionIdentifier,
			Name:     xq.DisplayName,
			Required: xq.IsRequired,
		}
		switch {
		case xq.AnswerSpecification.Selection != nil:
			sel := xq.AnswerSpecification.Selection
			spec := SelectionSpec{
				MinSelections: sel.MinSelectionCount,
				MaxSelections: sel.MaxSelectionCount,
			}
			for _, s := range sel.Selections.Selection {
				spec.Identifiers = append(spec.Identifiers, s.SelectionIdentifier)
			}
			q.Spec = spec
		case xq.AnswerSpecification.FreeText != nil:
			ft := xq.AnswerSpecification.FreeText
			q.Spec = FreeTextSpec{MaxLength: ft.Constraints.Length.MaxLength}
		case xq.AnswerSpecification.FileUpload != nil:
			fu := xq.AnswerSpecification.FileUpload
			q.Spec = FileUploadSpec{
				MinFileSize: fu.MinFileSizeInBytes,
				MaxFileSize: fu.MaxFileSizeInBytes,
			}
		default:
			return nil, apierr.InvalidContent(
				fmt.Sprintf("question %q has no answer specification", q.ID))
		}
		form.Questions = append(form.Questions, q)
	}
	if len(form.Questions) == 0 {
		return nil, apierr.InvalidContent("QuestionForm contains no questions")
	}
	return form, nil
}

// Validate checks a worker submission against the form and returns the
// aggregated problems, empty when the submission is acceptable.
func (f *Form) Validate(sub Submission) []string {
	var problems []string
	for _, q := range f.Questions {
		values := sub[q.ID]
		if len(values) == 0 {
			if q.Required {
				problems = append(problems,
					fmt.Sprintf("question %s requires an answer", q.ID))
			}
			continue
		}
		switch spec := q.Spec.(type) {
		case FreeTextSpec:
			if len(values) > 1 {
				problems = append(problems,
					fmt.Sprintf("question %s accepts a single value", q.ID))
			} else if spec.MaxLength > 0 && len(values[0]) > spec.MaxLength {
				problems = append(problems,
					fmt.Sprintf("question %s answer exceeds %d characters", q.ID, spec.MaxLength))
			}
		case SelectionSpec:
			valid := make(map[string]bool, len(spec.Identifiers))
			for _, id := range spec.Identifiers {
				valid[id] = true
			}
			for _, v := range values {
				if !valid[v] {
					problems = append(problems,
						fmt.Sprintf("question %s has no selection %q", q.ID, v))
				}
			}
			if spec.MinSelections > 0 && len(values) < spec.MinSelections {
				problems = append(problems,
					fmt.Sprintf("question %s requires at least %d selections", q.ID, spec.MinSelections))
			}
			if spec.MaxSelections > 0 && len(values) > spec.MaxSelections {
				problems = append(problems,
					fmt.Sprintf("question %s allows at most %d selections", q.ID, spec.MaxSelections))
			}
		case FileUploadSpec:
			problems = append(problems,
				fmt.Sprintf("question %s requires a file upload, which is not supported", q.ID))
		}
	}
	return problems
}

// Lookup returns the form question with the given identifier.
func (f *Form) Lookup(id string) (Question, bool) {
	for _, q := range f.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}
