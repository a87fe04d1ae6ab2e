// Package questions classifies and parses the XML documents the emulated
// API exchanges: question forms shown to workers, answer keys used to
// score qualification tests, and encoded worker answers.
package questions

import (
	"encoding/xml"
	"fmt"
	"strings"

	apierr "github.com/callendorph/mturkemu/internal/errors"
)

// Kind names a recognized document root.
type Kind string

const (
	KindQuestionForm     Kind = "QuestionForm"
	KindHTMLQuestion     Kind = "HTMLQuestion"
	KindExternalQuestion Kind = "ExternalQuestion"
	KindAnswerKey        Kind = "AnswerKey"
)

// MaxContentLen bounds every question, test and answer-key blob.
const MaxContentLen = 65535

// Validator classifies raw XML blobs and extracts structured question
// forms. It is constructed once by the composition root and passed to the
// services that need it.
type Validator struct {
	kinds map[Kind]bool
}

func NewValidator() *Validator {
	return &Validator{
		kinds: map[Kind]bool{
			KindQuestionForm:     true,
			KindHTMLQuestion:     true,
			KindExternalQuestion: true,
			KindAnswerKey:        true,
		},
	}
}

// Classify returns the document kind of content by its root element.
func (v *Validator) Classify(content string) (Kind, error) {
	name, err := rootElement(content)
	if err != nil {
		return "", apierr.InvalidContent(err.Error())
	}
	kind := Kind(name)
	if !v.kinds[kind] {
		return "", apierr.InvalidContent(fmt.Sprintf("unknown document type %q", name))
	}
	return kind, nil
}

// ValidateQuestion checks a task question blob: size, well-formedness and
// that the root is one of the accepted question kinds.
func (v *Validator) ValidateQuestion(content string) (Kind, error) {
	if len(content) > MaxContentLen {
		return "", apierr.ContentTooLarge("Question")
	}
	kind, err := v.Classify(content)
	if err != nil {
		return "", err
	}
	switch kind {
	case KindQuestionForm, KindHTMLQuestion, KindExternalQuestion:
	default:
		return "", apierr.InvalidContent(
			fmt.Sprintf("%s is not a valid question type", kind))
	}
	if kind == KindQuestionForm {
		if _, err := v.ParseForm(content); err != nil {
			return "", err
		}
	}
	return kind, nil
}

// ValidateTest checks a qualification test blob, which must be a
// QuestionForm.
func (v *Validator) ValidateTest(content string) error {
	if len(content) > MaxContentLen {
		return apierr.ContentTooLarge("Test")
	}
	kind, err := v.Classify(content)
	if err != nil {
		return err
	}
	if kind != KindQuestionForm {
		return apierr.InvalidContent(
			fmt.Sprintf("qualification test must be a QuestionForm, got %s", kind))
	}
	_, err = v.ParseForm(content)
	return err
}

// ValidateAnswerKey checks an answer-key blob and its internal structure.
func (v *Validator) ValidateAnswerKey(content string) error {
	if len(content) > MaxContentLen {
		return apierr.ContentTooLarge("AnswerKey")
	}
	kind, err := v.Classify(content)
	if err != nil {
		return err
	}
	if kind != KindAnswerKey {
		return apierr.InvalidContent(
			fmt.Sprintf("answer key must be an AnswerKey document, got %s", kind))
	}
	_, err = ParseAnswerKey(content)
	return err
}

func rootElement(content string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(content))
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("malformed XML: %v", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}
