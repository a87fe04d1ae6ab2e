package questions

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strings"

	apierr "github.com/callendorph/mturkemu/internal/errors"
)

// QuestionFormAnswers is the stored encoding of a worker submission.

type xmlFormAnswers struct {
	XMLName xml.Name        `xml:"QuestionFormAnswers"`
	Answers []xmlFormAnswer `xml:"Answer"`
}

type xmlFormAnswer struct {
	QuestionIdentifier   string   `xml:"QuestionIdentifier"`
	FreeText             string   `xml:"FreeText,omitempty"`
	SelectionIdentifiers []string `xml:"SelectionIdentifier,omitempty"`
}

// EncodeAnswers serializes a submission. When a form is supplied, each
// answer is encoded per its question's answer shape; without one every
// value encodes as free text.
func EncodeAnswers(form *Form, sub Submission) (string, error) {
	doc := xmlFormAnswers{}

	ids := make([]string, 0, len(sub))
	for id := range sub {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		values := sub[id]
		if len(values) == 0 {
			continue
		}
		ans := xmlFormAnswer{QuestionIdentifier: id}
		selection := false
		if form != nil {
			if q, ok := form.Lookup(id); ok {
				_, selection = q.Spec.(SelectionSpec)
			}
		}
		if selection {
			ans.SelectionIdentifiers = values
		} else {
			ans.FreeText = strings.Join(values, "\n")
		}
		doc.Answers = append(doc.Answers, ans)
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode answers: %w", err)
	}
	return xml.Header + string(out), nil
}

// DecodeAnswers is the inverse of EncodeAnswers.
func DecodeAnswers(content string) (Submission, error) {
	var doc xmlFormAnswers
	if err := xml.NewDecoder(strings.NewReader(content)).Decode(&doc); err != nil {
		return nil, apierr.InvalidContent(fmt.Sprintf("malformed QuestionFormAnswers: %v", err))
	}
	sub := Submission{}
	for _, ans := range doc.Answers {
		if len(ans.SelectionIdentifiers) > 0 {
			sub[ans.QuestionIdentifier] = ans.SelectionIdentifiers
		} else {
			sub[ans.QuestionIdentifier] = []string{ans.FreeText}
		}
	}
	return sub, nil
}
