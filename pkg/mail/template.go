package mail

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Template renders a subject and plain-text body from the same data.
type Template struct {
	subject *template.Template
	body    *template.Template
}

// ParseTemplate compiles subject and body templates.
func ParseTemplate(name, subject, body string) (*Template, error) {
	subj, err := template.New(name + ".subject").Option("missingkey=error").Parse(subject)
	if err != nil {
		return nil, fmt.Errorf("mail template %s: subject: %w", name, err)
	}
	b, err := template.New(name + ".body").Option("missingkey=error").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("mail template %s: body: %w", name, err)
	}
	return &Template{subject: subj, body: b}, nil
}

// MustParseTemplate is ParseTemplate for package-level templates.
func MustParseTemplate(name, subject, body string) *Template {
	t, err := ParseTemplate(name, subject, body)
	if err != nil {
		panic(err)
	}
	return t
}

// Render produces a message addressed to the given recipients.
func (t *Template) Render(data any, to ...string) (Message, error) {
	var subject, body bytes.Buffer
	if err := t.subject.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("mail template: render subject: %w", err)
	}
	if err := t.body.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("mail template: render body: %w", err)
	}
	return Message{
		To:      to,
		Subject: strings.TrimSpace(subject.String()),
		Body:    body.String(),
	}, nil
}
