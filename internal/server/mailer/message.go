// Package mailer queues outbound account e-mail and delivers it from a
// background worker.
package mailer

import (
	"bytes"
	"fmt"
	"text/template"
)

// Kind selects the template of an outbound e-mail.
type Kind int

const (
	KindVerification Kind = iota + 1
	KindResendVerification
	KindPasswordReset
)

func (k Kind) String() string {
	switch k {
	case KindVerification:
		return "verification"
	case KindResendVerification:
		return "resend-verification"
	case KindPasswordReset:
		return "password-reset"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Message is a rendered e-mail ready for a Sender.
type Message struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

type messageTemplate struct {
	subject string
	body    *template.Template
}

var templates = map[Kind]messageTemplate{
	KindVerification: {
		subject: "Verify your LearnHub account",
		body: template.Must(template.New("verification").Parse(
			`Hello {{.Name}},

Welcome to LearnHub. Your verification code is:

    {{.Payload}}

The code is valid for 30 minutes.
`)),
	},
	KindResendVerification: {
		subject: "Your new LearnHub verification code",
		body: template.Must(template.New("resend").Parse(
			`Hello {{.Name}},

Here is your new verification code:

    {{.Payload}}

Any code sent earlier no longer works. The code is valid for 30 minutes.
`)),
	},
	KindPasswordReset: {
		subject: "Reset your LearnHub password",
		body: template.Must(template.New("reset").Parse(
			`Hello {{.Name}},

We received a request to reset your password. Open the link below to choose
a new one:

    {{.Payload}}

The link is valid for 30 minutes. If you did not ask for this, ignore this
e-mail; your password stays unchanged.
`)),
	},
}

// Render builds the Message for item.
func Render(item Item) (Message, error) {
	tpl, ok := templates[item.Kind]
	if !ok {
		return Message{}, fmt.Errorf("unknown mail kind %s", item.Kind)
	}

	name := item.Name
	if name == "" {
		name = item.Email
	}

	var buf bytes.Buffer
	if err := tpl.body.Execute(&buf, struct {
		Name    string
		Payload string
	}{name, item.Payload}); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", item.Kind, err)
	}

	return Message{To: item.Email, ToName: item.Name, Subject: tpl.subject, Body: buf.String()}, nil
}
