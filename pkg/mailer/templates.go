package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// Minimal HTML bodies for the notification mails the API enqueues. Data
// keys are plain strings set by the producer; missing keys render empty.
var bodies = map[string]string{
	TemplateWelcome: `<h2>Welcome to {{.Company}}, {{.Name}}!</h2>
<p>Your account is ready. Browse upcoming poker runs and grab a spot before they fill up.</p>`,

	TemplateVerifyEmail: `<h2>Verify your email</h2>
<p>Hi {{.Name}}, confirm your address by following this link:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>The link expires in {{.ExpiresIn}}.</p>`,

	TemplateForgotPassword: `<h2>Reset your password</h2>
<p>Hi {{.Name}}, a password reset was requested for your account.</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>The link expires in {{.ExpiresIn}}. If you did not ask for this, ignore this mail.</p>`,

	TemplateRegistrationConfirmed: `<h2>You're in, {{.Name}}!</h2>
<p>Your registration for <strong>{{.EventTitle}}</strong> on {{.EventDate}} is confirmed.</p>
<p>Registration fee: ${{.Fee}} (payment status: {{.PaymentStatus}}).</p>
<p>Ride safe and see you at the first stop.</p>`,

	TemplateRegistrationCancelled: `<h2>Registration cancelled</h2>
<p>Hi {{.Name}}, your registration for <strong>{{.EventTitle}}</strong> on {{.EventDate}} was cancelled.</p>
<p>If this wasn't you, contact the organizer.</p>`,
}

var subjects = map[string]string{
	TemplateWelcome:               "Welcome aboard",
	TemplateVerifyEmail:           "Verify your email address",
	TemplateForgotPassword:        "Reset your password",
	TemplateRegistrationConfirmed: "Your poker run registration is confirmed",
	TemplateRegistrationCancelled: "Your poker run registration was cancelled",
}

var parsed = func() map[string]*template.Template {
	out := make(map[string]*template.Template, len(bodies))
	for name, body := range bodies {
		out[name] = template.Must(template.New(name).Parse(body))
	}
	return out
}()

// Render produces subject and HTML body for a named template.
func Render(name string, data map[string]any) (subject, html string, err error) {
	t, ok := parsed[name]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", "", err
	}
	return subjects[name], buf.String(), nil
}
