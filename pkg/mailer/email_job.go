package mailer

// Template names understood by the worker.
const (
	TemplateWelcome               = "welcome"
	TemplateVerifyEmail           = "verify_email"
	TemplateForgotPassword        = "forgot_password"
	TemplateRegistrationConfirmed = "registration_confirmed"
	TemplateRegistrationCancelled = "registration_cancelled"
)

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Either give Subject/Text/HTML directly or name a Template plus Data.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}
