package mailer

import "fmt"

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// HTML is optional; Text is the fallback body.
type EmailJob struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text,omitempty"`
	HTML    string `json:"html,omitempty"`
}

// WelcomeJob builds the registration welcome email for a new clinician.
func WelcomeJob(to, name string) EmailJob {
	return EmailJob{
		To:      to,
		Subject: "Welcome to DiabeVision",
		Text: fmt.Sprintf(
			"Hi %s,\n\nYour DiabeVision account is ready. Sign in to submit retinal images and review screening results.\n",
			name,
		),
		HTML: fmt.Sprintf(
			"<p>Hi %s,</p><p>Your DiabeVision account is ready. Sign in to submit retinal images and review screening results.</p>",
			name,
		),
	}
}
