package report

// Config configures where and how run reports are published.
type Config struct {
	// Dir is the directory report files are written into. Created on
	// demand. Empty disables file reports.
	Dir string
	// Console enables the summary table on stdout.
	Console bool
	// Email configures the optional alert email.
	Email EmailConfig
}

// EmailConfig configures the SMTP alert sent when a run detects changes
// or fails.
type EmailConfig struct {
	Enabled  bool
	SMTPHost string
	SMTPPort int
	Username string
	Password string
	From     string
	To       []string
}
