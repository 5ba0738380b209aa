package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"go.uber.org/zap"

	"github.com/evstation/charge-station/internal/domain"
)

// Provider defines the interface for email providers.
type Provider interface {
	Send(ctx context.Context, to, subject, body string, isHTML bool) error
}

// AttachmentSender is implemented by providers that can attach a file
// to an outgoing message (the SendGrid provider; SMTP does not).
type AttachmentSender interface {
	SendWithAttachment(ctx context.Context, to, subject, body string, isHTML bool, attachmentName string, attachmentData []byte) error
}

// Config holds email service configuration.
type Config struct {
	// Provider type: "sendgrid" or "smtp".
	Provider string

	FromEmail string
	FromName  string

	SendGridAPIKey string

	// SMTP configuration (Mailhog in development).
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPUseTLS   bool

	BaseURL string
}

func DefaultConfig() *Config {
	return &Config{
		Provider:   "smtp",
		FromEmail:  "noreply@evstation.local",
		FromName:   "EV Charge Station",
		SMTPHost:   "localhost",
		SMTPPort:   1025,
		SMTPUseTLS: false,
		BaseURL:    "http://localhost:3000",
	}
}

// Service sends the driver-facing notifications the station produces:
// a welcome note on registration and a bill-completion receipt, with
// the PDF receipt attached when the provider supports attachments.
type Service struct {
	config    *Config
	provider  Provider
	templates map[string]*template.Template
	log       *zap.Logger
}

func NewService(config *Config, log *zap.Logger) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}

	s := &Service{
		config:    config,
		templates: make(map[string]*template.Template),
		log:       log,
	}

	switch config.Provider {
	case "sendgrid":
		if config.SendGridAPIKey == "" {
			return nil, fmt.Errorf("sendgrid api key is required")
		}
		s.provider = NewSendGridProvider(config.SendGridAPIKey, config.FromEmail, config.FromName)
	case "smtp":
		s.provider = NewSMTPProvider(
			config.SMTPHost,
			config.SMTPPort,
			config.SMTPUsername,
			config.SMTPPassword,
			config.FromEmail,
			config.FromName,
			config.SMTPUseTLS,
		)
	default:
		return nil, fmt.Errorf("unknown email provider: %s", config.Provider)
	}

	s.loadTemplates()
	return s, nil
}

func (s *Service) loadTemplates() {
	s.templates["welcome"] = template.Must(template.New("welcome").Parse(welcomeTemplate))
	s.templates["bill_completed"] = template.Must(template.New("bill_completed").Parse(billCompletedTemplate))
}

func (s *Service) renderTemplate(name string, data map[string]interface{}) (string, error) {
	tmpl, ok := s.templates[name]
	if !ok {
		return "", fmt.Errorf("template not found: %s", name)
	}
	if data == nil {
		data = make(map[string]interface{})
	}
	data["BaseURL"] = s.config.BaseURL

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

// SendWelcome notifies a newly registered driver, when one supplied a
// ContactEmail.
func (s *Service) SendWelcome(ctx context.Context, user *domain.User) error {
	if user.ContactEmail == "" {
		return nil
	}
	body, err := s.renderTemplate("welcome", map[string]interface{}{
		"CarID": user.Car.CarID,
	})
	if err != nil {
		return err
	}
	if err := s.provider.Send(ctx, user.ContactEmail, "Welcome to your charge station account", body, true); err != nil {
		s.log.Error("failed to send welcome email", zap.String("user_id", user.UserID), zap.Error(err))
		return fmt.Errorf("send welcome email: %w", err)
	}
	return nil
}

// SendBillCompleted notifies the driver their bill has been produced,
// attaching the rendered PDF receipt when the provider supports it.
func (s *Service) SendBillCompleted(ctx context.Context, user *domain.User, bill *domain.Bill, receiptPDF []byte) error {
	if user.ContactEmail == "" {
		return nil
	}

	body, err := s.renderTemplate("bill_completed", map[string]interface{}{
		"BillID":       bill.BillID,
		"PileID":       bill.PileID,
		"DeliveredKWh": fmt.Sprintf("%.2f", bill.DeliveredKWh),
		"ChargeFee":    fmt.Sprintf("%.2f", bill.ChargeFee),
		"ServiceFee":   fmt.Sprintf("%.2f", bill.ServiceFee),
		"TotalFee":     fmt.Sprintf("%.2f", bill.TotalFee),
	})
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Charging bill %s ready", bill.BillID)

	if attacher, ok := s.provider.(AttachmentSender); ok && len(receiptPDF) > 0 {
		if err := attacher.SendWithAttachment(ctx, user.ContactEmail, subject, body, true, bill.BillID+".pdf", receiptPDF); err != nil {
			s.log.Error("failed to send bill email with receipt", zap.String("bill_id", bill.BillID), zap.Error(err))
			return fmt.Errorf("send bill email: %w", err)
		}
		return nil
	}

	if err := s.provider.Send(ctx, user.ContactEmail, subject, body, true); err != nil {
		s.log.Error("failed to send bill email", zap.String("bill_id", bill.BillID), zap.Error(err))
		return fmt.Errorf("send bill email: %w", err)
	}
	return nil
}
