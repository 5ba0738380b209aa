package email

import (
	"context"
	"errors"
	"html/template"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/evstation/charge-station/internal/domain"
)

type MockProvider struct {
	SentEmails []MockEmail
	ShouldFail bool
	FailError  error
}

type MockEmail struct {
	To      string
	Subject string
	Body    string
	IsHTML  bool
}

func (m *MockProvider) Send(ctx context.Context, to, subject, body string, isHTML bool) error {
	if m.ShouldFail {
		if m.FailError != nil {
			return m.FailError
		}
		return errors.New("mock send failed")
	}
	m.SentEmails = append(m.SentEmails, MockEmail{To: to, Subject: subject, Body: body, IsHTML: isHTML})
	return nil
}

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func newTestService(provider *MockProvider) *Service {
	return &Service{
		config: &Config{
			Provider:  "mock",
			FromEmail: "test@evstation.local",
			FromName:  "Test",
			BaseURL:   "http://localhost:3000",
		},
		provider:  provider,
		templates: make(map[string]*template.Template),
		log:       newTestLogger(),
	}
}

func TestService_SendWelcome_SkipsWithoutContactEmail(t *testing.T) {
	mockProvider := &MockProvider{}
	service := newTestService(mockProvider)
	service.loadTemplates()

	user := &domain.User{UserID: "U-1", Car: domain.Car{CarID: "CAR-A"}}

	if err := service.SendWelcome(context.Background(), user); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(mockProvider.SentEmails) != 0 {
		t.Fatalf("expected no email sent without a contact email, got %d", len(mockProvider.SentEmails))
	}
}

func TestService_SendWelcome_Success(t *testing.T) {
	mockProvider := &MockProvider{}
	service := newTestService(mockProvider)
	service.loadTemplates()

	user := &domain.User{UserID: "U-1", Car: domain.Car{CarID: "CAR-A"}, ContactEmail: "alice@example.com"}

	if err := service.SendWelcome(context.Background(), user); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(mockProvider.SentEmails) != 1 {
		t.Fatalf("expected 1 email sent, got %d", len(mockProvider.SentEmails))
	}
	email := mockProvider.SentEmails[0]
	if email.To != "alice@example.com" {
		t.Errorf("expected to 'alice@example.com', got '%s'", email.To)
	}
	if !strings.Contains(email.Body, "CAR-A") {
		t.Error("expected body to contain car id")
	}
}

func TestService_SendBillCompleted_Success(t *testing.T) {
	mockProvider := &MockProvider{}
	service := newTestService(mockProvider)
	service.loadTemplates()

	user := &domain.User{UserID: "U-1", ContactEmail: "alice@example.com"}
	bill := &domain.Bill{
		BillID:       "BILL-1",
		PileID:       "A1",
		DeliveredKWh: 25.5,
		ChargeFee:    20.0,
		ServiceFee:   20.4,
		TotalFee:     40.4,
	}

	if err := service.SendBillCompleted(context.Background(), user, bill, nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(mockProvider.SentEmails) != 1 {
		t.Fatalf("expected 1 email sent, got %d", len(mockProvider.SentEmails))
	}
	email := mockProvider.SentEmails[0]
	if !strings.Contains(email.Body, "BILL-1") {
		t.Error("expected body to contain bill id")
	}
	if !strings.Contains(email.Body, "40.40") {
		t.Error("expected body to contain total fee")
	}
}

func TestNewService_SendGridProvider(t *testing.T) {
	config := &Config{
		Provider:       "sendgrid",
		SendGridAPIKey: "test-api-key",
		FromEmail:      "test@example.com",
		FromName:       "Test",
	}

	service, err := NewService(config, newTestLogger())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := service.provider.(*SendGridProvider); !ok {
		t.Error("expected SendGridProvider")
	}
}

func TestNewService_SMTPProvider(t *testing.T) {
	config := &Config{
		Provider:  "smtp",
		SMTPHost:  "localhost",
		SMTPPort:  1025,
		FromEmail: "test@example.com",
		FromName:  "Test",
	}

	service, err := NewService(config, newTestLogger())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := service.provider.(*SMTPProvider); !ok {
		t.Error("expected SMTPProvider")
	}
}

func TestNewService_UnknownProvider(t *testing.T) {
	_, err := NewService(&Config{Provider: "unknown"}, newTestLogger())
	if err == nil || !strings.Contains(err.Error(), "unknown email provider") {
		t.Fatalf("expected 'unknown email provider' error, got %v", err)
	}
}

func TestNewService_SendGridMissingAPIKey(t *testing.T) {
	_, err := NewService(&Config{Provider: "sendgrid"}, newTestLogger())
	if err == nil || !strings.Contains(err.Error(), "api key is required") {
		t.Fatalf("expected 'api key is required' error, got %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.Provider != "smtp" {
		t.Errorf("expected provider 'smtp', got '%s'", config.Provider)
	}
	if config.SMTPPort != 1025 {
		t.Errorf("expected SMTP port 1025, got %d", config.SMTPPort)
	}
}
