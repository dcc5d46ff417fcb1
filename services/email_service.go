package services

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"github.com/golf-arbitri/referee-system/config"
	"github.com/golf-arbitri/referee-system/models"
)

// EmailService отправляет письма через SMTP (STARTTLS или прямой TLS).
type EmailService struct {
	cfg *config.Config
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{cfg: cfg}
}

// buildMessage собирает заголовки и тело письма. В To: попадают все
// получатели, не только первый.
func buildMessage(from string, to []string, subject string, body string) []byte {
	return []byte("To: " + strings.Join(to, ", ") + "\r\n" +
		"From: " + from + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\r\n" +
		"\r\n" +
		body + "\r\n")
}

func (s *EmailService) SendEmail(to []string, subject string, body string) error {
	auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)

	msg := buildMessage(s.cfg.SMTPFrom, to, subject, body)

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	tlsconfig := &tls.Config{
		ServerName: s.cfg.SMTPHost,
	}

	var client *smtp.Client
	if s.cfg.SMTPPort == 465 {
		// Прямое TLS-соединение (обычно порт 465)
		conn, err := tls.Dial("tcp", addr, tlsconfig)
		if err != nil {
			return fmt.Errorf("smtp tls dial failed: %w", err)
		}
		defer conn.Close()
		client, err = smtp.NewClient(conn, s.cfg.SMTPHost)
		if err != nil {
			return fmt.Errorf("smtp client creation failed: %w", err)
		}
	} else {
		// STARTTLS (обычно порт 587)
		c, err := smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("smtp dial failed: %w", err)
		}
		client = c
		if err = client.StartTLS(tlsconfig); err != nil {
			client.Close()
			return fmt.Errorf("smtp STARTTLS failed: %w", err)
		}
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth failed: %w", err)
	}

	if err := client.Mail(s.cfg.SMTPFrom); err != nil {
		return fmt.Errorf("smtp MAIL FROM failed: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO failed: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA failed: %w", err)
	}

	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("smtp message write failed: %w", err)
	}

	if err = w.Close(); err != nil {
		return fmt.Errorf("smtp DATA close failed: %w", err)
	}

	return nil
}

func (s *EmailService) GenerateEmailBody(templatePath string, data interface{}) (string, error) {
	t, err := template.ParseFiles(templatePath)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", templatePath, err)
	}

	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templatePath, err)
	}

	return body.String(), nil
}

// SendAvailabilityBatchToAdmin уведомляет административный ящик (зональный
// или национальный) о новых заявках арбитра. В письме только турниры
// соответствующего охвата.
func (s *EmailService) SendAvailabilityBatchToAdmin(mailbox string, referee *models.User, tournaments []models.Tournament) error {
	if mailbox == "" {
		return fmt.Errorf("empty admin mailbox")
	}
	subject := fmt.Sprintf("Nuove disponibilità: %s %s", referee.FirstName, referee.LastName)
	data := struct {
		Referee     *models.User
		Tournaments []models.Tournament
		Link        string
	}{
		Referee:     referee,
		Tournaments: tournaments,
		Link:        fmt.Sprintf("%s/availabilities", s.cfg.PublicURL),
	}
	htmlBody, err := s.GenerateEmailBody("templates/emails/availability_admin_email.html", data)
	if err != nil {
		return fmt.Errorf("failed to build admin availability email: %w", err)
	}
	return s.SendEmail([]string{mailbox}, subject, htmlBody)
}

// SendAvailabilityConfirmationToReferee подтверждает арбитру его заявки.
// Письмо всегда охватывает все турниры из заявки, независимо от их охвата.
func (s *EmailService) SendAvailabilityConfirmationToReferee(referee *models.User, tournaments []models.Tournament) error {
	if referee.Email == "" {
		return fmt.Errorf("referee %d has no email", referee.ID)
	}
	subject := "Conferma disponibilità inviate"
	data := struct {
		Referee     *models.User
		Tournaments []models.Tournament
	}{
		Referee:     referee,
		Tournaments: tournaments,
	}
	htmlBody, err := s.GenerateEmailBody("templates/emails/availability_referee_email.html", data)
	if err != nil {
		return fmt.Errorf("failed to build referee availability email: %w", err)
	}
	return s.SendEmail([]string{referee.Email}, subject, htmlBody)
}

// SendAssignmentEmail уведомляет арбитра о назначении на турнир.
func (s *EmailService) SendAssignmentEmail(referee *models.User, tournament *models.Tournament, role models.AssignmentRole) error {
	if referee.Email == "" {
		return fmt.Errorf("referee %d has no email", referee.ID)
	}
	subject := fmt.Sprintf("Convocazione: %s", tournament.Name)
	data := struct {
		Referee    *models.User
		Tournament *models.Tournament
		Role       models.AssignmentRole
		Link       string
	}{
		Referee:    referee,
		Tournament: tournament,
		Role:       role,
		Link:       fmt.Sprintf("%s/tournaments/%d", s.cfg.PublicURL, tournament.ID),
	}
	htmlBody, err := s.GenerateEmailBody("templates/emails/assignment_email.html", data)
	if err != nil {
		return fmt.Errorf("failed to build assignment email: %w", err)
	}
	return s.SendEmail([]string{referee.Email}, subject, htmlBody)
}
