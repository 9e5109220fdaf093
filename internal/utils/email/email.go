package email

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/Dan9191/smartbank/internal/config"
	"github.com/Dan9191/smartbank/internal/models"
	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var hundred = decimal.NewFromInt(100)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	s := &Sender{
		cfg:    cfg,
		logger: logger,
	}
	s.send = s.sendSMTP
	return s
}

func (s *Sender) sendSMTP(e *email.Email) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	return e.Send(addr, auth)
}

func (s *Sender) deliver(to, subject, body string) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	if err := s.send(e); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}

// SendBudgetAlert warns a user that a category reached its budget threshold
func (s *Sender) SendBudgetAlert(user *models.User, category *models.Category) error {
	usage := category.Usage()
	subject := fmt.Sprintf("Budget alert: %s", category.Name)
	if usage.GreaterThanOrEqual(hundred) {
		subject = fmt.Sprintf("Budget exceeded: %s", category.Name)
	}

	body := fmt.Sprintf("Dear %s,\n\n", user.Name())
	body += fmt.Sprintf(
		"You have spent %s %s of your %s %s budget for %s (%s%%).\n",
		category.Spent.StringFixed(2), user.Currency, category.Budget.StringFixed(2), user.Currency,
		category.Name, usage.StringFixed(0),
	)
	if remaining := category.Remaining(); remaining.IsNegative() {
		body += fmt.Sprintf("You are %s %s over budget.\n", remaining.Neg().StringFixed(2), user.Currency)
	} else {
		body += fmt.Sprintf("Remaining: %s %s.\n", remaining.StringFixed(2), user.Currency)
	}
	body += "\nBest regards,\nSmartBank"

	return s.deliver(user.Email, subject, body)
}

// SendSubscriptionReminder lists the subscriptions charging on the given day
func (s *Sender) SendSubscriptionReminder(user *models.User, subs []models.Subscription, day time.Time) error {
	var lines strings.Builder
	for _, sub := range subs {
		fmt.Fprintf(&lines, "  - %s: %s %s (%s)\n", sub.Name, sub.Price.StringFixed(2), user.Currency, sub.BillingCycle)
	}

	body := fmt.Sprintf("Dear %s,\n\n", user.Name())
	body += fmt.Sprintf("The following subscriptions renew on %s:\n%s", day.Format("2006-01-02"), lines.String())
	body += "\nBest regards,\nSmartBank"

	return s.deliver(user.Email, "Upcoming subscription payments", body)
}
