package email

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/Dan9191/smartbank/internal/config"
	"github.com/Dan9191/smartbank/internal/models"
	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSender(t *testing.T, sendErr error) (*Sender, *[]*email.Email) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	s := NewSender(&config.Config{SenderEmail: "noreply@smartbank.local"}, log)
	var sent []*email.Email
	s.send = func(e *email.Email) error {
		sent = append(sent, e)
		return sendErr
	}
	return s, &sent
}

var juan = &models.User{FirstName: "Juan", LastName: "Pérez", Email: "juan@example.com", Currency: "USD"}

func TestSendBudgetAlert(t *testing.T) {
	s, sent := newTestSender(t, nil)
	cat := &models.Category{Name: "Ocio", Budget: decimal.NewFromInt(200), Spent: decimal.NewFromInt(190)}
	require.NoError(t, s.SendBudgetAlert(juan, cat))
	require.Len(t, *sent, 1)
	msg := (*sent)[0]
	assert.Equal(t, []string{"juan@example.com"}, msg.To)
	assert.Equal(t, "Budget alert: Ocio", msg.Subject)
	assert.Contains(t, string(msg.Text), "(95%)")
	assert.Contains(t, string(msg.Text), "Remaining: 10.00 USD")

	cat.Spent = decimal.NewFromInt(250)
	require.NoError(t, s.SendBudgetAlert(juan, cat))
	assert.Equal(t, "Budget exceeded: Ocio", (*sent)[1].Subject)
	assert.Contains(t, string((*sent)[1].Text), "50.00 USD over budget")
}

func TestSendSubscriptionReminder(t *testing.T) {
	s, sent := newTestSender(t, nil)
	day := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	subs := []models.Subscription{{Name: "Netflix", Price: decimal.RequireFromString("15.99"), BillingCycle: models.BillingMonthly}}
	require.NoError(t, s.SendSubscriptionReminder(juan, subs, day))
	require.Len(t, *sent, 1)
	assert.Contains(t, string((*sent)[0].Text), "Netflix: 15.99 USD (monthly)")
	assert.Contains(t, string((*sent)[0].Text), "2025-07-01")
}

func TestSendFailureIsWrapped(t *testing.T) {
	boom := errors.New("connection refused")
	s, _ := newTestSender(t, boom)
	err := s.SendBudgetAlert(juan, &models.Category{Name: "Ocio", Budget: decimal.NewFromInt(1), Spent: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, boom)
}
