package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/Dan9191/smartbank/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tuple struct {
	date        string
	description string
	category    string
	txType      models.TransactionType
	amount      string
}

func tuples(txs []models.Transaction) []tuple {
	out := make([]tuple, 0, len(txs))
	for _, t := range txs {
		out = append(out, tuple{t.Date.Format(DateLayout), t.Description, t.Category, t.Type, t.Amount.String()})
	}
	return out
}

func sample() []models.Transaction {
	day := time.Date(2025, 3, 15, 9, 30, 0, 0, time.UTC)
	return []models.Transaction{
		{ID: 1, Date: day, Description: "Salario Mensual", Category: "Salario", Type: models.TypeIncome, Amount: decimal.NewFromInt(5000), Method: "Transferencia"},
		{ID: 2, Date: day.AddDate(0, 0, -1), Description: `Cena, "La Tasca"`, Category: "Alimentación", Type: models.TypeExpense, Amount: decimal.RequireFromString("42.35"), Notes: "con\namigos"},
		{ID: 3, Date: day.AddDate(0, -1, 0), Description: "Ahorro", Category: models.TransferCategory, Type: models.TypeTransfer, Amount: decimal.RequireFromString("0.01")},
	}
}

func TestTransactionsCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTransactionsCSV(&buf, sample()))
	assert.True(t, strings.HasPrefix(buf.String(), "date,description,category,type,amount,location,method,notes\n"))

	got, err := ReadTransactionsCSV(&buf)
	require.NoError(t, err)
	assert.ElementsMatch(t, tuples(sample()), tuples(got))
	assert.Equal(t, "con\namigos", got[1].Notes)
}

func TestReadTransactionsCSVReordersColumns(t *testing.T) {
	in := "amount,type,category,description,date\n10.5,expense,Ocio,Cine,2025-01-02\n"
	got, err := ReadTransactionsCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Cine", got[0].Description)
	assert.True(t, got[0].Amount.Equal(decimal.RequireFromString("10.5")))
	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), got[0].Date)
}

func TestReadTransactionsCSVErrors(t *testing.T) {
	cases := map[string]string{
		"empty":           "",
		"missing column":  "date,description,category,type\n",
		"bad amount":      "date,description,category,type,amount\n2025-01-02,x,y,expense,ten\n",
		"bad date":        "date,description,category,type,amount\n02/01/2025,x,y,expense,10\n",
		"open quote row":  "date,description,category,type,amount\n2025-01-02,\"Cine,Ocio,expense,10\n",
		"open quote head": "\"date,description,category,type,amount\n2025-01-02,x,y,expense,10\n",
		"bare quote":      "date,description,category,type,amount\n2025-01-02,Ci\"ne,Ocio,expense,10\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadTransactionsCSV(strings.NewReader(in))
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
}

func TestStatementXMLRoundTrip(t *testing.T) {
	user := &models.User{Email: "juan@test.com", Currency: "USD"}
	var buf bytes.Buffer
	require.NoError(t, WriteStatementXML(&buf, user, sample(), time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC)))
	out := buf.String()
	assert.Contains(t, out, `<statement owner="juan@test.com" currency="USD" generated="2025-03-16T00:00:00Z" count="3">`)
	assert.Contains(t, out, "<method>Transferencia</method>")

	got, err := ReadStatementXML(&buf)
	require.NoError(t, err)
	assert.Equal(t, tuples(sample()), tuples(got))
	assert.Equal(t, int64(2), got[1].ID)
}

func TestReadStatementXMLRejectsOtherDocuments(t *testing.T) {
	_, err := ReadStatementXML(strings.NewReader("<ledger/>"))
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = ReadStatementXML(strings.NewReader("<statement><transaction><date>x</date></transaction></statement>"))
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestCatalogCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCategoriesCSV(&buf, []models.Category{
		{Name: "Ocio", Budget: decimal.NewFromInt(200), Spent: decimal.NewFromInt(110), Color: "#BFDBFE", Icon: "🎬"},
	}))
	assert.Equal(t, "name,budget,spent,color,icon\nOcio,200,110,#BFDBFE,🎬\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteSubscriptionsCSV(&buf, []models.Subscription{
		{Name: "Netflix", Price: decimal.RequireFromString("15.99"), BillingCycle: models.BillingMonthly, NextPayment: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), Active: true},
	}))
	assert.Equal(t, "name,price,billingCycle,nextPayment,active\nNetflix,15.99,monthly,2025-04-01,true\n", buf.String())
}

func TestWriteDataJSON(t *testing.T) {
	user := &models.User{ID: 7, Email: "juan@test.com", FirstName: "Juan", LastName: "Pérez"}
	data := &models.UserData{Transactions: sample()[:1], Settings: models.Settings{Currency: "USD"}}

	var buf bytes.Buffer
	require.NoError(t, WriteDataJSON(&buf, user, data, time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC)))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "Juan Pérez", decoded["user"].(map[string]any)["name"])
	assert.Len(t, decoded["transactions"], 1)
	assert.Equal(t, "USD", decoded["settings"].(map[string]any)["currency"])
}
