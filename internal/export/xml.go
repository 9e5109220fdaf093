package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/Dan9191/smartbank/internal/models"
	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
)

// WriteStatementXML writes txs as a <statement> document owned by user.
func WriteStatementXML(w io.Writer, user *models.User, txs []models.Transaction, generated time.Time) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("statement")
	root.CreateAttr("owner", user.Email)
	root.CreateAttr("currency", user.Currency)
	root.CreateAttr("generated", generated.UTC().Format(time.RFC3339))
	root.CreateAttr("count", strconv.Itoa(len(txs)))

	for _, t := range txs {
		el := root.CreateElement("transaction")
		el.CreateAttr("id", strconv.FormatInt(t.ID, 10))
		el.CreateElement("date").SetText(t.Date.Format(DateLayout))
		el.CreateElement("description").SetText(t.Description)
		el.CreateElement("category").SetText(t.Category)
		el.CreateElement("type").SetText(string(t.Type))
		el.CreateElement("amount").SetText(t.Amount.String())
		for _, opt := range [][2]string{{"location", t.Location}, {"method", t.Method}, {"notes", t.Notes}} {
			if opt[1] != "" {
				el.CreateElement(opt[0]).SetText(opt[1])
			}
		}
	}

	doc.Indent(2)
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write statement: %w", err)
	}
	return nil
}

// ReadStatementXML parses a document written by WriteStatementXML.
func ReadStatementXML(r io.Reader) ([]models.Transaction, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}
	root := doc.SelectElement("statement")
	if root == nil {
		return nil, models.Invalid("xml", "statement element not found")
	}

	text := func(el *etree.Element, name string) string {
		if child := el.SelectElement(name); child != nil {
			return child.Text()
		}
		return ""
	}

	var txs []models.Transaction
	for i, el := range root.SelectElements("transaction") {
		date, err := time.Parse(DateLayout, text(el, "date"))
		if err != nil {
			return nil, models.Invalid("transaction "+strconv.Itoa(i+1), "bad date")
		}
		amount, err := decimal.NewFromString(text(el, "amount"))
		if err != nil {
			return nil, models.Invalid("transaction "+strconv.Itoa(i+1), "bad amount")
		}
		id, _ := strconv.ParseInt(el.SelectAttrValue("id", "0"), 10, 64)
		txs = append(txs, models.Transaction{
			ID:          id,
			Date:        date,
			Description: text(el, "description"),
			Category:    text(el, "category"),
			Type:        models.TransactionType(text(el, "type")),
			Amount:      amount,
			Location:    text(el, "location"),
			Method:      text(el, "method"),
			Notes:       text(el, "notes"),
		})
	}
	return txs, nil
}
