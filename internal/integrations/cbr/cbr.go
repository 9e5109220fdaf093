// Package cbr reads the Bank of Russia key rate from its DailyInfo SOAP
// service. Forecasts use it as the compounding rate for savings accounts.
package cbr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	soapAction = "http://web.cbr.ru/KeyRate"
	lookback   = 30 // days of history requested
)

// RateClient is a rate provider backed by the CBR web service.
type RateClient struct {
	endpoint string
	margin   decimal.Decimal
	http     *http.Client
	log      *logrus.Logger
}

// NewRateClient builds a client for endpoint. margin, in percentage points,
// is added to every rate returned.
func NewRateClient(endpoint string, margin float64, log *logrus.Logger) *RateClient {
	return &RateClient{
		endpoint: endpoint,
		margin:   decimal.NewFromFloat(margin),
		http:     &http.Client{Timeout: 10 * time.Second},
		log:      log,
	}
}

func keyRateEnvelope(now time.Time) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<soap12:Envelope xmlns:soap12="http://www.w3.org/2003/05/soap-envelope">
	<soap12:Body>
		<KeyRate xmlns="http://web.cbr.ru/">
			<fromDate>%s</fromDate>
			<ToDate>%s</ToDate>
		</KeyRate>
	</soap12:Body>
</soap12:Envelope>`, now.AddDate(0, 0, -lookback).Format(time.DateOnly), now.Format(time.DateOnly))
}

func (c *RateClient) call(ctx context.Context, envelope string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBufferString(envelope))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")
	req.Header.Set("SOAPAction", soapAction)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("key rate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("key rate service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read key rate response: %w", err)
	}
	c.log.Debugf("CBR response: %s", body)
	return body, nil
}

// latestRate returns the first KR row; the service lists newest first.
func latestRate(body []byte) (decimal.Decimal, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse XML: %w", err)
	}

	rows := doc.FindElements("//diffgram/KeyRate/KR")
	if len(rows) == 0 {
		return decimal.Zero, fmt.Errorf("no key rate data found in XML")
	}
	el := rows[0].FindElement("./Rate")
	if el == nil {
		return decimal.Zero, fmt.Errorf("rate element not found in XML")
	}

	rate, err := decimal.NewFromString(el.Text())
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse rate %q: %w", el.Text(), err)
	}
	return rate, nil
}

// AnnualRate returns the current key rate plus the margin, in percent.
func (c *RateClient) AnnualRate(ctx context.Context) (decimal.Decimal, error) {
	body, err := c.call(ctx, keyRateEnvelope(time.Now()))
	if err != nil {
		return decimal.Zero, err
	}
	rate, err := latestRate(body)
	if err != nil {
		return decimal.Zero, err
	}

	rate = rate.Add(c.margin)
	c.log.Infof("Retrieved key rate: %s%% (including %s%% margin)", rate.StringFixed(2), c.margin.StringFixed(2))
	return rate, nil
}

func (c *RateClient) Source() string { return "cbr" }
