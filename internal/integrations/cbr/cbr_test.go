package cbr

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const keyRateResponse = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">
  <soap:Body>
    <KeyRateResponse xmlns="http://web.cbr.ru/">
      <KeyRateResult>
        <diffgr:diffgram xmlns:diffgr="urn:schemas-microsoft-com:xml-diffgram-v1">
          <KeyRate xmlns="">
            <KR><DT>2025-06-10T00:00:00+03:00</DT><Rate>20.00</Rate></KR>
            <KR><DT>2025-06-09T00:00:00+03:00</DT><Rate>21.00</Rate></KR>
          </KeyRate>
        </diffgr:diffgram>
      </KeyRateResult>
    </KeyRateResponse>
  </soap:Body>
</soap:Envelope>`

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestAnnualRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "http://web.cbr.ru/KeyRate", r.Header.Get("SOAPAction"))
		body, _ := io.ReadAll(r.Body)
		assert.True(t, strings.Contains(string(body), "<KeyRate xmlns=\"http://web.cbr.ru/\">"))
		io.WriteString(w, keyRateResponse)
	}))
	defer srv.Close()

	c := NewRateClient(srv.URL, 5.0, quietLogger())
	rate, err := c.AnnualRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "25", rate.String())
}

func TestAnnualRateFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, ""},
		{"no rates", http.StatusOK, `<root><diffgram><KeyRate></KeyRate></diffgram></root>`},
		{"not xml", http.StatusOK, `rate=20`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewRateClient(srv.URL, 5.0, quietLogger()).AnnualRate(context.Background())
			assert.Error(t, err)
		})
	}
}
