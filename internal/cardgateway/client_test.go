package cardgateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meridianpay/custodyops/internal/apperr"
	"github.com/meridianpay/custodyops/internal/config"
)

func newTestClient(baseURL string) *Client {
	cfg := &config.Config{
		CardGatewayBaseURL: baseURL,
		CardGatewayKeyID:   "key-1",
		CardGatewaySecret:  "shhh",
	}
	c := NewClient(cfg, zap.NewNop())
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	return c
}

func TestSignIsDeterministic(t *testing.T) {
	c := newTestClient("http://gateway")
	sig1 := c.sign("1700000000", "POST", "/cards", []byte(`{"type":"virtual"}`))
	sig2 := c.sign("1700000000", "POST", "/cards", []byte(`{"type":"virtual"}`))
	assert.Equal(t, sig1, sig2)
	assert.NotEqual(t, sig1, c.sign("1700000001", "POST", "/cards", []byte(`{"type":"virtual"}`)))
}

func TestCreateCardSendsValidSignature(t *testing.T) {
	var gotBody []byte
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"id":"card_1","status":"pending","brand":"visa","type":"virtual"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	card, err := client.CreateCard(context.Background(), CreateCardRequest{CustomerID: "cust_1", Type: "virtual", Brand: "visa"})
	require.NoError(t, err)
	assert.Equal(t, "card_1", card.ID)

	// Recompute the signature the way the gateway would.
	mac := hmac.New(sha256.New, []byte("shhh"))
	mac.Write([]byte("1700000000.POST./cards."))
	mac.Write(gotBody)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), gotHeaders.Get("X-Signature"))
	assert.Equal(t, "key-1", gotHeaders.Get("X-Api-Key-Id"))
	assert.Equal(t, "1700000000", gotHeaders.Get("X-Timestamp"))
}

func TestGatewayErrorsAreNotRetried(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, `{"code":"declined"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.GetCard(context.Background(), "card_1")
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "gateway client has no retry loop")

	var perr *apperr.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusServiceUnavailable, perr.Status)
}
