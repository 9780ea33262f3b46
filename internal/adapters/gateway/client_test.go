package gateway_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ledgerworks/payments/internal/adapters/gateway"
	"github.com/ledgerworks/payments/internal/core/domain"
	"github.com/ledgerworks/payments/internal/core/signature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedRequest(t *testing.T) domain.SignedGatewayRequest {
	t.Helper()
	body := []byte(`{"entityId":"E1","externalTransactionID":"ORDER-O1-1","amount":100000}`)
	return domain.SignedGatewayRequest{
		Path:      gateway.CheckoutPath,
		Body:      body,
		Signature: signature.NewSigner("secret").SignRequest(gateway.CheckoutPath, body),
		Request:   domain.GatewayRequest{ExternalTransactionID: "ORDER-O1-1"},
	}
}

func TestCreateCheckout_Success(t *testing.T) {
	req := signedRequest(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkouts", r.URL.Path)
		assert.Equal(t, "app-1", r.Header.Get("X-App-Id"))
		assert.Equal(t, req.Signature, r.Header.Get("X-Signature"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, string(req.Body), string(body))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"checkoutId":"chk_1","redirectUrl":"https://pay.example.com/chk_1"}`))
	}))
	defer srv.Close()

	client := gateway.NewClient(srv.URL, "app-1", time.Second)
	resp, err := client.CreateCheckout(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "chk_1", resp.CheckoutID)
	assert.Equal(t, "https://pay.example.com/chk_1", resp.RedirectURL)
}

func TestCreateCheckout_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	resp, err := gateway.NewClient(srv.URL, "app-1", time.Second).CreateCheckout(context.Background(), signedRequest(t))
	assert.True(t, errors.Is(err, domain.ErrGateway))
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "upstream down", string(resp.RawBody))
}

func TestCreateCheckout_MissingRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"checkoutId":"chk_1"}`))
	}))
	defer srv.Close()

	_, err := gateway.NewClient(srv.URL, "app-1", time.Second).CreateCheckout(context.Background(), signedRequest(t))
	assert.True(t, errors.Is(err, domain.ErrGateway))
}

func TestCreateCheckout_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := gateway.NewClient(srv.URL, "app-1", 50*time.Millisecond).CreateCheckout(context.Background(), signedRequest(t))
	assert.True(t, errors.Is(err, domain.ErrGatewayTimeout), "got %v", err)
}

func TestStubClient(t *testing.T) {
	resp, err := gateway.NewStubClient("http://localhost:8080/").CreateCheckout(context.Background(), signedRequest(t))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/checkout/stub_ORDER-O1-1", resp.RedirectURL)
}
