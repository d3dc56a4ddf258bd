package submit

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPSubmitterPostsToWalletWhenConfigured(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("requestType")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wallet, err := url.Parse(srv.URL)
	require.NoError(t, err)

	var mu sync.Mutex
	var gotNonce uint64
	var gotErr error
	h := NewHTTPSubmitter(Endpoints{
		Wallet:      wallet,
		SendTimeout: time.Second,
	}, func(nonce uint64, err error) {
		mu.Lock()
		gotNonce, gotErr = nonce, err
		mu.Unlock()
	})

	h.Submit(42, 1, 1000, 5, "/plots/a")

	mu.Lock()
	defer mu.Unlock()
	require.NoError(t, gotErr)
	require.Equal(t, uint64(42), gotNonce)
	require.Equal(t, "submitNonceRequest", gotQuery)
}

func TestHTTPSubmitterFallsBackToPoolWhenNoWallet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	pool, err := url.Parse(srv.URL)
	require.NoError(t, err)

	var gotErr error
	h := NewHTTPSubmitter(Endpoints{Pool: pool, SendTimeout: time.Second}, func(nonce uint64, err error) {
		gotErr = err
	})
	h.Submit(1, 1, 1, 1, "/plots/a")
	require.NoError(t, gotErr)
}

func TestHTTPSubmitterReportsErrNoEndpoint(t *testing.T) {
	var gotErr error
	h := NewHTTPSubmitter(Endpoints{SendTimeout: time.Second}, func(nonce uint64, err error) {
		gotErr = err
	})
	h.Submit(1, 1, 1, 1, "/plots/a")
	require.ErrorIs(t, gotErr, errNoEndpoint)
}

func TestHTTPSubmitterOnResultOptional(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	wallet, _ := url.Parse(srv.URL)

	h := NewHTTPSubmitter(Endpoints{Wallet: wallet, SendTimeout: time.Second}, nil)
	require.NotPanics(t, func() { h.Submit(1, 1, 1, 1, "/plots/a") })
}
