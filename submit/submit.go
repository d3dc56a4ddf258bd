// Package submit implements the external-collaborator contract the spec
// calls out in §6: submit_nonce(nonce, account, deadline, block, plotPath).
// The wallet/pool wire protocol itself remains out of scope (§1); this
// package only provides the callback shape plus the minimal "one client per
// logical endpoint" structure the original miner used
// (MinerConfig::createSession(HostType), §12).
package submit

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Func is the submit_nonce callback contract from §6. It must be safe to
// call concurrently from any verifier goroutine.
type Func func(nonce, account, deadline, block uint64, plotPath string)

// Submitter is the richer external collaborator a real binary wires up: it
// dequeues every verifier's local minimum (already deduplicated by
// coordinator.Coordinator) and is responsible for pool acknowledgement and
// its own submission retries, which are explicitly out of this repo's scope
// (§1 Non-goals, §7 "Submitter failure").
type Submitter interface {
	Submit(nonce, account, deadline, block uint64, plotPath string)
}

// HostType mirrors the original miner's three logical endpoints; a real
// deployment wants distinct timeouts/retry policy per endpoint even before
// the wire protocol is defined.
type HostType int

const (
	HostPool HostType = iota
	HostWallet
	HostMiningInfo
)

// Endpoints carries the per-host-type URLs and client tuning read from
// config (spec §6: poolUrl, walletUrl, miningInfoUrl, timeout,
// sendTimeout/receiveTimeout, the *MaxRetry counters).
type Endpoints struct {
	Pool, Wallet, MiningInfo *url.URL
	Timeout                  time.Duration
	SendTimeout              time.Duration
	ReceiveTimeout           time.Duration
	SubmissionMaxRetry       int
}

// HTTPSubmitter is the default Submitter: one *http.Client per HostType, as
// MinerConfig::createSession did per HostType in the original miner, posting
// a minimal deadline-submission request to Wallet (or Pool, if configured
// pool-mining). It does not implement the pool JSON wire format; callers
// needing that should supply their own Submitter.
type HTTPSubmitter struct {
	endpoints Endpoints
	clients   map[HostType]*http.Client
	onResult  func(nonce uint64, err error)
}

// NewHTTPSubmitter constructs per-host-type clients from endpoints.
func NewHTTPSubmitter(endpoints Endpoints, onResult func(nonce uint64, err error)) *HTTPSubmitter {
	mk := func() *http.Client { return &http.Client{Timeout: endpoints.Timeout} }
	return &HTTPSubmitter{
		endpoints: endpoints,
		clients: map[HostType]*http.Client{
			HostPool:       mk(),
			HostWallet:     mk(),
			HostMiningInfo: mk(),
		},
		onResult: onResult,
	}
}

// Submit implements Submitter by POSTing to the wallet endpoint. Network
// retry/backoff is explicitly out of scope (§1); a single attempt per call
// is made and the result (if onResult is non-nil) is reported back. This type
// does not read submissionMaxRetry, sendMaxRetry or receiveMaxRetry and makes
// no retries.
func (h *HTTPSubmitter) Submit(nonce, account, deadline, block uint64, plotPath string) {
	hostType := HostWallet
	target := h.endpoints.Wallet
	if target == nil {
		hostType = HostPool
		target = h.endpoints.Pool
	}
	if target == nil {
		if h.onResult != nil {
			h.onResult(nonce, errNoEndpoint)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.endpoints.SendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), nil)
	if err != nil {
		if h.onResult != nil {
			h.onResult(nonce, err)
		}
		return
	}
	q := req.URL.Query()
	q.Set("requestType", "submitNonceRequest")
	req.URL.RawQuery = q.Encode()

	resp, err := h.clients[hostType].Do(req)
	if err == nil {
		resp.Body.Close()
	}
	if h.onResult != nil {
		h.onResult(nonce, err)
	}
}

var errNoEndpoint = httpError("submit: no wallet or pool endpoint configured")

type httpError string

func (e httpError) Error() string { return string(e) }
