package main

import (
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// miningInfo is the minimal shape of the widely used Burst pool
// "getMiningInfo" response; the wire protocol itself is explicitly out of
// scope (§1, §6 "New-block source (out-of-scope)"), so only the three
// fields the coordinator needs are decoded and anything else is ignored.
type miningInfo struct {
	Height              string `json:"height"`
	BaseTarget          string `json:"baseTarget"`
	GenerationSignature string `json:"generationSignature"`
}

// pollBlockSource polls url every interval and invokes onBlock whenever the
// reported height changes. It is the minimal concrete stand-in for the
// external new-block source the spec leaves unspecified; a real deployment
// would replace this with a long-poll or websocket client without touching
// miner.Miner at all.
func pollBlockSource(url string, interval time.Duration, onBlock func(height uint64, gensig [32]byte, baseTarget uint64)) {
	client := &http.Client{Timeout: interval}
	var lastHeight uint64

	for {
		info, err := fetchMiningInfo(client, url)
		if err != nil {
			log.Printf("blocksource: %v", err)
			time.Sleep(interval)
			continue
		}

		height := parseDecimal(info.Height)
		if height != lastHeight {
			var gensig [32]byte
			if raw, err := hex.DecodeString(info.GenerationSignature); err == nil && len(raw) == len(gensig) {
				copy(gensig[:], raw)
			}
			onBlock(height, gensig, parseDecimal(info.BaseTarget))
			lastHeight = height
		}
		time.Sleep(interval)
	}
}

func fetchMiningInfo(client *http.Client, url string) (*miningInfo, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var info miningInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}

func parseDecimal(s string) uint64 {
	var v uint64
	for _, c := range s {
		if c < '0' || c > '9' {
			return v
		}
		v = v*10 + uint64(c-'0')
	}
	return v
}
