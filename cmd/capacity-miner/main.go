package main

import (
	"io"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/pborman/options"

	"github.com/creepminer-go/capacity-miner/config"
	"github.com/creepminer-go/capacity-miner/miner"
	"github.com/creepminer-go/capacity-miner/plot"
	"github.com/creepminer-go/capacity-miner/submit"
)

func main() {
	opts := &struct {
		Config  string       `getopt:"-c --config   Path to the YAML/JSON config file"`
		Rescan  bool         `getopt:"-r --rescan   Rescan configured plot locations once at startup and exit"`
		Verbose bool         `getopt:"-v --verbose  Enable debug-level logging regardless of output.debug"`
		Help    options.Help `getopt:"-h --help     Display help"`
	}{Config: "capacity-miner.yaml"}

	options.RegisterAndParse(opts)
	setupLogging()

	cfg, err := config.Load(opts.Config)
	if err != nil {
		log.Fatalf("capacity-miner: %v", err)
	}
	if opts.Verbose {
		cfg.Output.Debug = true
	}

	registry, err := plot.NewRegistry(opts.Config + ".fpcache")
	if err != nil {
		log.Fatalf("capacity-miner: %v", err)
	}
	added, removed, err := registry.Rescan(cfg.Plots)
	if err != nil {
		log.Printf("capacity-miner: initial rescan: %v", err)
	}
	log.Printf("capacity-miner: initial rescan: %d added, %d removed", len(added), len(removed))

	if opts.Rescan {
		return
	}

	submitter := buildSubmitter(cfg)

	workers := 4
	m := miner.New(cfg, registry, submitter, workers, workers)
	m.Start()

	watcher, err := config.NewWatcher(opts.Config, cfg.Plots, registry)
	if err != nil {
		log.Printf("capacity-miner: config watcher disabled: %v", err)
	} else {
		watcher.SetRescanLogger(func(added, removed []*plot.File) {
			if cfg.Output.DirDone {
				log.Printf("capacity-miner: rescan: %d added, %d removed", len(added), len(removed))
			}
		})
		go watcher.Run()
		defer watcher.Close()
	}

	go pollBlockSource(cfg.MiningInfoURL, cfg.Timeout(), m.OnNewBlock)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("capacity-miner: shutting down")
	m.Shutdown()
}

// buildSubmitter constructs the default HTTPSubmitter from the config's
// endpoint URLs; malformed URLs are treated as "endpoint not configured"
// since the wire protocol itself is out of scope (§1).
func buildSubmitter(cfg *config.Config) submit.Submitter {
	parse := func(raw string) *url.URL {
		if raw == "" {
			return nil
		}
		u, err := url.Parse(raw)
		if err != nil {
			log.Printf("capacity-miner: ignoring malformed endpoint %q: %v", raw, err)
			return nil
		}
		return u
	}

	endpoints := submit.Endpoints{
		Pool:               parse(cfg.PoolURL),
		Wallet:             parse(cfg.WalletURL),
		MiningInfo:         parse(cfg.MiningInfoURL),
		Timeout:            cfg.Timeout(),
		SendTimeout:        cfg.SendTimeout(),
		ReceiveTimeout:     cfg.ReceiveTimeout(),
		SubmissionMaxRetry: cfg.SubmissionMaxRetry,
	}
	return submit.NewHTTPSubmitter(endpoints, func(nonce uint64, err error) {
		if err != nil {
			log.Printf("capacity-miner: submission of nonce %d failed: %v", nonce, err)
		} else if cfg.Output.NonceConfirmedPlot {
			log.Printf("capacity-miner: nonce %d submitted", nonce)
		}
	})
}

// setupLogging mirrors the teacher's cmd binary: go-isatty detects a real
// terminal and, only then, go-colorable wraps stdout so ANSI sequences
// survive on Windows consoles without corrupting output piped to a file.
func setupLogging() {
	var w io.Writer = os.Stdout
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		w = colorable.NewColorableStdout()
	}
	log.SetOutput(w)
	log.SetFlags(log.Ldate | log.Ltime)
}
