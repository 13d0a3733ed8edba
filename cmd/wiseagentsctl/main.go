// Command wiseagentsctl is an interactive shell for a running multi-agent
// topology: it loads a declarative config document, starts every agent it
// names, and bridges the terminal to one of them through a
// PassThroughClient — the external-collaborator boundary spec §4.6
// describes (cmd/wiseagentsctl never reaches into a running agent's
// internals, only its registered message address).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wiseagents/hectormesh/config"
	"github.com/wiseagents/hectormesh/logging"
	"github.com/wiseagents/hectormesh/metrics"
)

// CLI defines wiseagentsctl's command-line interface.
type CLI struct {
	Config string `short:"c" help:"Path to the topology config file." type:"path" required:""`
	Agent  string `short:"a" help:"Name of the agent to talk to." default:"Answerer"`
	Watch  bool   `help:"Hot-reload the topology file on change."`

	MetricsAddr string `help:"Address to serve Prometheus /metrics on. Empty disables it." default:":9090"`

	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFormat string `help:"Log format (text, json)." default:"text"`
}

func main() {
	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("wiseagentsctl"),
		kong.Description("Interactive shell for a running multi-agent topology."),
		kong.UsageOnError(),
	)
	kctx.FatalIfErrorf(cli.Run())
}

// Run loads the topology, starts a shell session against it, and blocks
// until the session ends or the process receives an interrupt.
func (c *CLI) Run() error {
	log := logging.New(c.LogLevel, c.LogFormat)

	goCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		cancel()
	}()

	doc, err := config.LoadFile(c.Config)
	if err != nil {
		return fmt.Errorf("loading %s: %w", c.Config, err)
	}
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("validating %s: %w", c.Config, err)
	}

	reg := prometheus.NewRegistry()
	obs, shutdownTracing, err := metrics.NewObserver("wiseagentsctl", reg)
	if err != nil {
		return fmt.Errorf("starting metrics: %w", err)
	}
	defer shutdownTracing(context.Background())

	if c.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: c.MetricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server stopped", "error", err)
			}
		}()
		go func() {
			<-goCtx.Done()
			_ = srv.Close()
		}()
	}

	session, err := newSession(goCtx, doc, c.Agent, obs, log)
	if err != nil {
		return err
	}
	defer session.Close(goCtx)

	if c.Watch {
		go func() {
			if err := config.Watch(goCtx, c.Config, session.Reload); err != nil {
				log.Error("config watch stopped", "error", err)
			}
		}()
	}

	return session.RunREPL(goCtx)
}
