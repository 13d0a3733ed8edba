package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/wiseagents/hectormesh/agent"
	"github.com/wiseagents/hectormesh/config"
	"github.com/wiseagents/hectormesh/message"
	"github.com/wiseagents/hectormesh/transport"
)

// session holds a running topology plus the terminal bridge talking to
// one agent in it. Building and rebuilding (on hot reload) both go
// through the same path: a fresh Bus, Builder, and PassThroughClient.
type session struct {
	mu sync.Mutex

	bus     *transport.Bus
	builder *config.Builder
	started []config.StartedAgent

	shell  *agent.PassThroughClient
	target string
	respCh chan message.Message

	observer agent.Observer
	chatID   string
	log      *slog.Logger
}

// observable is implemented by every concrete agent kind via its embedded
// *agent.Base; session uses it to install the optional dispatch observer
// without needing a kind-specific accessor.
type observable interface {
	SetObserver(agent.Observer)
}

func newSession(goCtx context.Context, doc *config.Document, target string, observer agent.Observer, log *slog.Logger) (*session, error) {
	s := &session{
		target:   target,
		respCh:   make(chan message.Message, 16),
		observer: observer,
		chatID:   uuid.NewString(),
		log:      log,
	}
	if err := s.start(goCtx, doc); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *session) start(goCtx context.Context, doc *config.Document) error {
	bus := transport.NewBus()

	llms, err := config.BuildLLMResources(doc)
	if err != nil {
		return fmt.Errorf("building llm resources: %w", err)
	}
	resources := config.NewResources()
	resources.LLMs = llms

	ext, err := config.BuildExternalStore(doc)
	if err != nil {
		return fmt.Errorf("building context backend: %w", err)
	}
	var builder *config.Builder
	if ext != nil {
		builder = config.NewBuilderWithExternalStore(resources, ext)
	} else {
		builder = config.NewBuilder(resources)
	}
	started, err := builder.Build(goCtx, doc, config.BusConnector(bus))
	if err != nil {
		return fmt.Errorf("building topology: %w", err)
	}

	shell, err := agent.NewPassThroughClient("Shell", "interactive shell bridge", bus.Connect("Shell"),
		builder.Registry, builder.Store, s.target, s.deliver)
	if err != nil {
		stopAll(goCtx, started)
		return fmt.Errorf("constructing shell bridge: %w", err)
	}
	if err := shell.StartAgent(goCtx); err != nil {
		stopAll(goCtx, started)
		return fmt.Errorf("starting shell bridge: %w", err)
	}

	if s.observer != nil {
		for _, a := range started {
			if o, ok := a.Agent.(observable); ok {
				o.SetObserver(s.observer)
			}
		}
		shell.SetObserver(s.observer)
	}

	s.mu.Lock()
	s.bus, s.builder, s.started, s.shell = bus, builder, started, shell
	s.mu.Unlock()
	return nil
}

func (s *session) deliver(msg message.Message) {
	s.respCh <- msg
}

// Reload is config.Watch's hot-reload callback: it tears down the
// previous topology and brings up a new one from doc, without dropping
// the shell's own terminal loop (spec §6's hot-reload requirement).
func (s *session) Reload(doc *config.Document) {
	goCtx := context.Background()
	s.Close(goCtx)
	if err := s.start(goCtx, doc); err != nil {
		s.log.Error("reload failed, topology is down until the next valid edit", "error", err)
	}
}

func (s *session) Close(goCtx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shell != nil {
		_ = s.shell.StopAgent(goCtx)
	}
	stopAll(goCtx, s.started)
	s.bus, s.builder, s.started, s.shell = nil, nil, nil, nil
}

func stopAll(goCtx context.Context, started []config.StartedAgent) {
	for i := len(started) - 1; i >= 0; i-- {
		_ = started[i].Agent.StopAgent(goCtx)
	}
}

// RunREPL reads lines from stdin and sends each as a query to the
// session's target agent, printing whatever response, cannot-answer, or
// error comes back. It recognizes a small set of ":"-prefixed shell
// commands alongside ordinary queries.
func (s *session) RunREPL(goCtx context.Context) error {
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	scanner := bufio.NewScanner(os.Stdin)

	if interactive {
		fmt.Printf("connected to %q — type a message, or :help\n", s.target)
	}

	for {
		if interactive {
			fmt.Print("> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ":") {
			if done := s.command(line); done {
				return nil
			}
			continue
		}

		if err := s.ask(goCtx, line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		select {
		case resp := <-s.respCh:
			fmt.Printf("%s: %s\n", resp.Type(), resp.Payload())
		case <-goCtx.Done():
			return nil
		}
	}
}

func (s *session) ask(_ context.Context, text string) error {
	s.mu.Lock()
	shell, target := s.shell, s.target
	s.mu.Unlock()

	out := shell.NewOutbound(text, message.Query, message.WithChatID(s.chatID))
	return shell.SendRequest(out, target)
}

func (s *session) command(line string) (quit bool) {
	switch line {
	case ":quit", ":exit":
		return true

	case ":help":
		fmt.Println(":discover  list registered agents")
		fmt.Println(":trace     show the default context's message trace and participants")
		fmt.Println(":quit      exit")

	case ":discover":
		s.mu.Lock()
		reg := s.builder.Registry
		s.mu.Unlock()
		for _, d := range reg.AgentDescriptions() {
			fmt.Printf("  %s: %s\n", d.Name, d.Description)
		}

	case ":trace":
		s.mu.Lock()
		store := s.builder.Store
		s.mu.Unlock()
		c := store.GetOrCreate(message.DefaultContextName)
		fmt.Println("participants:", c.Participants())
		for _, m := range c.Trace() {
			fmt.Printf("  [%s] %s -> %s: %s\n", m.Type(), m.Sender(), m.ContextName(), m.Payload())
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (try :help)\n", line)
	}
	return false
}
