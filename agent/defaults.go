package agent

import (
	"github.com/wiseagents/hectormesh/logging"
	"github.com/wiseagents/hectormesh/transport"
)

// DefaultErrorHandling implements ProcessEvent/ProcessError as
// log-and-continue, the default behavior spec §7 describes; concrete
// kinds embed it and override only the hooks they need to specialize.
type DefaultErrorHandling struct {
	agentName string
}

func (d DefaultErrorHandling) ProcessEvent(ev transport.Event) {
	logging.Default.Warn("transport event", "agent", d.agentName, "kind", ev.Kind, "message", ev.Message)
}

func (d DefaultErrorHandling) ProcessError(err transport.Error) {
	logging.Default.Error("transport error", "agent", d.agentName, "kind", err.Kind, "message", err.Message, "err", err.Err)
}
