package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/wiseagents/hectormesh/ctx"
	"github.com/wiseagents/hectormesh/llm"
	"github.com/wiseagents/hectormesh/message"
	"github.com/wiseagents/hectormesh/registry"
	"github.com/wiseagents/hectormesh/transport"
)

// Defaults for PhasedCoordinator, overridable per instance (spec §9).
const (
	DefaultConfidenceScoreThreshold    = 85
	DefaultMaxIterationsForCoordinator = 5
)

// CannotAnswerMessage is returned when a PhasedCoordinator exhausts its
// iteration budget without reaching the confidence threshold.
const CannotAnswerMessage = "I don't know the answer to the query."

// DefaultPhaseNames labels the two phases used when a deployment does not
// name its own (spec §9).
var DefaultPhaseNames = []string{"Data Collection", "Data Analysis"}

// PhasedCoordinator runs the five-state phased coordination protocol of
// spec §4.7: Planning, Phase execution, Phase completion, Finalization,
// Decision. Planning asks the coordinator's own LLM, seeded with the
// registry's full agent directory, to pick the agents the query needs and
// bucket them into the configured phases; Finalization and the rephrase
// step read back the shared chat history the phase's Collaborators wrote
// into, via the same chat_id, so the coordinator sees what they produced.
type PhasedCoordinator struct {
	*Base
	DefaultErrorHandling

	client              llm.Client
	phaseNames          []string
	confidenceThreshold int
	maxIterations       int

	mu     sync.Mutex
	origin map[string]string // chat_id -> original requester
}

// NewPhasedCoordinator constructs and registers a PhasedCoordinator.
// confidenceThreshold and maxIterations of 0 fall back to the package
// defaults; a nil or empty phaseNames falls back to DefaultPhaseNames.
func NewPhasedCoordinator(name, description string, tr transport.Transport, reg *registry.Registry, store *ctx.Store, client llm.Client, phaseNames []string, confidenceThreshold, maxIterations int) (*PhasedCoordinator, error) {
	base, err := NewBase(name, description, tr, reg, store)
	if err != nil {
		return nil, err
	}
	if confidenceThreshold == 0 {
		confidenceThreshold = DefaultConfidenceScoreThreshold
	}
	if maxIterations == 0 {
		maxIterations = DefaultMaxIterationsForCoordinator
	}
	if len(phaseNames) == 0 {
		phaseNames = DefaultPhaseNames
	}
	a := &PhasedCoordinator{
		Base:                 base,
		DefaultErrorHandling: DefaultErrorHandling{agentName: name},
		client:               client,
		phaseNames:           append([]string(nil), phaseNames...),
		confidenceThreshold:  confidenceThreshold,
		maxIterations:        maxIterations,
		origin:               make(map[string]string),
	}
	base.SetHooks(a)
	return a, nil
}

// ProcessRequest is the Planning state: record the query, ask the LLM to
// select and bucket the agents the query needs, and dispatch phase 0.
func (a *PhasedCoordinator) ProcessRequest(msg message.Message, c *ctx.Context) {
	chatID := msg.ChatID()
	if chatID == "" {
		chatID = uuid.NewString()
	}

	a.mu.Lock()
	a.origin[chatID] = msg.Sender()
	a.mu.Unlock()

	query := msg.Payload()
	c.AppendQuery(chatID, query)

	phases, err := a.planPhases(c, chatID, query)
	if err != nil {
		a.respondError(c, chatID, err)
		return
	}

	c.SetPhaseAssignments(chatID, phases)
	a.dispatchCurrentPhase(c, chatID)
}

// planPhases is the Planning state's two-prompt sequence (spec §4.7): ask
// the LLM which registered agents the query needs, seeded with
// Registry.AgentDescriptions(), then ask it to bucket the selected agents
// into a.phaseNames. Both turns are appended to the chat's shared history,
// the same history Finalization later reads back.
func (a *PhasedCoordinator) planPhases(c *ctx.Context, chatID, query string) ([][]string, error) {
	goCtx := context.Background()

	var agentList strings.Builder
	for _, d := range a.Registry().AgentDescriptions() {
		fmt.Fprintf(&agentList, "%s: %s\n", d.Name, d.Description)
	}

	selectionPrompt := "Given the following query and a description of the agents that are available," +
		" determine all of the agents that could be required to solve the query." +
		" Format the response as a space separated list of agent names and don't include" +
		" anything else in the response.\n" +
		"Query: " + query + "\n" + "Available agents:\n" + agentList.String()
	c.AppendChatCompletion(chatID, ctx.ChatMessage{Role: ctx.RoleUser, Content: selectionPrompt})
	selection, err := a.client.ProcessChatCompletion(goCtx, c.ChatCompletions(chatID), nil)
	if err != nil {
		return nil, err
	}
	c.AppendChatCompletion(chatID, ctx.ChatMessage{Role: ctx.RoleAssistant, Content: selection.Content})

	assignmentPrompt := "Assign each of the agents that will be required to solve the query to one of the following phases:\n" +
		strings.Join(a.phaseNames, ", ") + "\n" +
		"Assume that agents within a phase will be executed in parallel." +
		" Format the response as a space separated list of agents for each phase, where the first" +
		" line contains the list of agents for the first phase and second line contains the list of" +
		" agents for the second phase and so on. Don't include anything else in the response.\n"
	c.AppendChatCompletion(chatID, ctx.ChatMessage{Role: ctx.RoleUser, Content: assignmentPrompt})
	assignment, err := a.client.ProcessChatCompletion(goCtx, c.ChatCompletions(chatID), nil)
	if err != nil {
		return nil, err
	}
	c.AppendChatCompletion(chatID, ctx.ChatMessage{Role: ctx.RoleAssistant, Content: assignment.Content})

	return parsePhaseAssignments(assignment.Content), nil
}

// parsePhaseAssignments splits the model's phase-assignment reply into one
// agent-name list per line, one line per phase.
func parsePhaseAssignments(content string) [][]string {
	lines := strings.Split(strings.TrimSpace(content), "\n")
	phases := make([][]string, 0, len(lines))
	for _, line := range lines {
		phases = append(phases, strings.Fields(line))
	}
	return phases
}

// dispatchCurrentPhase is the Phase execution state: send the latest query
// to every agent still required in the current phase.
func (a *PhasedCoordinator) dispatchCurrentPhase(c *ctx.Context, chatID string) {
	required := c.RequiredAgentsForCurrentPhase(chatID)
	if len(required) == 0 {
		a.finalizeRound(c, chatID)
		return
	}
	queries := c.Queries(chatID)
	query := queries[len(queries)-1]
	for _, agentName := range required {
		out := a.NewOutbound(query, message.Query, message.WithChatID(chatID))
		if err := a.SendRequest(out, agentName); err != nil {
			a.ProcessError(transport.Error{Kind: transport.KindSendFailure, Message: err.Error(), Err: err})
		}
	}
}

// ProcessResponse handles a phase participant's ACK. Anything else is a
// protocol violation and does not advance the phase (spec §4.7).
func (a *PhasedCoordinator) ProcessResponse(msg message.Message, c *ctx.Context) {
	if msg.Type() != message.Ack {
		a.ProcessError(transport.Error{Kind: transport.KindDecodeFailure, Message: "expected ACK during phase execution, got " + string(msg.Type())})
		return
	}

	chatID := msg.ChatID()
	if emptied := c.AckAgent(chatID, msg.Sender()); !emptied {
		return
	}

	// Phase completion: advance or finalize.
	if next, inRange := c.AdvancePhase(chatID); inRange {
		_ = next
		a.dispatchCurrentPhase(c, chatID)
		return
	}
	a.finalizeRound(c, chatID)
}

// finalizeRound is the Finalization and Decision states: ask the LLM for
// the final answer plus a confidence score against the chat's accumulated
// history (the same history Collaborators appended to during phase
// execution), and either respond, rephrase and restart, or give up with
// CannotAnswerMessage once max_iterations is exhausted.
func (a *PhasedCoordinator) finalizeRound(c *ctx.Context, chatID string) {
	goCtx := context.Background()
	queries := c.Queries(chatID)

	finalPrompt := "What is the final answer for the original query? Provide the answer followed" +
		" by a confidence score from 0 to 100 to indicate how certain you are of the" +
		" answer. Format the response with just the answer first followed by just" +
		" the confidence score on the next line. For example:\n" +
		"Your answer goes here.\n" +
		"85\n"
	c.AppendChatCompletion(chatID, ctx.ChatMessage{Role: ctx.RoleUser, Content: finalPrompt})
	completion, err := a.client.ProcessChatCompletion(goCtx, c.ChatCompletions(chatID), nil)
	if err != nil {
		a.respondError(c, chatID, err)
		return
	}
	c.AppendChatCompletion(chatID, ctx.ChatMessage{Role: ctx.RoleAssistant, Content: completion.Content})

	answer, score := splitAnswerAndScore(completion.Content)

	if score >= a.confidenceThreshold {
		a.respond(c, chatID, message.Response, answer)
		return
	}

	if len(queries) >= a.maxIterations {
		a.respond(c, chatID, message.CannotAnswer, CannotAnswerMessage)
		return
	}

	rephrasePrompt := "The final answer was not considered good enough to respond to the original query.\n" +
		" The original query was: " + queries[0] + "\n" +
		" Your task is to analyze the original query for its intent along with the conversation" +
		" history and final answer to rephrase the original query to yield a better final answer." +
		" The response should contain only the rephrased query." +
		" Don't include anything else in the response.\n"
	c.AppendChatCompletion(chatID, ctx.ChatMessage{Role: ctx.RoleUser, Content: rephrasePrompt})
	rephrased, err := a.client.ProcessChatCompletion(goCtx, c.ChatCompletions(chatID), nil)
	if err != nil {
		a.respondError(c, chatID, err)
		return
	}
	c.AppendChatCompletion(chatID, ctx.ChatMessage{Role: ctx.RoleAssistant, Content: rephrased.Content})

	c.AppendQuery(chatID, rephrased.Content)
	c.ResetPhase(chatID)
	a.dispatchCurrentPhase(c, chatID)
}

// splitAnswerAndScore parses the model's "answer\n...\nscore" reply: the
// last non-empty line as a base-10 integer confidence score (0 if not
// numeric, spec §4.7), and everything before it as the answer text.
func splitAnswerAndScore(content string) (answer string, score int) {
	lines := strings.Split(content, "\n")
	last := len(lines) - 1
	for last >= 0 && strings.TrimSpace(lines[last]) == "" {
		last--
	}
	if last < 0 {
		return "", 0
	}
	if n, err := strconv.Atoi(strings.TrimSpace(lines[last])); err == nil {
		score = n
	}
	answer = strings.TrimSpace(strings.Join(lines[:last], "\n"))
	return answer, score
}

func (a *PhasedCoordinator) respond(c *ctx.Context, chatID string, msgType message.Type, content string) {
	a.mu.Lock()
	sender, ok := a.origin[chatID]
	delete(a.origin, chatID)
	a.mu.Unlock()
	if !ok {
		return
	}
	out := a.NewOutbound(content, msgType, message.WithChatID(chatID))
	if err := a.SendResponse(out, sender); err != nil {
		a.ProcessError(transport.Error{Kind: transport.KindSendFailure, Message: err.Error(), Err: err})
	}
	_ = c
}

func (a *PhasedCoordinator) respondError(c *ctx.Context, chatID string, err error) {
	a.respond(c, chatID, message.Response, err.Error())
}
