package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/wiseagents/hectormesh/ctx"
	"github.com/wiseagents/hectormesh/llm"
	"github.com/wiseagents/hectormesh/message"
	"github.com/wiseagents/hectormesh/registry"
	"github.com/wiseagents/hectormesh/transport"
	"github.com/wiseagents/hectormesh/vectorstore"
)

// CoVeError reports that the model's revised-answer turn did not match
// the expected `{'revised': '...'}` structured shape (spec §9 open
// question (b): treated as an error surfaced upstream, never silently
// passed through).
type CoVeError struct {
	Raw string
}

func (e *CoVeError) Error() string {
	return fmt.Sprintf("chain-of-verification: model did not return the expected {'revised': '...'} shape: %q", e.Raw)
}

var revisedShape = regexp.MustCompile(`(?s)^\{'revised':\s*'(.*)'\}$`)

// CoVeChallenger implements Chain-of-Verification (arXiv 2309.11495,
// spec §4.6) over an inbound question-plus-baseline-answer: generate N
// verification questions, answer each independently against the vector
// store, then ask for a revised answer in the exact `{'revised': '...'}`
// shape.
type CoVeChallenger struct {
	*Base
	DefaultErrorHandling

	client                llm.Client
	store                 vectorstore.Store
	collection            string
	verificationQuestions int
}

// NewCoVeChallenger constructs and registers a CoVeChallenger agent.
func NewCoVeChallenger(name, description string, tr transport.Transport, reg *registry.Registry, ctxStore *ctx.Store, client llm.Client, vstore vectorstore.Store, collection string, verificationQuestions int) (*CoVeChallenger, error) {
	base, err := NewBase(name, description, tr, reg, ctxStore)
	if err != nil {
		return nil, err
	}
	a := &CoVeChallenger{
		Base:                  base,
		DefaultErrorHandling:  DefaultErrorHandling{agentName: name},
		client:                client,
		store:                 vstore,
		collection:            collection,
		verificationQuestions: verificationQuestions,
	}
	base.SetHooks(a)
	return a, nil
}

// ProcessRequest expects msg's payload to already be the question and its
// baseline answer combined (spec §4.6: CoVeChallenger is invoked "given a
// question plus a baseline answer"), exactly as the original treats its
// whole message argument as that combined text. A RAG agent's answer can
// therefore feed straight into this agent without CoVe silently discarding
// and re-deriving its own baseline.
func (a *CoVeChallenger) ProcessRequest(msg message.Message, _ *ctx.Context) {
	goCtx := context.Background()
	questionAndBaseline := msg.Payload()

	questionsPrompt := fmt.Sprintf(
		"Given the following question and baseline response, generate a list of %d verification questions that could help determine if there are any mistakes in the baseline response:\n%s\nYour response should contain only the list of questions, one per line.\n",
		a.verificationQuestions, questionAndBaseline)
	questionsText, err := a.client.ProcessSinglePrompt(goCtx, questionsPrompt)
	if err != nil {
		a.replyError(msg, err)
		return
	}
	verificationQuestions := splitNonEmptyLines(questionsText)

	var verificationResults strings.Builder
	for _, vq := range verificationQuestions {
		results, err := a.store.Query(goCtx, []string{vq}, a.collection, 1)
		if err != nil {
			a.replyError(msg, err)
			return
		}
		var docContent string
		if len(results) > 0 && len(results[0]) > 0 {
			docContent = results[0][0].Content
		}
		answerPrompt := fmt.Sprintf(ragPromptTemplate, docContent, vq)
		answer, err := a.client.ProcessSinglePrompt(goCtx, answerPrompt)
		if err != nil {
			a.replyError(msg, err)
			return
		}
		fmt.Fprintf(&verificationResults, "Verification Question: %s\nVerification Result: %s\n", vq, answer)
	}

	completeInfo := questionAndBaseline + "\n" + verificationResults.String()
	revisePrompt := fmt.Sprintf(
		"Given the following question, baseline response, and a list of verification questions and results, generate a revised response incorporating the verification results:\n%s\nYour response must contain only the revised response to the question in the JSON format shown below:\n{'revised': 'Your revised response to the question.'}\n",
		completeInfo)
	revisedRaw, err := a.client.ProcessSinglePrompt(goCtx, revisePrompt)
	if err != nil {
		a.replyError(msg, err)
		return
	}

	trimmed := strings.TrimSpace(revisedRaw)
	match := revisedShape.FindStringSubmatch(trimmed)
	if match == nil {
		a.replyError(msg, &CoVeError{Raw: trimmed})
		return
	}

	out := a.NewOutbound(match[1], message.Response, message.WithChatID(msg.ChatID()))
	if sendErr := a.SendResponse(out, msg.Sender()); sendErr != nil {
		a.ProcessError(transport.Error{Kind: transport.KindSendFailure, Message: sendErr.Error(), Err: sendErr})
	}
}

func (a *CoVeChallenger) ProcessResponse(message.Message, *ctx.Context) {}

func (a *CoVeChallenger) replyError(msg message.Message, err error) {
	out := a.NewOutbound(err.Error(), message.Response, message.WithChatID(msg.ChatID()))
	_ = a.SendResponse(out, msg.Sender())
}

func splitNonEmptyLines(text string) []string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}
