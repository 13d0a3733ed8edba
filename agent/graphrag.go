package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wiseagents/hectormesh/ctx"
	"github.com/wiseagents/hectormesh/graphstore"
	"github.com/wiseagents/hectormesh/llm"
	"github.com/wiseagents/hectormesh/message"
	"github.com/wiseagents/hectormesh/registry"
	"github.com/wiseagents/hectormesh/transport"
)

// GraphRAG has the same shape as VectorRAG, but retrieves from a
// graphstore.Store via QueryWithEmbeddings; an optional retrieval query
// template is applied server-side (spec §4.6).
type GraphRAG struct {
	*Base
	DefaultErrorHandling

	client         llm.Client
	store          graphstore.Store
	topK           int
	retrievalQuery string
}

// NewGraphRAG constructs and registers a GraphRAG agent.
func NewGraphRAG(name, description string, tr transport.Transport, reg *registry.Registry, ctxStore *ctx.Store, client llm.Client, gstore graphstore.Store, topK int, retrievalQuery string) (*GraphRAG, error) {
	base, err := NewBase(name, description, tr, reg, ctxStore)
	if err != nil {
		return nil, err
	}
	a := &GraphRAG{Base: base, DefaultErrorHandling: DefaultErrorHandling{agentName: name}, client: client, store: gstore, topK: topK, retrievalQuery: retrievalQuery}
	base.SetHooks(a)
	return a, nil
}

func (a *GraphRAG) ProcessRequest(msg message.Message, _ *ctx.Context) {
	docs, err := a.store.QueryWithEmbeddings(context.Background(), msg.Payload(), a.topK, a.retrievalQuery)
	if err != nil {
		a.replyError(msg, err)
		return
	}

	contextText := joinGraphDocContents(docs)
	prompt := fmt.Sprintf(ragPromptTemplate, contextText, msg.Payload())

	content, err := a.client.ProcessSinglePrompt(context.Background(), prompt)
	if err != nil {
		a.replyError(msg, err)
		return
	}

	reply := content + "\n" + graphSourceDocumentsFooter(docs)
	out := a.NewOutbound(reply, message.Response, message.WithChatID(msg.ChatID()))
	if sendErr := a.SendResponse(out, msg.Sender()); sendErr != nil {
		a.ProcessError(transport.Error{Kind: transport.KindSendFailure, Message: sendErr.Error(), Err: sendErr})
	}
}

func (a *GraphRAG) ProcessResponse(message.Message, *ctx.Context) {}

func (a *GraphRAG) replyError(msg message.Message, err error) {
	out := a.NewOutbound(err.Error(), message.Response, message.WithChatID(msg.ChatID()))
	_ = a.SendResponse(out, msg.Sender())
}

func joinGraphDocContents(docs []graphstore.Document) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, d.Content)
	}
	return strings.Join(parts, "\n")
}

func graphSourceDocumentsFooter(docs []graphstore.Document) string {
	var b strings.Builder
	b.WriteString("Source Documents:\n")
	for _, d := range docs {
		metadata, _ := json.Marshal(d.Metadata)
		fmt.Fprintf(&b, "Source Document:\n    Content: %s\n    Metadata: %s\n\n", d.Content, string(metadata))
	}
	return b.String()
}
