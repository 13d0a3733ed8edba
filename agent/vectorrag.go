package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wiseagents/hectormesh/ctx"
	"github.com/wiseagents/hectormesh/llm"
	"github.com/wiseagents/hectormesh/message"
	"github.com/wiseagents/hectormesh/registry"
	"github.com/wiseagents/hectormesh/transport"
	"github.com/wiseagents/hectormesh/vectorstore"
)

const ragPromptTemplate = "Answer the question based only on the following context:\n%s\nQuestion: %s\n"

// VectorRAG answers from a vector store's top-K retrieval, appending a
// Source Documents footer to the reply (spec §4.6).
type VectorRAG struct {
	*Base
	DefaultErrorHandling

	client     llm.Client
	store      vectorstore.Store
	collection string
	topK       int
}

// NewVectorRAG constructs and registers a VectorRAG agent.
func NewVectorRAG(name, description string, tr transport.Transport, reg *registry.Registry, store *ctx.Store, client llm.Client, vstore vectorstore.Store, collection string, topK int) (*VectorRAG, error) {
	base, err := NewBase(name, description, tr, reg, store)
	if err != nil {
		return nil, err
	}
	a := &VectorRAG{Base: base, DefaultErrorHandling: DefaultErrorHandling{agentName: name}, client: client, store: vstore, collection: collection, topK: topK}
	base.SetHooks(a)
	return a, nil
}

func (a *VectorRAG) ProcessRequest(msg message.Message, _ *ctx.Context) {
	results, err := a.store.Query(context.Background(), []string{msg.Payload()}, a.collection, a.topK)
	if err != nil {
		a.replyError(msg, err)
		return
	}
	var docs []vectorstore.Document
	if len(results) > 0 {
		docs = results[0]
	}

	contextText := joinVectorDocContents(docs)
	prompt := fmt.Sprintf(ragPromptTemplate, contextText, msg.Payload())

	content, err := a.client.ProcessSinglePrompt(context.Background(), prompt)
	if err != nil {
		a.replyError(msg, err)
		return
	}

	reply := content + "\n" + vectorSourceDocumentsFooter(docs)
	out := a.NewOutbound(reply, message.Response, message.WithChatID(msg.ChatID()))
	if sendErr := a.SendResponse(out, msg.Sender()); sendErr != nil {
		a.ProcessError(transport.Error{Kind: transport.KindSendFailure, Message: sendErr.Error(), Err: sendErr})
	}
}

func (a *VectorRAG) ProcessResponse(message.Message, *ctx.Context) {}

func (a *VectorRAG) replyError(msg message.Message, err error) {
	out := a.NewOutbound(err.Error(), message.Response, message.WithChatID(msg.ChatID()))
	_ = a.SendResponse(out, msg.Sender())
}

func joinVectorDocContents(docs []vectorstore.Document) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, d.Content)
	}
	return strings.Join(parts, "\n")
}

func vectorSourceDocumentsFooter(docs []vectorstore.Document) string {
	var b strings.Builder
	b.WriteString("Source Documents:\n")
	for _, d := range docs {
		metadata, _ := json.Marshal(d.Metadata)
		fmt.Fprintf(&b, "Source Document:\n    Content: %s\n    Metadata: %s\n\n", d.Content, string(metadata))
	}
	return b.String()
}
