package ctx

// AppendChatCompletion appends msg to chatCompletions[chatID]. Mutated
// only in chat-scoped critical sections, per spec §3.
func (c *Context) AppendChatCompletion(chatID string, msg ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chatCompletions[chatID] = append(c.chatCompletions[chatID], msg)
}

// ChatCompletions returns a snapshot of the chat history for chatID.
func (c *Context) ChatCompletions(chatID string) []ChatMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	hist := c.chatCompletions[chatID]
	out := make([]ChatMessage, len(hist))
	copy(out, hist)
	return out
}

// DropChatCompletions removes chatID's history entirely, used once a
// LLMWithTools chat's final reply has been sent (spec §4.5 step 3).
func (c *Context) DropChatCompletions(chatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.chatCompletions, chatID)
}

// HasChatCompletions reports whether chatID currently has history.
func (c *Context) HasChatCompletions(chatID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.chatCompletions[chatID]
	return ok
}

// SetAvailableTools replaces the tool schemas offered for chatID.
func (c *Context) SetAvailableTools(chatID string, tools []ToolSchema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.availableTools[chatID] = tools
}

// AvailableTools returns the tool schemas offered for chatID.
func (c *Context) AvailableTools(chatID string) []ToolSchema {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.availableTools[chatID]
}

// RecordToolCall adds one outstanding invocation of toolCallID to
// required_tool_calls[chatID] (spec §3's multiset).
func (c *Context) RecordToolCall(chatID, toolCallID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.requiredCalls[chatID] == nil {
		c.requiredCalls[chatID] = make(map[string]int)
	}
	c.requiredCalls[chatID][toolCallID]++
}

// ClearToolCall removes one outstanding invocation of toolCallID.
func (c *Context) ClearToolCall(chatID, toolCallID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	calls := c.requiredCalls[chatID]
	if calls == nil {
		return
	}
	if calls[toolCallID] <= 1 {
		delete(calls, toolCallID)
	} else {
		calls[toolCallID]--
	}
	if len(calls) == 0 {
		delete(c.requiredCalls, chatID)
	}
}

// ToolIdle reports whether required_tool_calls[chatID] is empty — spec
// §3's "a chat is tool-idle iff this is empty".
func (c *Context) ToolIdle(chatID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.requiredCalls[chatID]) == 0
}

// Queries returns the recorded query history for chatID (original plus
// rephrasings), used for phased-coordination iteration accounting.
func (c *Context) Queries(chatID string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	qs := c.queries[chatID]
	out := make([]string, len(qs))
	copy(out, qs)
	return out
}

// AppendQuery appends q to queries[chatID].
func (c *Context) AppendQuery(chatID, q string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries[chatID] = append(c.queries[chatID], q)
}
