package ctx

// AgentsSequence returns the ordered agent list used by SequentialCoordinator.
func (c *Context) AgentsSequence() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.agentsSequence))
	copy(out, c.agentsSequence)
	return out
}

// SetAgentsSequence replaces the ordered agent list for sequential
// coordination (spec §3's agents_sequence; one sequence per context,
// since the spec does not key it by chat).
func (c *Context) SetAgentsSequence(agents []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.agentsSequence = append([]string(nil), agents...)
}

// SetPhaseAssignments records phases (each a list of agent names) for
// chatID, sets current_phase to 0, and seeds required_agents_for_current_phase
// from phase 0.
func (c *Context) SetPhaseAssignments(chatID string, phases [][]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phaseAssignments[chatID] = phases
	c.currentPhase[chatID] = 0
	c.seedRequiredAgentsLocked(chatID, 0)
}

func (c *Context) seedRequiredAgentsLocked(chatID string, phase int) {
	phases := c.phaseAssignments[chatID]
	required := make(map[string]bool)
	if phase < len(phases) {
		for _, name := range phases[phase] {
			required[name] = true
		}
	}
	c.requiredAgents[chatID] = required
}

// PhaseAssignments returns the phase list recorded for chatID.
func (c *Context) PhaseAssignments(chatID string) [][]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	phases := c.phaseAssignments[chatID]
	out := make([][]string, len(phases))
	for i, p := range phases {
		out[i] = append([]string(nil), p...)
	}
	return out
}

// CurrentPhase returns the current phase index for chatID.
func (c *Context) CurrentPhase(chatID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentPhase[chatID]
}

// RequiredAgentsForCurrentPhase returns the agents still awaited in the
// current phase, as a snapshot slice.
func (c *Context) RequiredAgentsForCurrentPhase(chatID string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.requiredAgents[chatID]))
	for name := range c.requiredAgents[chatID] {
		out = append(out, name)
	}
	return out
}

// AckAgent removes name from required_agents_for_current_phase[chatID].
// It returns phaseEmptied=true if the set became empty as a result (the
// caller must then decide whether to advance the phase or finalize). It
// does not change current_phase; AdvancePhase does that.
func (c *Context) AckAgent(chatID, name string) (phaseEmptied bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	required := c.requiredAgents[chatID]
	if required == nil {
		return false
	}
	delete(required, name)
	return len(required) == 0
}

// AdvancePhase increments current_phase[chatID] and reseeds
// required_agents_for_current_phase from the new phase. It returns the new
// phase index and whether it is within range of the recorded phases.
func (c *Context) AdvancePhase(chatID string) (next int, inRange bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentPhase[chatID]++
	next = c.currentPhase[chatID]
	inRange = next < len(c.phaseAssignments[chatID])
	if inRange {
		c.seedRequiredAgentsLocked(chatID, next)
	}
	return next, inRange
}

// ResetPhase resets current_phase[chatID] to 0 and reseeds
// required_agents_for_current_phase from phase 0, used when a phased
// coordination round is restarted after a rephrased query (spec §4.7
// Decision step).
func (c *Context) ResetPhase(chatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentPhase[chatID] = 0
	c.seedRequiredAgentsLocked(chatID, 0)
}
