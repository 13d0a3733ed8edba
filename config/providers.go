package config

import (
	"os"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/wiseagents/hectormesh/llm"
)

// BuildLLMResources constructs an llm.Client for every entry in
// doc.Providers and returns them keyed by ProviderSpec.Name, ready to
// drop into a Resources.LLMs map. A provider whose APIKeyEnv is unset in
// the environment is an error for every kind except "stub", which needs
// no credential (spec §8 scenario 3/4's stub provider).
func BuildLLMResources(doc *Document) (map[string]llm.Client, error) {
	out := make(map[string]llm.Client, len(doc.Providers))
	for _, p := range doc.Providers {
		client, err := buildProvider(p)
		if err != nil {
			return nil, &Error{Operation: "BuildLLMResources", Message: "provider " + p.Name, Err: err}
		}
		out[p.Name] = client
	}
	return out, nil
}

func buildProvider(p ProviderSpec) (llm.Client, error) {
	switch p.Kind {
	case "openai":
		apiKey, err := requireEnv(p.APIKeyEnv)
		if err != nil {
			return nil, err
		}
		return llm.NewOpenAIProvider(apiKey, p.Model), nil

	case "anthropic":
		apiKey, err := requireEnv(p.APIKeyEnv)
		if err != nil {
			return nil, err
		}
		maxTokens := p.MaxTokens
		if maxTokens == 0 {
			maxTokens = 4096
		}
		return llm.NewAnthropicProvider(apiKey, anthropic.Model(p.Model), maxTokens), nil

	case "stub":
		return llm.NewEchoStub(p.Model), nil

	default:
		return nil, &Error{Operation: "buildProvider", Message: "unknown provider kind " + p.Kind}
	}
}

func requireEnv(name string) (string, error) {
	if name == "" {
		return "", &Error{Operation: "requireEnv", Message: "provider declares no api_key_env"}
	}
	v := os.Getenv(name)
	if v == "" {
		return "", &Error{Operation: "requireEnv", Message: "environment variable " + name + " is not set"}
	}
	return v, nil
}
