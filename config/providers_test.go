package config

import "testing"

func TestBuildLLMResourcesStubNeedsNoCredential(t *testing.T) {
	doc := &Document{Providers: []ProviderSpec{{Name: "echo", Kind: "stub", Model: "LLM:"}}}
	clients, err := BuildLLMResources(doc)
	if err != nil {
		t.Fatalf("BuildLLMResources: %v", err)
	}
	if _, ok := clients["echo"]; !ok {
		t.Fatalf("clients missing %q", "echo")
	}
}

func TestBuildLLMResourcesMissingAPIKeyEnvIsAnError(t *testing.T) {
	doc := &Document{Providers: []ProviderSpec{{Name: "gpt", Kind: "openai", Model: "gpt-4o", APIKeyEnv: "WISEAGENTSCTL_TEST_MISSING_KEY"}}}
	if _, err := BuildLLMResources(doc); err == nil {
		t.Fatal("BuildLLMResources: want error for unset api key env var")
	}
}
