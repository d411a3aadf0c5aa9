package agents

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalogLookup(t *testing.T) {
	c := Default()

	agent, ok := c.Lookup("Art Critic")
	if !ok {
		t.Fatal("Art Critic missing from default catalog")
	}
	if agent.BotID == "" {
		t.Error("Art Critic has no bot id")
	}
	if len(agent.Keywords) != 10 {
		t.Errorf("Art Critic has %d keywords, want 10", len(agent.Keywords))
	}

	if _, ok := c.Lookup("nobody"); ok {
		t.Error("Lookup returned an agent for an unknown title")
	}
}

func TestValidate(t *testing.T) {
	c := Default()

	tests := []struct {
		name    string
		titles  []string
		wantErr bool
	}{
		{"empty set", nil, true},
		{"known agents", []string{"Art Critic", "Painter"}, false},
		{"one unknown", []string{"Art Critic", "Sculptor"}, true},
		{"keywordless agent", []string{"VTS"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Validate(tt.titles)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%v) error = %v, wantErr %v", tt.titles, err, tt.wantErr)
			}
		})
	}
}

func TestKeywordsForUnknownAgentIsEmpty(t *testing.T) {
	if kws := Default().Keywords("nobody"); len(kws) != 0 {
		t.Errorf("unknown agent has keywords: %v", kws)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.json")
	doc := `[
		{"title": "Curator", "botId": "123", "keywords": ["展览", "策展"]},
		{"title": "Visitor", "botId": "456"}
	]`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if got := c.Titles(); len(got) != 2 {
		t.Errorf("Titles() = %v, want 2 entries", got)
	}
	agent, ok := c.Lookup("Curator")
	if !ok || agent.BotID != "123" {
		t.Errorf("Lookup(Curator) = %+v, %v", agent, ok)
	}
}

func TestLoadFileRejectsBadConfigs(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		doc  string
	}{
		{"empty list", `[]`},
		{"missing bot id", `[{"title": "Curator"}]`},
		{"not json", `{{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			if err := os.WriteFile(path, []byte(tt.doc), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFile(path); err == nil {
				t.Error("LoadFile accepted a bad config")
			}
		})
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("LoadFile accepted a missing file")
	}
}
