package jobs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write jobs file: %v", err)
	}
	return file
}

func TestLoadRegistryYAML(t *testing.T) {
	file := writeFile(t, "jobs.yaml", `
jobs:
  - id: me
    action: fetch_object
    object_id: me
    params:
      fields: id,name
  - id: friends
    action: FETCH_CONNECTIONS
    object_id: me
    connection: /friends/
    fields: [id, " name ", ""]
  - id: status
    action: publish
    object_id: me
    connection: feed
    data:
      message: hello
    enabled: false
`)

	reg, err := LoadRegistry(file)
	if err != nil {
		t.Fatalf("LoadRegistry returned error: %v", err)
	}
	if got := len(reg.All()); got != 3 {
		t.Fatalf("expected 3 jobs, got %d", got)
	}
	if got := len(reg.Enabled()); got != 2 {
		t.Fatalf("expected 2 enabled jobs, got %d", got)
	}

	friends, ok := reg.ByID("friends")
	if !ok {
		t.Fatalf("expected job friends to be loaded")
	}
	if friends.Action != "fetch_connections" {
		t.Fatalf("action not normalized: %s", friends.Action)
	}
	if friends.Connection != "friends" {
		t.Fatalf("connection not trimmed: %q", friends.Connection)
	}
	if len(friends.Fields) != 2 || friends.Fields[1] != "name" {
		t.Fatalf("fields not sanitized: %#v", friends.Fields)
	}
}

func TestLoadRegistryJSON(t *testing.T) {
	file := writeFile(t, "jobs.json", `{"jobs":[{"id":"rm","action":"delete","object_id":"123"}]}`)

	reg, err := LoadRegistry(file)
	if err != nil {
		t.Fatalf("LoadRegistry returned error: %v", err)
	}
	if _, ok := reg.ByID("rm"); !ok {
		t.Fatalf("expected job rm")
	}
}

func TestLoadRegistryRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "duplicate id", content: `
jobs:
  - {id: a, action: delete, object_id: "1"}
  - {id: a, action: delete, object_id: "2"}
`},
		{name: "unknown action", content: `
jobs:
  - {id: a, action: like, object_id: "1"}
`},
		{name: "publish without data", content: `
jobs:
  - {id: a, action: publish, object_id: me, connection: feed}
`},
		{name: "post without connection", content: `
jobs:
  - {id: a, action: post, object_id: me, data: {message: hi}}
`},
		{name: "missing object", content: `
jobs:
  - {id: a, action: fetch_object}
`},
		{name: "empty", content: `jobs: []`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := writeFile(t, "jobs.yaml", tt.content)
			if _, err := LoadRegistry(file); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestStringData(t *testing.T) {
	j := Job{Data: map[string]any{"message": "hi", "count": 3, "flag": true}}
	got := j.StringData()
	if got["message"] != "hi" || got["count"] != "3" || got["flag"] != "true" {
		t.Fatalf("unexpected string data: %#v", got)
	}
}

func TestStringDataKeepsJSONNumbersPlain(t *testing.T) {
	var j Job
	if err := json.Unmarshal([]byte(`{"data":{"limit":1000000,"ratio":0.25,"big":12345678901}}`), &j); err != nil {
		t.Fatalf("unmarshal job: %v", err)
	}
	got := j.StringData()
	if got["limit"] != "1000000" || got["ratio"] != "0.25" || got["big"] != "12345678901" {
		t.Fatalf("unexpected string data: %#v", got)
	}
}
