package workflow

import "sort"

// Template is a named starter workflow offered by File > New from Template.
type Template struct {
	Name        string
	Description string
	Doc         Document
}

// Registry of known templates.
var templates = make(map[string]Template)

// RegisterTemplate adds a template to the registry. Later registrations
// with the same name replace earlier ones.
func RegisterTemplate(t Template) {
	templates[t.Name] = t
}

// TemplateByName returns a template by name.
func TemplateByName(name string) (Template, bool) {
	t, ok := templates[name]
	return t, ok
}

// ListTemplates returns all registered template names, sorted for stable
// menu order.
func ListTemplates() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	RegisterTemplate(emailDigestTemplate())
	RegisterTemplate(webhookRelayTemplate())
	RegisterTemplate(contentPipelineTemplate())
}

func emailDigestTemplate() Template {
	return Template{
		Name:        "Email Digest",
		Description: "Fetch from an API, summarize with an LLM, send by email.",
		Doc: Document{
			Name: "Email Digest",
			Nodes: []Node{
				{ID: "node-1", Type: "DATA_SOURCE_API", Label: "Fetch Articles",
					Position: Position{X: 80, Y: 160},
					Config:   map[string]any{"url": "https://example.com/feed"}, Enabled: true},
				{ID: "node-2", Type: "PROCESSOR_LLM", Label: "Summarize",
					Position: Position{X: 360, Y: 160},
					Config:   map[string]any{"prompt": "Summarize the following articles"}, Enabled: true},
				{ID: "node-3", Type: "OUTPUT_EMAIL", Label: "Send Digest",
					Position: Position{X: 640, Y: 160},
					Config:   map[string]any{"to": "team@example.com"}, Enabled: true},
			},
			Connections: []Connection{
				{Source: "node-1", Target: "node-2", SourceHandle: "output", TargetHandle: "input"},
				{Source: "node-2", Target: "node-3", SourceHandle: "output", TargetHandle: "input"},
			},
		},
	}
}

func webhookRelayTemplate() Template {
	return Template{
		Name:        "Webhook Relay",
		Description: "Filter incoming API data and forward it to a webhook.",
		Doc: Document{
			Name: "Webhook Relay",
			Nodes: []Node{
				{ID: "node-1", Type: "DATA_SOURCE_API", Label: "Poll Endpoint",
					Position: Position{X: 80, Y: 120},
					Config:   map[string]any{"interval": "5m"}, Enabled: true},
				{ID: "node-2", Type: "PROCESSOR_FILTER", Label: "Drop Noise",
					Position: Position{X: 360, Y: 120},
					Config:   map[string]any{"field": "status", "equals": "active"}, Enabled: true},
				{ID: "node-3", Type: "OUTPUT_WEBHOOK", Label: "Forward",
					Position: Position{X: 640, Y: 120},
					Config:   map[string]any{"url": "https://example.com/hook"}, Enabled: true},
			},
			Connections: []Connection{
				{Source: "node-1", Target: "node-2", SourceHandle: "output", TargetHandle: "input"},
				{Source: "node-2", Target: "node-3", SourceHandle: "output", TargetHandle: "input"},
			},
		},
	}
}

func contentPipelineTemplate() Template {
	return Template{
		Name:        "Content Pipeline",
		Description: "Transform a file feed and route results by condition.",
		Doc: Document{
			Name: "Content Pipeline",
			Nodes: []Node{
				{ID: "node-1", Type: "DATA_SOURCE_FILE", Label: "Watch Folder",
					Position: Position{X: 60, Y: 200},
					Config:   map[string]any{"path": "/data/incoming"}, Enabled: true},
				{ID: "node-2", Type: "PROCESSOR_TRANSFORM", Label: "Normalize",
					Position: Position{X: 330, Y: 200},
					Config:   map[string]any{}, Enabled: true},
				{ID: "node-3", Type: "CONDITION_IF", Label: "Large File?",
					Position: Position{X: 600, Y: 200},
					Config:   map[string]any{"expression": "size > 1048576"}, Enabled: true},
				{ID: "node-4", Type: "OUTPUT_DATABASE", Label: "Archive",
					Position: Position{X: 870, Y: 110},
					Config:   map[string]any{"table": "archive"}, Enabled: true},
				{ID: "node-5", Type: "OUTPUT_WEBHOOK", Label: "Notify",
					Position: Position{X: 870, Y: 290},
					Config:   map[string]any{"url": "https://example.com/notify"}, Enabled: true},
			},
			Connections: []Connection{
				{Source: "node-1", Target: "node-2", SourceHandle: "output", TargetHandle: "input"},
				{Source: "node-2", Target: "node-3", SourceHandle: "output", TargetHandle: "input"},
				{Source: "node-3", Target: "node-4", SourceHandle: "output", TargetHandle: "input"},
				{Source: "node-3", Target: "node-5", SourceHandle: "output", TargetHandle: "input"},
			},
		},
	}
}
