package scene

import (
	"image/color"
	"strings"

	"flow-studio/pkg/colorutil"
)

// Category classifies node types into the closed set the editor understands.
// The type tag itself stays a free string so documents from newer builds
// still load; anything unrecognized renders as Generic.
type Category int

const (
	CategoryGeneric Category = iota
	CategoryDataSource
	CategoryProcessor
	CategoryCondition
	CategoryOutput
)

// String returns the human-readable category name.
func (c Category) String() string {
	switch c {
	case CategoryDataSource:
		return "Data Source"
	case CategoryProcessor:
		return "Processor"
	case CategoryCondition:
		return "Condition"
	case CategoryOutput:
		return "Output"
	default:
		return "Generic"
	}
}

// Categories lists every category in palette order. Tests cross-check the
// color table against this list.
func Categories() []Category {
	return []Category{
		CategoryDataSource,
		CategoryProcessor,
		CategoryCondition,
		CategoryOutput,
		CategoryGeneric,
	}
}

// CategoryOf maps a node type tag to its category by prefix.
func CategoryOf(nodeType string) Category {
	switch {
	case strings.HasPrefix(nodeType, "DATA_SOURCE_"):
		return CategoryDataSource
	case strings.HasPrefix(nodeType, "PROCESSOR_"):
		return CategoryProcessor
	case strings.HasPrefix(nodeType, "CONDITION_"):
		return CategoryCondition
	case strings.HasPrefix(nodeType, "OUTPUT_"):
		return CategoryOutput
	default:
		return CategoryGeneric
	}
}

// categoryColors is the fixed header-bar palette, one entry per category.
var categoryColors = map[Category]color.RGBA{
	CategoryGeneric:    colorutil.Hex("#6b7280"),
	CategoryDataSource: colorutil.Hex("#22c55e"),
	CategoryProcessor:  colorutil.Hex("#6366f1"),
	CategoryCondition:  colorutil.Hex("#f59e0b"),
	CategoryOutput:     colorutil.Hex("#ec4899"),
}

// HeaderColor returns the header-bar color for the category.
func (c Category) HeaderColor() color.RGBA {
	if col, ok := categoryColors[c]; ok {
		return col
	}
	return categoryColors[CategoryGeneric]
}

// TypeInfo is one entry of the built-in node type catalog shown in the
// palette.
type TypeInfo struct {
	Type  string
	Label string
}

// catalog is the built-in node type set, in palette order.
var catalog = []TypeInfo{
	{Type: "DATA_SOURCE_API", Label: "API Source"},
	{Type: "DATA_SOURCE_FILE", Label: "File Source"},
	{Type: "DATA_SOURCE_DATABASE", Label: "Database Source"},
	{Type: "PROCESSOR_LLM", Label: "LLM Processor"},
	{Type: "PROCESSOR_TRANSFORM", Label: "Transform"},
	{Type: "PROCESSOR_FILTER", Label: "Filter"},
	{Type: "CONDITION_IF", Label: "If Condition"},
	{Type: "CONDITION_SWITCH", Label: "Switch"},
	{Type: "OUTPUT_EMAIL", Label: "Email Output"},
	{Type: "OUTPUT_WEBHOOK", Label: "Webhook Output"},
	{Type: "OUTPUT_DATABASE", Label: "Database Output"},
}

// Catalog returns the built-in node types in palette order. The returned
// slice is a copy; callers may reorder it freely.
func Catalog() []TypeInfo {
	out := make([]TypeInfo, len(catalog))
	copy(out, catalog)
	return out
}

// DisplayLabel returns the catalog label for a type tag. Tags outside the
// catalog (from imported documents) fall back to the tag itself.
func DisplayLabel(nodeType string) string {
	for _, t := range catalog {
		if t.Type == nodeType {
			return t.Label
		}
	}
	return nodeType
}
