package panels

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"flow-studio/internal/app"
	"flow-studio/internal/scene"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// Properties edits the selected node: label, enabled flag and the free
// form config map. The type and id are shown read-only. Every submitted
// edit lands as one history entry via the state mutators.
type Properties struct {
	state     *app.State
	container fyne.CanvasObject

	empty  *widget.Label
	detail *fyne.Container

	typeLabel    *widget.Label
	idLabel      *widget.Label
	labelEntry   *widget.Entry
	enabledCheck *widget.Check

	configRows *fyne.Container
	keyEntry   *widget.Entry
	valueEntry *widget.Entry
}

// NewProperties creates the properties panel.
func NewProperties(state *app.State) *Properties {
	p := &Properties{state: state}

	p.empty = widget.NewLabel("No node selected")
	p.typeLabel = widget.NewLabel("")
	p.idLabel = widget.NewLabel("")

	p.labelEntry = widget.NewEntry()
	p.labelEntry.OnSubmitted = func(text string) {
		p.state.SetNodeLabel(p.state.Selection(), text)
	}

	p.enabledCheck = widget.NewCheck("Enabled", func(checked bool) {
		p.state.SetNodeEnabled(p.state.Selection(), checked)
	})

	p.configRows = container.NewVBox()
	p.keyEntry = widget.NewEntry()
	p.keyEntry.SetPlaceHolder("key")
	p.valueEntry = widget.NewEntry()
	p.valueEntry.SetPlaceHolder("value")
	p.valueEntry.OnSubmitted = func(string) { p.addConfigEntry() }
	addButton := widget.NewButton("Add", p.addConfigEntry)

	p.detail = container.NewVBox(
		widget.NewCard("Node", "", container.NewVBox(
			p.typeLabel,
			p.idLabel,
			widget.NewLabel("Label:"),
			p.labelEntry,
			p.enabledCheck,
		)),
		widget.NewCard("Config", "", container.NewVBox(
			p.configRows,
			container.NewBorder(nil, nil, nil, addButton,
				container.NewGridWithColumns(2, p.keyEntry, p.valueEntry)),
		)),
	)

	p.container = container.NewVScroll(container.NewVBox(p.empty, p.detail))

	state.On(app.EventSelectionChanged, func(_ any) { p.refresh() })
	state.On(app.EventSceneChanged, func(_ any) { p.refresh() })
	state.On(app.EventWorkflowLoaded, func(_ any) { p.refresh() })

	p.refresh()
	return p
}

// Container returns the panel container.
func (p *Properties) Container() fyne.CanvasObject {
	return p.container
}

func (p *Properties) refresh() {
	n := p.state.Scene().FindNode(p.state.Selection())
	if n == nil {
		p.detail.Hide()
		p.empty.Show()
		return
	}
	p.empty.Hide()
	p.detail.Show()

	p.typeLabel.SetText("Type: " + scene.DisplayLabel(n.Type))
	p.idLabel.SetText("ID: " + n.ID)
	if p.labelEntry.Text != n.Label {
		p.labelEntry.SetText(n.Label)
	}
	p.enabledCheck.SetChecked(n.Enabled)
	p.rebuildConfig(n)
}

func (p *Properties) rebuildConfig(n *scene.Node) {
	p.configRows.Objects = nil
	keys := make([]string, 0, len(n.Config))
	for k := range n.Config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p.configRows.Add(p.configRow(n.ID, k, n.Config[k]))
	}
	p.configRows.Refresh()
}

func (p *Properties) configRow(id, key string, value any) fyne.CanvasObject {
	entry := widget.NewEntry()
	entry.SetText(formatConfigValue(value))
	entry.OnSubmitted = func(text string) {
		p.state.SetNodeConfig(id, key, parseConfigValue(text))
	}
	remove := widget.NewButton("✕", func() {
		p.state.DeleteNodeConfig(id, key)
	})
	return container.NewBorder(nil, nil, widget.NewLabel(key), remove, entry)
}

func (p *Properties) addConfigEntry() {
	id := p.state.Selection()
	key := strings.TrimSpace(p.keyEntry.Text)
	if id == "" || key == "" {
		return
	}
	p.state.SetNodeConfig(id, key, parseConfigValue(p.valueEntry.Text))
	p.keyEntry.SetText("")
	p.valueEntry.SetText("")
}

// parseConfigValue maps entry text onto the JSON scalar types a document
// can carry: bools, numbers, strings.
func parseConfigValue(text string) any {
	switch text {
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f
	}
	return text
}

func formatConfigValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		// Imported documents may carry nested values; show them opaquely.
		return fmt.Sprint(v)
	}
}
