package loam

// FlowMetadata is the front matter of a flow document.
// The document body doubles as the flow description when none is set.
type FlowMetadata struct {
	ID          string         `json:"id" mapstructure:"id"`
	Name        string         `json:"name" mapstructure:"name"`
	Description string         `json:"description" mapstructure:"description"`
	Active      bool           `json:"active" mapstructure:"active"`
	Nodes       []NodeMetadata `json:"nodes" mapstructure:"nodes"`
}

// NodeMetadata is one node entry of a flow document.
//
// Branches are best written as `options` to keep their order. `to` is sugar
// for a direct transition. `next` accepts either form, but a mapping loses
// its declaration order and is read with labels sorted.
type NodeMetadata struct {
	ID       string           `json:"id" mapstructure:"id"`
	Type     string           `json:"type" mapstructure:"type"`
	Content  string           `json:"content" mapstructure:"content"`
	To       string           `json:"to" mapstructure:"to"`
	Options  []OptionMetadata `json:"options" mapstructure:"options"`
	Next     any              `json:"next" mapstructure:"next"`
	Position map[string]any   `json:"position" mapstructure:"position"`
}

// OptionMetadata is a labelled branch.
type OptionMetadata struct {
	Text string `json:"text" mapstructure:"text"`
	To   string `json:"to" mapstructure:"to"`
}
