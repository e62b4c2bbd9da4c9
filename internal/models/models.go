package models

// Record is the single stored entity. ID is unique and never changes once
// the record exists.
type Record struct {
	ID    int64  `json:"id" bson:"id"`
	Name  string `json:"name" bson:"name"`
	Value string `json:"value" bson:"value"`
}

// Visualization hints the front-end on how to render ChatResponse.Data.
type Visualization string

const (
	VisualizationNone     Visualization = ""
	VisualizationCommands Visualization = "commands"
	VisualizationTable    Visualization = "table"
	VisualizationList     Visualization = "list"
	VisualizationChart    Visualization = "chart"
)

type ChatResponse struct {
	Success       bool          `json:"success"`
	Message       string        `json:"message"`
	Data          interface{}   `json:"data"`
	Visualization Visualization `json:"visualization,omitempty"`
	ChartType     string        `json:"chartType,omitempty"`
	Intent        string        `json:"intent,omitempty"`
}

// HasPayload reports whether the response carries data or a rendering hint.
// Responses without either are handed to the language-model fallback.
func (r ChatResponse) HasPayload() bool {
	return r.Data != nil || r.Visualization != VisualizationNone
}
