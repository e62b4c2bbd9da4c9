package nlp

import (
	"fmt"
	"strings"

	"github.com/jeefy/recordchat/internal/models"
)

// ExampleCommands is the command catalog returned for the help intent.
var ExampleCommands = map[string][]string{
	"list": {
		"show all records",
		"what records do you have",
		"list everything",
	},
	"search": {
		"find records in Technology",
		"search for Healthcare records",
		"show records in Finance",
	},
	"analyze": {
		"show distribution of records by sector",
		"analyze records",
		"compare sectors",
	},
}

var searchStopwords = map[string]struct{}{
	"show": {}, "find": {}, "get": {}, "the": {}, "and": {}, "records": {}, "in": {},
}

const (
	unknownSector  = "unknown"
	sectorSep      = " - "
	tableThreshold = 10
)

// Processor answers chat messages that map onto a known intent.
type Processor struct {
	classifier *Classifier
}

func NewProcessor() *Processor {
	return &Processor{classifier: NewClassifier()}
}

// Process classifies msg and builds the reply from records. Unknown intents
// yield a reply without payload; callers fall back to the language model.
func (p *Processor) Process(msg string, records []models.Record) models.ChatResponse {
	intent := p.classifier.Classify(msg)
	switch intent {
	case IntentHelp:
		return models.ChatResponse{
			Success:       true,
			Message:       helpMessage(),
			Data:          ExampleCommands,
			Visualization: models.VisualizationCommands,
			Intent:        string(intent),
		}
	case IntentList:
		if records == nil {
			records = []models.Record{}
		}
		return models.ChatResponse{
			Success:       true,
			Message:       "Here are all the records:",
			Data:          records,
			Visualization: visualizationFor(intent, len(records)),
			Intent:        string(intent),
		}
	case IntentSearch:
		found := FilterRecords(records, SearchTerms(msg))
		return models.ChatResponse{
			Success:       true,
			Message:       fmt.Sprintf("Found %d matching records:", len(found)),
			Data:          found,
			Visualization: visualizationFor(intent, len(found)),
			Intent:        string(intent),
		}
	case IntentAnalyze:
		return models.ChatResponse{
			Success:       true,
			Message:       "Here is the distribution of records by sector:",
			Data:          SectorDistribution(records),
			Visualization: models.VisualizationChart,
			ChartType:     "pie",
			Intent:        string(intent),
		}
	default:
		return models.ChatResponse{
			Success: true,
			Message: "I'm not sure how to help with that. Try asking 'help' to see available commands.",
			Intent:  string(IntentUnknown),
		}
	}
}

func helpMessage() string {
	var b strings.Builder
	b.WriteString("Here are some example commands you can try:\n\n")
	sections := []struct{ title, key string }{
		{"📋 Listing Records:", "list"},
		{"🔍 Searching Records:", "search"},
		{"📊 Analyzing Records:", "analyze"},
	}
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(s.title)
		for _, cmd := range ExampleCommands[s.key] {
			fmt.Fprintf(&b, "\n• %q", cmd)
		}
	}
	return b.String()
}

// SearchTerms keeps the space-separated words of msg longer than three
// characters that are not stopwords.
func SearchTerms(msg string) []string {
	var terms []string
	for _, w := range strings.Split(strings.ToLower(msg), " ") {
		if len(w) <= 3 {
			continue
		}
		if _, stop := searchStopwords[w]; stop {
			continue
		}
		terms = append(terms, w)
	}
	return terms
}

// FilterRecords returns the records whose lowercased name and value contain
// any of terms.
func FilterRecords(records []models.Record, terms []string) []models.Record {
	out := []models.Record{}
	for _, r := range records {
		text := strings.ToLower(r.Name) + " " + strings.ToLower(r.Value)
		for _, t := range terms {
			if strings.Contains(text, t) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// SectorDistribution counts records by the segment of the name after " - ".
func SectorDistribution(records []models.Record) map[string]int {
	out := map[string]int{}
	for _, r := range records {
		sector := unknownSector
		if parts := strings.Split(r.Name, sectorSep); len(parts) > 1 {
			sector = parts[1]
		}
		out[sector]++
	}
	return out
}

func visualizationFor(intent Intent, n int) models.Visualization {
	if n == 0 {
		return models.VisualizationNone
	}
	switch intent {
	case IntentAnalyze:
		return models.VisualizationChart
	case IntentSearch:
		if n > tableThreshold {
			return models.VisualizationTable
		}
		return models.VisualizationList
	default:
		return models.VisualizationTable
	}
}
