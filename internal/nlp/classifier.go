package nlp

import (
	"strings"
	"unicode"

	"github.com/jbrukh/bayesian"
)

// Intent is the coarse category of a chat message.
type Intent string

const (
	IntentHelp    Intent = "help"
	IntentList    Intent = "list"
	IntentSearch  Intent = "search"
	IntentAnalyze Intent = "analyze"
	IntentUnknown Intent = "unknown"
)

// trainingCorpus maps example phrases to the intent they illustrate.
var trainingCorpus = []struct {
	phrase string
	intent Intent
}{
	{"help", IntentHelp},
	{"what can you do", IntentHelp},
	{"show commands", IntentHelp},
	{"show examples", IntentHelp},
	{"available commands", IntentHelp},
	{"how to use", IntentHelp},

	{"what records do you have", IntentList},
	{"show all records", IntentList},
	{"display records", IntentList},
	{"get all records", IntentList},
	{"list everything", IntentList},

	{"find record", IntentSearch},
	{"search for", IntentSearch},
	{"look up", IntentSearch},
	{"find records in", IntentSearch},
	{"show records in", IntentSearch},
	{"get records from", IntentSearch},
	{"search in sector", IntentSearch},

	{"show statistics", IntentAnalyze},
	{"analyze records", IntentAnalyze},
	{"show distribution", IntentAnalyze},
	{"compare sectors", IntentAnalyze},
}

var intents = []Intent{IntentHelp, IntentList, IntentSearch, IntentAnalyze}

// functionWords occur in the training phrases but say nothing about intent.
// A message needs at least one other known token before it is classified.
var functionWords = map[string]struct{}{
	"what": {}, "can": {}, "you": {}, "do": {}, "how": {}, "to": {}, "have": {},
	"in": {}, "for": {}, "from": {}, "up": {}, "all": {}, "everything": {},
}

// Tokenize lowercases s and splits it on every rune that is not a letter or
// a digit.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Classifier assigns an Intent to a message. It is trained once in
// NewClassifier and only read afterwards, so it is safe for concurrent use.
type Classifier struct {
	bayes *bayesian.Classifier
	vocab map[string]struct{}
	// phrases maps each tokenized training phrase to its intent.
	phrases map[string]Intent
}

func NewClassifier() *Classifier {
	classes := make([]bayesian.Class, len(intents))
	for i, in := range intents {
		classes[i] = bayesian.Class(in)
	}
	c := &Classifier{
		bayes:   bayesian.NewClassifier(classes...),
		vocab:   make(map[string]struct{}),
		phrases: make(map[string]Intent, len(trainingCorpus)),
	}
	for _, ex := range trainingCorpus {
		toks := Tokenize(ex.phrase)
		c.phrases[strings.Join(toks, " ")] = ex.intent
		c.bayes.Learn(toks, bayesian.Class(ex.intent))
		for _, t := range toks {
			c.vocab[t] = struct{}{}
		}
	}
	return c
}

// Classify returns the intent of a training phrase repeated verbatim.
// Otherwise it returns IntentUnknown unless msg contains a known token that
// is not a function word; the bayes scores would just echo the class priors.
func (c *Classifier) Classify(msg string) Intent {
	toks := Tokenize(msg)
	if in, ok := c.phrases[strings.Join(toks, " ")]; ok {
		return in
	}
	known := make([]string, 0, len(toks))
	content := false
	for _, t := range toks {
		if _, ok := c.vocab[t]; !ok {
			continue
		}
		known = append(known, t)
		if _, fw := functionWords[t]; !fw {
			content = true
		}
	}
	if !content {
		return IntentUnknown
	}
	_, idx, _ := c.bayes.LogScores(known)
	return Intent(c.bayes.Classes[idx])
}
