package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeefy/recordchat/internal/cache"
	"github.com/jeefy/recordchat/internal/models"
	"github.com/jeefy/recordchat/internal/nlp"
)

// Capabilities lists what the assistant advertises when a question is off
// topic. The generation prompt repeats them.
var Capabilities = []string{
	"Searching and querying database records",
	"Analyzing record distributions",
	"Finding records by sector or category",
	"Showing data visualizations",
	"Helping with database operations",
}

var relevantKeywords = map[string]struct{}{
	"record": {}, "database": {}, "data": {}, "search": {}, "find": {}, "show": {}, "list": {},
	"analyze": {}, "sector": {}, "category": {}, "chart": {}, "distribution": {},
	"technology": {}, "healthcare": {}, "finance": {}, "education": {}, "retail": {},
}

const apologyMessage = "Sorry, I'm having trouble processing your request right now. Please try again."

// Config wires optional collaborators into an Assistant.
type Config struct {
	// Cache stores successful generations. Nil disables caching.
	Cache    cache.Cache
	CacheTTL time.Duration
	// KeyPrefix namespaces cache keys, normally by model name.
	KeyPrefix string
	Logger    *zap.Logger
}

// Assistant answers chat messages the intent processor could not handle.
type Assistant struct {
	gen   Generator
	cache cache.Cache
	ttl   time.Duration
	pfx   string
	log   *zap.Logger
}

func NewAssistant(gen Generator, cfg Config) *Assistant {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Assistant{gen: gen, cache: cfg.Cache, ttl: cfg.CacheTTL, pfx: cfg.KeyPrefix, log: log}
}

// IsRelevant reports whether msg mentions at least one database keyword.
func IsRelevant(msg string) bool {
	for _, t := range nlp.Tokenize(msg) {
		if _, ok := relevantKeywords[t]; ok {
			return true
		}
	}
	return false
}

// CapabilityMessage is the fixed reply for off-topic messages.
func CapabilityMessage() string {
	var b strings.Builder
	b.WriteString("I'm a specialized assistant that can help you with:\n\n")
	for i, c := range Capabilities {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("• " + c)
	}
	b.WriteString("\n\nPlease ask me questions related to these topics.")
	return b.String()
}

// Prompt frames msg for the model.
func Prompt(msg string) string {
	return fmt.Sprintf(`You are a database records management assistant. The user asks: %s
Context: You can help with searching records, analyzing data distributions, and visualizing data.
Keep responses focused on database operations and data analysis.
Current capabilities: %s
Response format: Keep it brief and professional.`, msg, strings.Join(Capabilities, ", "))
}

// Respond never returns an error: failures degrade to a canned apology with
// Success set to false.
func (a *Assistant) Respond(ctx context.Context, msg string) models.ChatResponse {
	if !IsRelevant(msg) {
		return models.ChatResponse{Success: true, Message: CapabilityMessage()}
	}
	key := a.cacheKey(msg)
	if a.cache != nil {
		if text, ok, err := a.cache.Get(ctx, key); err != nil {
			a.log.Warn("chat cache read failed", zap.Error(err))
		} else if ok {
			return models.ChatResponse{Success: true, Message: text}
		}
	}
	text, err := a.gen.Generate(ctx, Prompt(msg))
	if err != nil {
		a.log.Error("language model call failed", zap.Error(err))
		return models.ChatResponse{Success: false, Message: apologyMessage}
	}
	if a.cache != nil {
		if err := a.cache.Set(ctx, key, text, a.ttl); err != nil {
			a.log.Warn("chat cache write failed", zap.Error(err))
		}
	}
	return models.ChatResponse{Success: true, Message: text}
}

// cacheKey hashes the tokenized message so punctuation and case variants of
// a question share one entry.
func (a *Assistant) cacheKey(msg string) string {
	sum := sha256.Sum256([]byte(strings.Join(nlp.Tokenize(msg), " ")))
	return "chat:" + a.pfx + ":" + hex.EncodeToString(sum[:])
}
