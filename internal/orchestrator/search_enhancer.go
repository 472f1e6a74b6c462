package orchestrator

import "strings"

// TokenClass is a query token's role, per spec §4.10.1.
type TokenClass string

const (
	ClassAction   TokenClass = "ACTION"
	ClassResource TokenClass = "RESOURCE"
	ClassModifier TokenClass = "MODIFIER"
)

// TokenWeights are the (nameWeight, descriptionWeight) pair a SearchEnhancer
// assigns a classified token.
type TokenWeights struct {
	NameWeight float64
	DescWeight float64
}

// SearchEnhancer is the external collaborator spec §4.10.1 names: it
// classifies query tokens and supplies the semantic knowledge the
// term-frequency boost needs (synonyms, conflicting-intent penalties).
type SearchEnhancer interface {
	Classify(token string) (TokenClass, TokenWeights)
	ActionSemantics(token string) []string
	IntentPenalty(token, candidateName string) float64
}

// tableSearchEnhancer is a reference SearchEnhancer driven by small,
// hand-curated tables — adequate to exercise the boost algorithm without a
// real NLP/embedding dependency, which spec §1 excludes from this module's
// scope (DiscoveryEngine, not SearchEnhancer, is the named black box; this
// interface still needs a concrete instance to run end to end).
type tableSearchEnhancer struct{}

// NewTableSearchEnhancer returns the reference SearchEnhancer.
func NewTableSearchEnhancer() SearchEnhancer { return tableSearchEnhancer{} }

var actionVerbs = map[string]bool{
	"create": true, "add": true, "delete": true, "remove": true, "update": true,
	"list": true, "get": true, "fetch": true, "read": true, "write": true,
	"search": true, "find": true, "run": true, "execute": true, "send": true,
	"start": true, "stop": true, "restart": true, "build": true, "deploy": true,
	"install": true, "uninstall": true, "query": true, "edit": true, "open": true,
	"close": true, "cancel": true, "schedule": true, "pause": true, "resume": true,
}

var modifierWords = map[string]bool{
	"all": true, "only": true, "new": true, "old": true, "active": true,
	"recent": true, "latest": true, "current": true, "every": true, "first": true,
	"last": true, "quick": true, "async": true, "sync": true,
}

var actionSynonyms = map[string][]string{
	"create": {"add", "make", "new"},
	"add":    {"create", "insert"},
	"delete": {"remove", "erase"},
	"remove": {"delete", "erase"},
	"update": {"edit", "modify", "change"},
	"get":    {"fetch", "read", "retrieve"},
	"fetch":  {"get", "retrieve"},
	"list":   {"enumerate", "show"},
	"find":   {"search", "locate"},
	"search": {"find", "query"},
	"run":    {"execute", "invoke"},
	"stop":   {"halt", "cancel"},
	"start":  {"begin", "launch"},
}

// conflictingActions pairs actions whose presence in a candidate's name
// signals the wrong tool for the opposite intent (e.g. a "delete" tool
// matched by a "create" query).
var conflictingActions = map[string][]string{
	"create": {"delete", "remove"},
	"delete": {"create", "add"},
	"remove": {"create", "add"},
	"add":    {"delete", "remove"},
	"start":  {"stop"},
	"stop":   {"start"},
}

func (tableSearchEnhancer) Classify(token string) (TokenClass, TokenWeights) {
	switch {
	case actionVerbs[token]:
		return ClassAction, TokenWeights{NameWeight: 0.15, DescWeight: 0.075}
	case modifierWords[token]:
		return ClassModifier, TokenWeights{NameWeight: 0.05, DescWeight: 0.025}
	default:
		return ClassResource, TokenWeights{NameWeight: 0.15, DescWeight: 0.075}
	}
}

func (tableSearchEnhancer) ActionSemantics(token string) []string {
	return actionSynonyms[token]
}

func (tableSearchEnhancer) IntentPenalty(token, candidateName string) float64 {
	conflicts, ok := conflictingActions[token]
	if !ok {
		return 0
	}
	lowered := strings.ToLower(candidateName)
	for _, conflict := range conflicts {
		if strings.Contains(lowered, conflict) {
			return 0.1
		}
	}
	return 0
}
