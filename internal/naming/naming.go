// Package naming implements the model-name policy applied whenever a raw model
// or type name is surfaced into a generated script.
package naming

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultReservedWords are identifiers a LoadRunner C script already defines.
// A model normalized to one of them is escaped.
var DefaultReservedWords = []string{
	"Action",
	"vuser_init",
	"vuser_end",
	"web_custom_request",
	"web_url",
	"web_submit_data",
	"web_reg_save_param",
	"web_set_max_html_param_len",
	"lr_start_transaction",
	"lr_end_transaction",
	"lr_eval_string",
	"lr_save_string",
	"lr_output_message",
	"lr_think_time",
	"BaseURL",
}

// Normalizer applies capitalization and reserved-word escaping. It is safe for
// concurrent use.
type Normalizer struct {
	reserved map[string]struct{}
}

// New returns a Normalizer escaping the given reserved words. A nil slice uses
// DefaultReservedWords; an empty non-nil slice disables escaping.
func New(reserved []string) *Normalizer {
	if reserved == nil {
		reserved = DefaultReservedWords
	}
	n := &Normalizer{
		reserved: make(map[string]struct{}, len(reserved)),
	}
	for _, w := range reserved {
		if w = strings.TrimSpace(w); w != "" {
			n.reserved[w] = struct{}{}
		}
	}
	return n
}

// ModelName camelizes name on separators, capitalizes every segment and
// prefixes an underscore when the result is reserved.
// Example: "order_item" -> "OrderItem", "action" -> "_Action".
func (n *Normalizer) ModelName(name string) string {
	out := n.camelize(name)
	if n.IsReserved(out) || n.IsReserved(name) {
		return EscapeReservedWord(out)
	}
	return out
}

// IsReserved reports whether word is in the reserved set.
func (n *Normalizer) IsReserved(word string) bool {
	_, ok := n.reserved[word]
	return ok
}

// EscapeReservedWord prefixes an underscore.
func EscapeReservedWord(word string) string {
	return "_" + word
}

func (n *Normalizer) camelize(name string) string {
	parts := strings.FieldsFunc(strings.TrimSpace(name), func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || r == '/' || unicode.IsSpace(r)
	})
	if len(parts) == 0 {
		return ""
	}
	// Casers carry state and are not shared between goroutines.
	title := cases.Title(language.English, cases.NoLower)
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(title.String(p))
	}
	return b.String()
}
