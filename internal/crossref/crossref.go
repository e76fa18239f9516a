package crossref

import (
	"regexp"
	"strings"

	"github.com/nhle/notification-engine/internal/model"
)

// entityCodePattern matches entity codes such as PRJ-104, TSK-9 or DOC-12.
var entityCodePattern = regexp.MustCompile(`\b(PRJ|TSK|DOC)-(\d+)\b`)

// prefixTypes maps a code prefix to the entity type it references.
var prefixTypes = map[string]model.EntityType{
	"PRJ": model.EntityProject,
	"TSK": model.EntityTask,
	"DOC": model.EntityDocument,
}

// Ref is a reference to a business entity found in free text.
type Ref struct {
	ID   string
	Type model.EntityType
}

// ExtractRefs extracts all entity codes from text, case-insensitively.
// Returns a deduplicated list preserving the order of first occurrence.
func ExtractRefs(text string) []Ref {
	matches := entityCodePattern.FindAllStringSubmatch(strings.ToUpper(text), -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var result []Ref
	for _, m := range matches {
		if seen[m[0]] {
			continue
		}
		seen[m[0]] = true
		result = append(result, Ref{ID: m[0], Type: prefixTypes[m[1]]})
	}
	return result
}

// FirstRef returns the most specific reference across the given texts:
// a task beats a document, which beats a project. Texts are scanned in
// order so a subject line wins ties over the body.
func FirstRef(texts ...string) (Ref, bool) {
	rank := map[model.EntityType]int{
		model.EntityTask:     3,
		model.EntityDocument: 2,
		model.EntityProject:  1,
	}

	var best Ref
	found := false
	for _, text := range texts {
		for _, ref := range ExtractRefs(text) {
			if !found || rank[ref.Type] > rank[best.Type] {
				best = ref
				found = true
			}
		}
	}
	return best, found
}
