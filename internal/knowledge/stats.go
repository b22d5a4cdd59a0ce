package knowledge

import "sort"

// Stats describes the index contents.
type Stats struct {
	TotalDocuments int      `json:"total_documents"`
	Types          []string `json:"knowledge_types"`
	Departments    []string `json:"faculties_covered"`
	Skills         []string `json:"skills_covered"`
	Embedder       string   `json:"embedder"`
	Dimensions     int      `json:"dimensions"`
	Mode           string   `json:"mode"`
}

// Stats reports document totals and the distinct types, departments and
// skills covered, each sorted.
func (i *Index) Stats() Stats {
	i.mu.RLock()
	defer i.mu.RUnlock()

	types := map[string]bool{}
	depts := map[string]bool{}
	skills := map[string]bool{}
	for _, doc := range i.docs {
		t := doc.Metadata.Type
		if t == "" {
			t = "unknown"
		}
		types[t] = true
		if doc.Metadata.Department != "" {
			depts[doc.Metadata.Department] = true
		}
		if doc.Metadata.Skill != "" {
			skills[doc.Metadata.Skill] = true
		}
	}

	dims := i.embedder.Dimensions()
	if dims == 0 && len(i.vectors) > 0 {
		dims = len(i.vectors[0])
	}

	return Stats{
		TotalDocuments: len(i.docs),
		Types:          sortedKeys(types),
		Departments:    sortedKeys(depts),
		Skills:         sortedKeys(skills),
		Embedder:       i.embedder.Name(),
		Dimensions:     dims,
		Mode:           i.opts.Mode,
	}
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
