package selection

import (
	"sort"
	"strings"

	"echo-assistant-be/pkg/store"
)

// DefaultPageSize is how many candidates one page shows.
const DefaultPageSize = 5

// FileTypes lists the distinct extensions across files, sorted.
func FileTypes(files []store.RankedResult) []string {
	set := make(map[string]bool)
	for _, f := range files {
		if ext := f.Extension(); ext != "" {
			set[ext] = true
		}
	}
	out := make([]string, 0, len(set))
	for ext := range set {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Paginate returns page (1-based) of the stored candidates, optionally
// filtered by a file extension such as ".pdf". It never changes the session.
// The file type list always reflects the full, unfiltered set.
func Paginate(sess *store.SelectionSession, page, pageSize int, typeFilter string) FilePage {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}

	all := sess.Candidates
	filter := strings.ToLower(strings.TrimSpace(typeFilter))
	files := all
	if filter != "" {
		files = make([]store.RankedResult, 0, len(all))
		for _, f := range all {
			if strings.HasSuffix(strings.ToLower(f.Name), filter) {
				files = append(files, f)
			}
		}
	}

	start := (page - 1) * pageSize
	if start > len(files) {
		start = len(files)
	}
	end := start + pageSize
	if end > len(files) {
		end = len(files)
	}

	return FilePage{
		Files:     append([]store.RankedResult{}, files[start:end]...),
		Page:      page,
		Total:     len(files),
		FileTypes: FileTypes(all),
	}
}
