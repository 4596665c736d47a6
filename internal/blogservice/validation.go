package blogservice

import "github.com/inkwell-cms/inkwell/internal/common"

func validateRequired(v *common.Validator, value, field string) {
	v.Check(value != "", field, "must be provided")
}

func validateTitle(v *common.Validator, title string) {
	validateRequired(v, title, "title")
	v.Check(v.CheckStringLength(title, 0, 200), "title", "must be at most 200 characters long")
}

func validateStatus(v *common.Validator, status Status) {
	v.Check(v.CheckIn(string(status), string(StatusDraft), string(StatusPublished)), "status", "must be either draft or published")
}

// normalizeTags deduplicates while preserving first-seen order; tags are a
// set in the data model but arrive as a list.
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
