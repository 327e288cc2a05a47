package analytics

// categoryDisplay is the presentation config for spending categories. This
// table serves the spending rollup only and is intentionally smaller than
// the per-transaction category table used during sync.
type categoryDisplay struct {
	icon  string
	color string
}

var categoryConfig = map[string]categoryDisplay{
	"Food & Dining":     {"fork.knife", "#FF6B6B"},
	"Shopping":          {"bag", "#4ECDC4"},
	"Transportation":    {"car", "#45B7D1"},
	"Entertainment":     {"film", "#96CEB4"},
	"Bills & Utilities": {"doc.text", "#FFEAA7"},
	"Health":            {"heart", "#FF8A5B"},
	"Travel":            {"airplane", "#A8E6CF"},
	"Education":         {"book", "#DDA0DD"},
	"Personal Care":     {"person", "#FFB6C1"},
	"Other":             {"ellipsis.circle", "#B0B0B0"},
}

// displayFor returns the presentation for a category, falling back to the
// "Other" entry for anything unrecognized.
func displayFor(category string) categoryDisplay {
	if d, ok := categoryConfig[category]; ok {
		return d
	}
	return categoryConfig["Other"]
}
