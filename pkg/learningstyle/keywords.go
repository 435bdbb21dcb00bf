// Package learningstyle infers a user's preferred learning style from
// conversation text using keyword heuristics.
package learningstyle

// Style identifies a learning style category.
type Style string

const (
	// StyleVisual prefers diagrams, charts, and imagery.
	StyleVisual Style = "visual"

	// StyleAuditory prefers spoken explanations and discussion.
	StyleAuditory Style = "auditory"

	// StyleKinesthetic prefers hands-on practice and experimentation.
	StyleKinesthetic Style = "kinesthetic"

	// StyleReading prefers written material and note-taking.
	StyleReading Style = "reading"
)

// Depth is a coarse classification of how much elaboration a user wants.
type Depth string

const (
	// DepthBrief prefers short, summarized answers.
	DepthBrief Depth = "brief"

	// DepthMedium is the default elaboration level.
	DepthMedium Depth = "medium"

	// DepthDetailed prefers thorough, step-by-step answers.
	DepthDetailed Depth = "detailed"
)

// styleKeywords are the curated indicator terms per style category.
var styleKeywords = map[Style][]string{
	StyleVisual: {
		"see", "look", "show", "picture", "diagram", "chart", "graph",
		"draw", "visualize", "image", "watch", "view", "color", "sketch",
		"illustration", "map", "visual", "appears",
	},
	StyleAuditory: {
		"hear", "listen", "sound", "tell", "say", "explain", "talk",
		"discuss", "describe", "speak", "voice", "loud", "quiet",
		"conversation", "audio", "pronounce", "rhythm",
	},
	StyleKinesthetic: {
		"do", "try", "practice", "hands-on", "build", "make", "touch",
		"feel", "move", "exercise", "experiment", "interactive", "play",
		"walk", "physical", "activity", "perform", "manipulate",
	},
	StyleReading: {
		"read", "write", "text", "list", "note", "notes", "article",
		"book", "document", "definition", "glossary", "summary", "outline",
		"reference", "written", "bullet", "paragraph",
	},
}

// depthKeywords are the indicator terms for depth preference.
var depthKeywords = map[Depth][]string{
	DepthBrief: {
		"quick", "quickly", "brief", "briefly", "short", "summary",
		"summarize", "simple", "simply", "fast", "tldr", "gist",
		"overview", "concise", "basics",
	},
	DepthDetailed: {
		"detail", "details", "detailed", "thorough", "thoroughly",
		"deep", "deeply", "explain", "elaborate", "comprehensive",
		"step-by-step", "depth", "fully", "everything", "complete",
	},
}
