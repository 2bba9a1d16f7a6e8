// Package lexicon holds the word lists and token folding shared by phrase
// extraction and grounding.
package lexicon

import "strings"

type Tag int

const (
	TagContent Tag = iota
	TagStop
	TagAction
	TagState
	TagNoun
)

// Cue is a UI property a word hints at.
type Cue int

const (
	CueNone Cue = iota
	CueAction
	CueDisabled
	CueHidden
	CueChecked
	CueUnchecked
)

type Region int

const (
	RegionNone Region = iota
	RegionTop
	RegionBottom
	RegionLeft
	RegionRight
)

var stopWords = set(
	"a", "an", "the", "this", "that", "these", "those", "my", "your", "his", "her",
	"its", "our", "their", "i", "me", "we", "us", "you", "he", "she", "it", "they",
	"them", "i'm", "it's", "there", "here", "what", "which", "who", "when", "where",
	"why", "how", "of", "to", "in", "on", "at", "by", "for", "with", "from", "into",
	"onto", "about", "after", "before", "over", "under", "up", "down", "out", "off",
	"and", "or", "but", "so", "if", "then", "than", "because", "as", "while",
	"is", "are", "was", "were", "be", "been", "being", "am", "do", "does", "did",
	"have", "has", "had", "will", "would", "can", "could", "should", "shall", "may",
	"might", "must", "not", "no", "never", "don't", "doesn't", "didn't", "can't",
	"cannot", "won't", "isn't", "aren't", "wasn't", "weren't", "couldn't",
	"wouldn't", "shouldn't", "haven't", "hasn't", "just", "even", "still", "also",
	"really", "very", "too", "again", "anymore", "always", "ever", "only", "all",
	"any", "some", "every", "each", "much", "many", "more", "most", "now", "yet",
	"get", "gets", "got", "make", "makes", "made", "want", "wants", "try", "tried",
	"trying", "think", "know", "see", "seems", "said", "says", "like", "need",
	"find", "found", "happen", "happens", "happened", "use", "used", "using",
	"app", "application", "thing", "things", "time", "times", "lot", "way",
	"anything", "nothing", "something", "everything", "great", "good", "bad",
	"terrible", "awful", "love", "hate", "please", "thanks", "star", "stars",
)

var negations = set(
	"not", "no", "never", "don't", "doesn't", "didn't", "can't", "cannot", "won't",
	"isn't", "aren't", "wasn't", "weren't", "couldn't", "wouldn't",
)

var actionWords = set(
	"tap", "taps", "tapped", "tapping", "press", "presses", "pressed", "pressing",
	"click", "clicks", "clicked", "clicking", "touch", "touched", "respond",
	"responds", "responded", "responding", "react", "reacts", "open", "opens",
	"opened", "load", "loads", "loaded", "loading", "work", "works", "worked",
	"working", "swipe", "swiped", "scroll", "scrolling", "select", "selected",
	"submit", "submits", "submitted", "send", "sends", "save", "saves", "saved",
	"type", "typing", "enter", "hit", "launch", "launches", "play", "plays",
)

var stateWords = set(
	"disabled", "greyed", "grayed", "greyed-out", "grayed-out", "inactive",
	"unresponsive", "broken", "stuck", "frozen", "missing", "hidden", "invisible",
	"blank", "empty", "gone", "unclickable", "unchecked", "checked", "enabled",
	"crash", "crashes", "crashed", "slow", "laggy", "glitchy", "buggy", "cut",
)

var uiNouns = set(
	"button", "btn", "field", "input", "textbox", "box", "checkbox", "switch",
	"toggle", "icon", "image", "menu", "dropdown", "list", "tab", "link", "label",
	"screen", "page", "dialog", "popup", "bar", "toolbar", "slider", "option",
	"setting", "settings", "banner", "card", "form", "keyboard",
)

var cues = map[string]Cue{
	"tap": CueAction, "taps": CueAction, "tapped": CueAction, "tapping": CueAction,
	"press": CueAction, "pressed": CueAction, "pressing": CueAction,
	"click": CueAction, "clicked": CueAction, "clicking": CueAction,
	"touch": CueAction, "respond": CueAction, "responds": CueAction,
	"submit": CueAction, "open": CueAction, "select": CueAction,
	"disabled": CueDisabled, "greyed": CueDisabled, "grayed": CueDisabled,
	"greyed-out": CueDisabled, "grayed-out": CueDisabled, "inactive": CueDisabled,
	"unclickable": CueDisabled, "unresponsive": CueDisabled,
	"hidden": CueHidden, "invisible": CueHidden, "missing": CueHidden, "gone": CueHidden,
	"checked": CueChecked, "ticked": CueChecked,
	"unchecked": CueUnchecked, "unticked": CueUnchecked,
}

var regions = map[string]Region{
	"top": RegionTop, "header": RegionTop, "toolbar": RegionTop, "upper": RegionTop,
	"bottom": RegionBottom, "footer": RegionBottom, "lower": RegionBottom,
	"left": RegionLeft, "right": RegionRight,
}

// typeAliases maps widget class short names to the words reviewers use for them.
var typeAliases = map[string][]string{
	"Button":               {"button", "btn"},
	"ImageButton":          {"button", "btn", "icon", "image"},
	"FloatingActionButton": {"button", "btn", "fab"},
	"EditText":             {"field", "input", "textbox", "box", "textfield"},
	"AutoCompleteTextView": {"field", "input", "search", "box"},
	"CheckBox":             {"checkbox", "tickbox", "box", "check"},
	"Switch":               {"switch", "toggle"},
	"SwitchCompat":         {"switch", "toggle"},
	"ToggleButton":         {"toggle", "switch", "button"},
	"RadioButton":          {"radio", "option"},
	"ImageView":            {"image", "icon", "picture", "photo", "logo"},
	"TextView":             {"text", "label", "title"},
	"Spinner":              {"dropdown", "menu", "list", "picker"},
	"SeekBar":              {"slider", "bar"},
	"ProgressBar":          {"progress", "spinner", "loader", "bar"},
	"RecyclerView":         {"list", "feed"},
	"ListView":             {"list"},
	"WebView":              {"page", "web"},
	"TabWidget":            {"tab", "tabs"},
	"Toolbar":              {"toolbar", "header", "bar"},
}

func TagOf(word string) Tag {
	switch {
	case stopWords[word]:
		return TagStop
	case stateWords[word]:
		return TagState
	case actionWords[word]:
		return TagAction
	case uiNouns[word]:
		return TagNoun
	}
	return TagContent
}

func IsStopWord(word string) bool { return stopWords[word] }
func IsNegation(word string) bool { return negations[word] }

func CueOf(word string) Cue {
	return cues[word]
}

func RegionOf(word string) Region {
	return regions[word]
}

// TypeAliases returns the vocabulary for a widget class short name, always
// including the lowercased class name itself.
func TypeAliases(shortClass string) []string {
	out := []string{strings.ToLower(shortClass)}
	return append(out, typeAliases[shortClass]...)
}

func set(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
