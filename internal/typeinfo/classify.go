package typeinfo

import (
	"strings"
	"unicode"
)

// stateSuffixes mark read-model names.
var stateSuffixes = []string{"List", "Summary", "View", "Details", "State", "Projection", "Overview", "Status"}

// commandVerbs are imperative prefixes that mark command names.
var commandVerbs = []string{
	"Add", "Approve", "Archive", "Assign", "Book", "Cancel", "Change", "Check",
	"Close", "Complete", "Confirm", "Create", "Delete", "Disable", "Enable",
	"Execute", "Finish", "Generate", "Import", "Mark", "Open", "Place",
	"Process", "Publish", "Register", "Reject", "Remove", "Request", "Reserve",
	"Reset", "Schedule", "Send", "Set", "Start", "Stop", "Submit", "Suggest",
	"Update", "Upload", "Verify",
}

// irregularPast lists past participles that do not end in -ed.
var irregularPast = []string{"Sent", "Built", "Paid", "Made", "Done", "Begun", "Run", "Set", "Shown", "Taken", "Given", "Chosen"}

// notParticiples end in -ed without being past participles.
var notParticiples = []string{
	"Bed", "Bleed", "Breed", "Deed", "Embed", "Feed", "Greed", "Need", "Red",
	"Reed", "Seed", "Shed", "Sled", "Speed", "Steed", "Weed",
}

// Classify guesses the classification of a type from its name. The result is
// advisory: it is only used for interface-shaped declarations that carry no
// marker. Unknown is returned when no rule applies.
func Classify(name string) Classification {
	switch {
	case hasAnySuffix(name, stateSuffixes):
		return State
	case isParticiple(lastWord(name)) || hasAnySuffix(name, irregularPast):
		return Event
	case hasVerbPrefix(name):
		return Command
	}
	return Unknown
}

func hasAnySuffix(name string, suffixes []string) bool {
	for _, s := range suffixes {
		if len(name) > len(s) && strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// lastWord returns the trailing capitalized word of a PascalCase name.
func lastWord(name string) string {
	for i := len(name) - 1; i > 0; i-- {
		if unicode.IsUpper(rune(name[i])) {
			return name[i:]
		}
	}
	return name
}

func isParticiple(word string) bool {
	if !strings.HasSuffix(word, "ed") || len(word) <= len("ed") {
		return false
	}
	for _, w := range notParticiples {
		if strings.EqualFold(word, w) {
			return false
		}
	}
	return true
}

// hasVerbPrefix requires the verb to end on a word boundary so that
// "Settings" is not read as "Set" + "tings".
func hasVerbPrefix(name string) bool {
	for _, v := range commandVerbs {
		if !strings.HasPrefix(name, v) {
			continue
		}
		rest := name[len(v):]
		if rest == "" || unicode.IsUpper(rune(rest[0])) {
			return true
		}
	}
	return false
}
