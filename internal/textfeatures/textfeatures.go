// Package textfeatures implements the token grammar embedded in free
// text fields: timer durations, checklist/shortcut trigger references
// and origin metadata are appended to the text as #-prefixed tokens
// and stripped back out for display.
package textfeatures

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type TriggerKind string

const (
	KindChecklist TriggerKind = "checklist"
	KindShortcut  TriggerKind = "shortcut"
)

// TriggerRef is a parsed, unresolved trigger reference. Resolution
// against live checklists/shortcuts happens in the trigger package.
type TriggerRef struct {
	Kind TriggerKind
	ID   int64
}

// Features is the structured content of one text field.
type Features struct {
	DisplayText string
	// Timer is the explicit timer duration in seconds, 0 if absent.
	Timer    int
	Triggers []TriggerRef
	// ActivityID is the #a auto-start reference, 0 if absent.
	ActivityID int64
	// RepeatingID links a materialized task back to its repeating
	// definition, 0 if absent.
	RepeatingID int64
}

// Checklist and shortcut ids are rendered zero-padded to a fixed ten
// digits so a token never merges with adjacent digits in the text.
const triggerIDWidth = 10

var (
	reTimer     = regexp.MustCompile(`(?i)#t(\d+)`)
	reActivity  = regexp.MustCompile(`(?i)#a(\d+)`)
	reRepeating = regexp.MustCompile(`(?i)#r(\d+)`)
	reChecklist = regexp.MustCompile(`(?i)#c(\d{10})`)
	reShortcut  = regexp.MustCompile(`(?i)#s(\d{10})`)
	reSpaces    = regexp.MustCompile(` {2,}`)
)

// Parse extracts all tokens from text. Every matched token is removed
// from the returned display text; malformed runs are left alone and
// treated as plain text. Parse never fails.
func Parse(text string) Features {
	f := Features{}
	rest := text

	rest = extractFirst(rest, reTimer, func(v int64) { f.Timer = int(v) })
	rest = extractFirst(rest, reActivity, func(v int64) { f.ActivityID = v })
	rest = extractFirst(rest, reRepeating, func(v int64) { f.RepeatingID = v })

	type found struct {
		pos int
		ref TriggerRef
	}
	var refs []found
	for _, m := range reChecklist.FindAllStringSubmatchIndex(rest, -1) {
		id, _ := strconv.ParseInt(rest[m[2]:m[3]], 10, 64)
		refs = append(refs, found{pos: m[0], ref: TriggerRef{Kind: KindChecklist, ID: id}})
	}
	for _, m := range reShortcut.FindAllStringSubmatchIndex(rest, -1) {
		id, _ := strconv.ParseInt(rest[m[2]:m[3]], 10, 64)
		refs = append(refs, found{pos: m[0], ref: TriggerRef{Kind: KindShortcut, ID: id}})
	}
	// Keep textual order across both kinds.
	for i := 1; i < len(refs); i++ {
		for j := i; j > 0 && refs[j].pos < refs[j-1].pos; j-- {
			refs[j], refs[j-1] = refs[j-1], refs[j]
		}
	}
	for _, r := range refs {
		f.Triggers = append(f.Triggers, r.ref)
	}
	rest = reChecklist.ReplaceAllString(rest, "")
	rest = reShortcut.ReplaceAllString(rest, "")

	f.DisplayText = collapse(rest)
	return f
}

// Serialize renders the features back into storable text: display text
// first, then the timer token, triggers in ascending (kind, id) order,
// then metadata tokens, all separated by single spaces.
func (f Features) Serialize() string {
	parts := []string{strings.TrimSpace(f.DisplayText)}
	if f.Timer > 0 {
		parts = append(parts, fmt.Sprintf("#t%d", f.Timer))
	}
	triggers := make([]TriggerRef, len(f.Triggers))
	copy(triggers, f.Triggers)
	for i := 1; i < len(triggers); i++ {
		for j := i; j > 0 && triggerLess(triggers[j], triggers[j-1]); j-- {
			triggers[j], triggers[j-1] = triggers[j-1], triggers[j]
		}
	}
	for _, tr := range triggers {
		parts = append(parts, tr.Token())
	}
	if f.ActivityID > 0 {
		parts = append(parts, fmt.Sprintf("#a%d", f.ActivityID))
	}
	if f.RepeatingID > 0 {
		parts = append(parts, fmt.Sprintf("#r%d", f.RepeatingID))
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// Token renders the reference in its canonical zero-padded form.
func (r TriggerRef) Token() string {
	switch r.Kind {
	case KindChecklist:
		return fmt.Sprintf("#c%0*d", triggerIDWidth, r.ID)
	case KindShortcut:
		return fmt.Sprintf("#s%0*d", triggerIDWidth, r.ID)
	default:
		return ""
	}
}

func triggerLess(a, b TriggerRef) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.ID < b.ID
}

func extractFirst(text string, re *regexp.Regexp, set func(int64)) string {
	m := re.FindStringSubmatchIndex(text)
	if m == nil {
		return text
	}
	v, _ := strconv.ParseInt(text[m[2]:m[3]], 10, 64)
	set(v)
	// Strip every occurrence, keep only the first value.
	return re.ReplaceAllString(text, "")
}

func collapse(text string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(text, " "))
}
