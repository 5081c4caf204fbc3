package markdown

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Profile selects which matchers participate in parsing: Full enables
// styling, Minimal only mentions/custom-emoji/timestamps (used by
// non-HTML formats to preserve rendered semantics while stripping style).
type Profile int

const (
	ProfileFull Profile = iota
	ProfileMinimal
)

// maxDepth is the recursion cap on nested container children.
const maxDepth = 32

// Parse parses segment into an ordered AST covering it exactly once.
func Parse(segment string, profile Profile) []Node {
	return parseAt(segment, profile, 0)
}

func parseAt(segment string, profile Profile, depth int) []Node {
	if depth > maxDepth {
		return []Node{TextNode(segment)}
	}
	return matchAll(buildMatcher(profile, depth), segment, TextNode)
}

// buildMatcher constructs the priority-ordered aggregate matcher for a
// profile and recursion depth. Order here is the contract: escape
// sequences, formatting, quotes, headings, lists, code, mentions, links,
// emoji, timestamp (spec §4.3).
func buildMatcher(profile Profile, depth int) matcher {
	if profile == ProfileMinimal {
		return aggregateMatcher{matchers: []matcher{
			mentionEveryoneMatcher(), mentionHereMatcher(),
			mentionUserMatcher(), mentionChannelMatcher(), mentionRoleMatcher(),
			customEmojiMatcher(),
			timestampMatcher(),
		}}
	}

	next := func(s string) []Node { return parseAt(s, profile, depth+1) }

	return aggregateMatcher{matchers: []matcher{
		shrugMatcher(),
		genericEscapeMatcher(),

		boldMatcher(next),
		underlineMatcher(next),
		italicStarMatcher(next),
		italicUnderscoreMatcher(next),
		strikethroughMatcher(next),
		spoilerMatcher(next),

		multilineQuoteMatcher(next),
		repeatedQuoteMatcher(next),
		singleQuoteMatcher(next),

		headingMatcher(next),

		unorderedListMatcher(next),
		orderedListMatcher(next),

		multilineCodeMatcher(),
		inlineCodeMatcher(),

		mentionEveryoneMatcher(), mentionHereMatcher(),
		mentionUserMatcher(), mentionChannelMatcher(), mentionRoleMatcher(),

		maskedLinkMatcher(next),
		hiddenLinkMatcher(),
		autoLinkMatcher(),

		standardEmojiMatcher(),
		customEmojiMatcher(),
		shortcodeEmojiMatcher(),

		timestampMatcher(),
	}}
}

// --- escape sequences ---

const shrugLiteral = "¯\\_(ツ)_/¯"

func shrugMatcher() matcher {
	return exactMatcher{literal: shrugLiteral, build: func(matched string) Node {
		return TextNode(matched)
	}}
}

var genericEscapeRe = regexp.MustCompile(`\\(.)`)

func genericEscapeMatcher() matcher {
	return regexMatcher{re: genericEscapeRe, build: func(g []string) Node {
		return TextNode(g[1])
	}}
}

// --- formatting: lookahead-guarded delimiters so a run of 3 asterisks
// (or underscores) is split correctly between the nested and outer
// delimiter instead of the inner match stealing one character short.
// This realizes spec §4.3's two composite cases (*…**X**…* and
// _…__X__…_) via matcher priority rather than a separate code path:
// bold/underline are registered before italic, so on a tied start index
// the aggregate's earliest-registered rule wins.

func boldMatcher(next func(string) []Node) matcher {
	return trailingLookaheadMatcher('*', 2, next, FormatBold)
}

func underlineMatcher(next func(string) []Node) matcher {
	return trailingLookaheadMatcher('_', 2, next, FormatUnderline)
}

func italicStarMatcher(next func(string) []Node) matcher {
	return trailingLookaheadMatcher('*', 1, next, FormatItalic)
}

func italicUnderscoreMatcher(next func(string) []Node) matcher {
	return trailingLookaheadMatcher('_', 1, next, FormatItalic)
}

func strikethroughMatcher(next func(string) []Node) matcher {
	return trailingLookaheadMatcher('~', 2, next, FormatStrikethrough)
}

func spoilerMatcher(next func(string) []Node) matcher {
	return trailingLookaheadMatcher('|', 2, next, FormatSpoiler)
}

// trailingLookaheadMatcher implements a delimiter pair of `width` copies
// of delim, reluctant. Width-2 delimiters (bold, underline) only guard
// their close against being followed by one more of the same byte, so a
// run of 3 asterisks splits 2-then-1 ("**bold *it*** text"). Width-1
// delimiters (italic) additionally require total isolation on both
// sides of the candidate token, so they never land inside a width-2
// run belonging to a higher-priority matcher ("_a __b__ c_").
func trailingLookaheadMatcher(delim byte, width int, next func(string) []Node, kind FormattingKind) matcher {
	token := strings.Repeat(string(delim), width)
	return lookaheadMatcher{
		delim:   delim,
		token:   token,
		isolate: width == 1,
		build: func(inner string) Node {
			return Node{Kind: KindFormatting, FormattingKind: kind, Children: next(inner)}
		},
	}
}

// lookaheadMatcher hand-scans for `token ... token`.
type lookaheadMatcher struct {
	delim   byte
	token   string
	isolate bool
	build   func(inner string) Node
}

func (m lookaheadMatcher) tryMatch(segment string, offset int) (matchResult, bool) {
	start := m.findToken(segment, offset)
	for start >= 0 {
		contentStart := start + len(m.token)
		if end := m.findToken(segment, contentStart); end >= 0 {
			inner := segment[contentStart:end]
			return matchResult{start: start, end: end + len(m.token), node: m.build(inner)}, true
		}
		start = m.findToken(segment, start+1)
	}
	return matchResult{}, false
}

// findToken returns the earliest index >= from of a token occurrence that
// is not adjacent to another copy of delim: adjacency after the token is
// always disallowed (prevents stealing one char short of a longer run);
// adjacency before it is additionally disallowed when isolate is set.
func (m lookaheadMatcher) findToken(segment string, from int) int {
	idx := indexFrom(segment, m.token, from)
	for idx >= 0 {
		after := idx + len(m.token)
		beforeOK := !m.isolate || idx == 0 || segment[idx-1] != m.delim
		afterOK := after >= len(segment) || segment[after] != m.delim
		if beforeOK && afterOK {
			return idx
		}
		idx = indexFrom(segment, m.token, idx+1)
	}
	return -1
}

// --- quotes ---

var multilineQuoteRe = regexp.MustCompile(`(?s)\A>>> (.*)\z`)

func multilineQuoteMatcher(next func(string) []Node) matcher {
	return regexMatcher{re: multilineQuoteRe, build: func(g []string) Node {
		return Node{Kind: KindFormatting, FormattingKind: FormatQuote, Children: next(g[1])}
	}}
}

var repeatedQuoteLineRe = regexp.MustCompile(`(?m)\A(?:^> .*(?:\n|\z))+`)
var quotePrefixRe = regexp.MustCompile(`(?m)^> `)

func repeatedQuoteMatcher(next func(string) []Node) matcher {
	return regexMatcher{re: repeatedQuoteLineRe, build: func(g []string) Node {
		stripped := quotePrefixRe.ReplaceAllString(g[0], "")
		return Node{Kind: KindFormatting, FormattingKind: FormatQuote, Children: next(strings.TrimRight(stripped, "\n"))}
	}}
}

var singleQuoteRe = regexp.MustCompile(`(?m)^> (.*)$`)

func singleQuoteMatcher(next func(string) []Node) matcher {
	return regexMatcher{re: singleQuoteRe, build: func(g []string) Node {
		return Node{Kind: KindFormatting, FormattingKind: FormatQuote, Children: next(g[1])}
	}}
}

// --- headings ---

var headingRe = regexp.MustCompile(`(?m)^(#{1,3}) (.+)$`)

func headingMatcher(next func(string) []Node) matcher {
	return regexMatcher{re: headingRe, build: func(g []string) Node {
		return Node{Kind: KindHeading, HeadingLevel: len(g[1]), Children: next(g[2])}
	}}
}

// --- lists ---

var unorderedListLineRe = regexp.MustCompile(`(?m)^[*-] (.+)$`)

func unorderedListMatcher(next func(string) []Node) matcher {
	return regexMatcher{re: unorderedListLineRe, build: func(g []string) Node {
		item := Node{Kind: KindListItem, Children: next(g[1])}
		return Node{Kind: KindList, Ordered: false, ListItems: []Node{item}}
	}}
}

var orderedListLineRe = regexp.MustCompile(`(?m)^\d+\. (.+)$`)

func orderedListMatcher(next func(string) []Node) matcher {
	return regexMatcher{re: orderedListLineRe, build: func(g []string) Node {
		item := Node{Kind: KindListItem, Children: next(g[1])}
		return Node{Kind: KindList, Ordered: true, ListItems: []Node{item}}
	}}
}

// --- code ---

var multilineCodeRe = regexp.MustCompile("(?s)```(?:([a-zA-Z0-9_+-]*)\n)?(.*?)```")

func multilineCodeMatcher() matcher {
	return regexMatcher{re: multilineCodeRe, build: func(g []string) Node {
		return Node{Kind: KindMultiLineCode, Lang: g[1], Code: g[2]}
	}}
}

var inlineCodeRe = regexp.MustCompile("`([^`]+)`")

func inlineCodeMatcher() matcher {
	return regexMatcher{re: inlineCodeRe, build: func(g []string) Node {
		return Node{Kind: KindInlineCode, Code: g[1]}
	}}
}

// --- mentions ---

func mentionEveryoneMatcher() matcher {
	return exactMatcher{literal: "@everyone", build: func(string) Node {
		return Node{Kind: KindMention, MentionKind: MentionEveryone}
	}}
}

func mentionHereMatcher() matcher {
	return exactMatcher{literal: "@here", build: func(string) Node {
		return Node{Kind: KindMention, MentionKind: MentionHere}
	}}
}

var mentionUserRe = regexp.MustCompile(`<@!?(\d+)>`)

func mentionUserMatcher() matcher {
	return regexMatcher{re: mentionUserRe, build: func(g []string) Node {
		return Node{Kind: KindMention, MentionKind: MentionUser, TargetID: g[1]}
	}}
}

var mentionChannelRe = regexp.MustCompile(`<#(\d+)>`)

func mentionChannelMatcher() matcher {
	return regexMatcher{re: mentionChannelRe, build: func(g []string) Node {
		return Node{Kind: KindMention, MentionKind: MentionChannel, TargetID: g[1]}
	}}
}

var mentionRoleRe = regexp.MustCompile(`<@&(\d+)>`)

func mentionRoleMatcher() matcher {
	return regexMatcher{re: mentionRoleRe, build: func(g []string) Node {
		return Node{Kind: KindMention, MentionKind: MentionRole, TargetID: g[1]}
	}}
}

// --- links ---

var maskedLinkRe = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]+)\)`)

func maskedLinkMatcher(next func(string) []Node) matcher {
	return regexMatcher{re: maskedLinkRe, build: func(g []string) Node {
		return Node{Kind: KindLink, URL: g[2], TitleNodes: next(g[1])}
	}}
}

var hiddenLinkRe = regexp.MustCompile(`<(https?://\S+?)>`)

func hiddenLinkMatcher() matcher {
	return regexMatcher{re: hiddenLinkRe, build: func(g []string) Node {
		return Node{Kind: KindLink, URL: g[1], TitleNodes: []Node{TextNode(g[1])}}
	}}
}

var autoLinkRe = regexp.MustCompile(`https?://\S+`)

func autoLinkMatcher() matcher {
	return regexMatcher{re: autoLinkRe, build: func(g []string) Node {
		return Node{Kind: KindLink, URL: g[0], TitleNodes: []Node{TextNode(g[0])}}
	}}
}

// --- emoji ---

var standardEmojiRe = regexp.MustCompile(`[\x{1F300}-\x{1FAFF}\x{2600}-\x{27BF}\x{2190}-\x{21FF}]`)

func standardEmojiMatcher() matcher {
	return regexMatcher{re: standardEmojiRe, build: func(g []string) Node {
		return Node{Kind: KindEmoji, EmojiName: g[0]}
	}}
}

var customEmojiRe = regexp.MustCompile(`<(a)?:(\w+):(\d+)>`)

func customEmojiMatcher() matcher {
	return regexMatcher{re: customEmojiRe, build: func(g []string) Node {
		return Node{Kind: KindEmoji, EmojiAnimated: g[1] == "a", EmojiName: g[2], EmojiID: g[3]}
	}}
}

var shortcodeEmojiRe = regexp.MustCompile(`:(\w+):`)

func shortcodeEmojiMatcher() matcher {
	return regexMatcher{re: shortcodeEmojiRe, build: func(g []string) Node {
		return Node{Kind: KindEmoji, EmojiName: g[1]}
	}}
}

// --- timestamp ---

var timestampRe = regexp.MustCompile(`<t:(-?\d+)(?::([tTdDfFrR]))?>`)

func timestampMatcher() matcher {
	return regexMatcher{re: timestampRe, build: func(g []string) Node {
		secs, err := strconv.ParseInt(g[1], 10, 64)
		if err != nil {
			return Node{Kind: KindTimestamp, Invalid: true}
		}
		code := g[2]
		if code == "r" || code == "R" || code == "" {
			t := time.Unix(secs, 0).UTC()
			return Node{Kind: KindTimestamp, Instant: &t}
		}
		valid := map[string]bool{"t": true, "T": true, "d": true, "D": true, "f": true, "F": true}
		if !valid[code] {
			return Node{Kind: KindTimestamp, Invalid: true}
		}
		t := time.Unix(secs, 0).UTC()
		r := []rune(code)[0]
		return Node{Kind: KindTimestamp, Instant: &t, FormatCode: &r}
	}}
}
