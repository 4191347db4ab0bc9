package waformat

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	mw "wassistant/internal/middleware"
)

func init() {
	mw.Register(Formatter{})
}

// Formatter rewrites assistant replies for WhatsApp:
//   - file-search citation markers such as 【4:0†source】 are removed
//   - Markdown **bold** and __bold__ become *bold*
//   - Markdown headings become bold lines
//   - [label](url) links become "label (url)"
//
// Code fences and inline code are left untouched. Set
// Event.Context["wa_format"]=false to skip it for one reply.
type Formatter struct{}

func (Formatter) ID() string    { return "wa_format" }
func (Formatter) Priority() int { return 100 }

func (Formatter) ShouldLoad(_ context.Context, e *mw.Event) bool {
	if e == nil || e.Context == nil {
		return true
	}
	if v, ok := e.Context["wa_format"].(bool); ok {
		return v
	}
	return true
}

func (Formatter) OnEvent(_ context.Context, e *mw.Event) (mw.Decision, error) {
	if e == nil || e.Name != mw.EventBeforeUserReply {
		return mw.Decision{}, nil
	}
	orig := e.ReplyText
	if strings.TrimSpace(orig) == "" {
		return mw.Decision{}, nil
	}

	out := Format(orig)
	// Surrounding whitespace alone is not worth a rewrite.
	if out == strings.TrimSpace(orig) || strings.TrimSpace(out) == "" {
		return mw.Decision{}, nil
	}
	return mw.Decision{ReplaceText: &out, Reason: "wa_format: rewrote markdown for whatsapp"}, nil
}

var (
	reFence  = regexp.MustCompile("(?s)```.*?```")
	reInline = regexp.MustCompile("`[^`\n]+`")

	reCitation   = regexp.MustCompile(`[ \t]*【[^】]*】`)
	reBoldStars  = regexp.MustCompile(`\*\*([^*\n]+?)\*\*`)
	reBoldUnders = regexp.MustCompile(`__([^_\n]+?)__`)
	reHeading    = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]+(.+?)[ \t]*#*[ \t]*$`)
	reLink       = regexp.MustCompile(`\[([^\]\n]+)\]\((https?://[^)\s]+)\)`)
	reTrailingWS = regexp.MustCompile(`(?m)[ \t]+$`)
	reBlankRuns  = regexp.MustCompile(`\n{3,}`)
)

const (
	phOpen  = "\x00C"
	phClose = "\x00"
)

// Format applies the WhatsApp rewrites to s.
func Format(s string) string {
	var spans []string
	protect := func(re *regexp.Regexp, in string) string {
		return re.ReplaceAllStringFunc(in, func(m string) string {
			spans = append(spans, m)
			return phOpen + strconv.Itoa(len(spans)-1) + phClose
		})
	}
	s = protect(reFence, s)
	s = protect(reInline, s)

	s = reCitation.ReplaceAllString(s, "")
	s = reHeading.ReplaceAllStringFunc(s, func(line string) string {
		title := reHeading.FindStringSubmatch(line)[1]
		title = reBoldStars.ReplaceAllString(title, "$1")
		title = reBoldUnders.ReplaceAllString(title, "$1")
		return "*" + title + "*"
	})
	s = reBoldStars.ReplaceAllString(s, "*$1*")
	s = reBoldUnders.ReplaceAllString(s, "*$1*")
	s = reLink.ReplaceAllString(s, "$1 ($2)")
	s = reTrailingWS.ReplaceAllString(s, "")
	s = reBlankRuns.ReplaceAllString(s, "\n\n")

	for i := len(spans) - 1; i >= 0; i-- {
		s = strings.ReplaceAll(s, phOpen+strconv.Itoa(i)+phClose, spans[i])
	}
	return strings.TrimSpace(s)
}
