package page

import (
	"errors"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"golang.org/x/net/html"

	"github.com/mynest/mediasniff/internal/media"
)

// maxStyleNesting bounds how deep @media and similar blocks may nest.
const maxStyleNesting = 8

// maxStyleRules bounds the number of background rules kept per stylesheet.
const maxStyleRules = 5000

var (
	cssURLPattern    = regexp.MustCompile(`url\(\s*['"]?([^'"()]+?)['"]?\s*\)`)
	importantPattern = regexp.MustCompile(`(?i)\s*!\s*important\s*$`)
)

// maxParseErrors stops a walk after this many consecutive parse errors,
// which is how the parser reports a truncated stylesheet.
const maxParseErrors = 4

// groupingAtRules are at-rules whose body contains ordinary style rules.
var groupingAtRules = map[string]bool{
	"@media":     true,
	"@supports":  true,
	"@layer":     true,
	"@container": true,
	"@document":  true,
}

// StyleSheet is the subset of a CSS stylesheet that affects background images.
type StyleSheet struct {
	base  *url.URL
	rules []styleRule
}

type styleRule struct {
	selector string
	value    string
}

// StyledURL is a url() reference taken from a computed background-image,
// together with the URL it must be resolved against.
type StyledURL struct {
	Raw  string
	Base *url.URL
}

// Resolve validates the reference and resolves it against its base.
func (s StyledURL) Resolve() (string, bool) {
	return media.ResolveResourceURL(s.Raw, s.Base)
}

// ParseStyleSheet extracts background rules from src.
// Malformed input never fails; unparseable parts are skipped.
func ParseStyleSheet(src string, base *url.URL) *StyleSheet {
	s := &StyleSheet{base: base}

	var (
		atRules  []bool // per open at-rule: does it group style rules
		selector []string
		inRule   bool
		value    string
		found    bool
	)
	walkCSS(src, false, func(gt css.GrammarType, data []byte, values []css.Token) bool {
		switch gt {
		case css.BeginAtRuleGrammar:
			atRules = append(atRules, groupingAtRules[strings.ToLower(string(data))])
		case css.EndAtRuleGrammar:
			if len(atRules) > 0 {
				atRules = atRules[:len(atRules)-1]
			}
		case css.QualifiedRuleGrammar:
			selector = append(selector, tokensText(values))
		case css.BeginRulesetGrammar:
			selector = append(selector, tokensText(values))
			inRule, value, found = appliesToElements(atRules), "", false
		case css.DeclarationGrammar:
			if !inRule {
				break
			}
			if v, ok := backgroundDeclaration(string(data), values); ok {
				value, found = v, true
			}
		case css.EndRulesetGrammar:
			if inRule && found {
				if sel := staticSelector(strings.Join(selector, ",")); sel != "" {
					s.rules = append(s.rules, styleRule{selector: sel, value: value})
				}
			}
			selector, inRule = nil, false
		}
		return len(s.rules) < maxStyleRules
	})
	return s
}

// RuleCount returns the number of background rules in the sheet.
func (s *StyleSheet) RuleCount() int {
	return len(s.rules)
}

// walkCSS feeds the grammar stream of src to fn until the input ends or
// fn returns false. With inline set, src is a declaration list such as a
// style attribute.
func walkCSS(src string, inline bool, fn func(css.GrammarType, []byte, []css.Token) bool) {
	p := css.NewParser(parse.NewInputString(src), inline)
	errs := 0
	for {
		gt, _, data := p.Next()
		if gt == css.ErrorGrammar {
			errs++
			if errors.Is(p.Err(), io.EOF) || errs >= maxParseErrors {
				return
			}
			continue
		}
		errs = 0
		if !fn(gt, data, p.Values()) {
			return
		}
	}
}

// appliesToElements reports whether rules nested in atRules can match
// elements: only grouping at-rules, up to maxStyleNesting deep.
func appliesToElements(atRules []bool) bool {
	if len(atRules) > maxStyleNesting {
		return false
	}
	for _, grouping := range atRules {
		if !grouping {
			return false
		}
	}
	return true
}

func tokensText(tokens []css.Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.Write(t.Data)
	}
	return strings.TrimSpace(b.String())
}

// staticSelector removes selector alternatives that never apply to an
// element's own computed style: pseudo-elements and interaction states.
func staticSelector(prelude string) string {
	var kept []string
	for _, part := range strings.Split(prelude, ",") {
		part = strings.TrimSpace(part)
		lower := strings.ToLower(part)
		if part == "" ||
			strings.Contains(lower, "::") ||
			strings.Contains(lower, ":before") ||
			strings.Contains(lower, ":after") ||
			strings.Contains(lower, ":hover") ||
			strings.Contains(lower, ":focus") ||
			strings.Contains(lower, ":active") {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, ", ")
}

// backgroundDeclaration returns the background image set by one
// declaration. The background shorthand without an image resets the value
// to "none".
func backgroundDeclaration(name string, values []css.Token) (string, bool) {
	val := importantPattern.ReplaceAllString(tokensText(values), "")
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "background-image":
		return val, true
	case "background":
		if strings.Contains(strings.ToLower(val), "url(") {
			return val, true
		}
		return "none", true
	}
	return "", false
}

// inlineBackgroundImage returns the effective background image of a style
// attribute.
func inlineBackgroundImage(style string) (string, bool) {
	var value string
	found := false
	walkCSS(style, true, func(gt css.GrammarType, data []byte, values []css.Token) bool {
		if gt == css.DeclarationGrammar {
			if v, ok := backgroundDeclaration(string(data), values); ok {
				value, found = v, true
			}
		}
		return true
	})
	return value, found
}

// extractCSSURLs returns every url() reference in a property value.
func extractCSSURLs(value string) []string {
	var urls []string
	for _, m := range cssURLPattern.FindAllStringSubmatch(value, -1) {
		urls = append(urls, strings.TrimSpace(m[1]))
	}
	return urls
}

type computedValue struct {
	value string
	base  *url.URL
}

// BackgroundImages returns the url() references of every element's
// computed background-image, in document order.
//
// Linked stylesheets cascade first, then <style> elements in document
// order, then inline style attributes.
func (d *Document) BackgroundImages() []StyledURL {
	computed := make(map[*html.Node]computedValue)
	apply := func(sheet *StyleSheet) {
		for _, rule := range sheet.rules {
			d.dom.Find(rule.selector).Each(func(_ int, s *goquery.Selection) {
				for _, n := range s.Nodes {
					computed[n] = computedValue{value: rule.value, base: sheet.base}
				}
			})
		}
	}

	for _, sheet := range d.sheets {
		apply(sheet)
	}
	d.dom.Find("style").Each(func(_ int, s *goquery.Selection) {
		apply(ParseStyleSheet(s.Text(), d.base))
	})

	var out []StyledURL
	d.dom.Find("*").Each(func(_ int, s *goquery.Selection) {
		cv, ok := computed[s.Get(0)]
		if style, has := s.Attr("style"); has {
			if v, found := inlineBackgroundImage(style); found {
				cv, ok = computedValue{value: v, base: d.base}, true
			}
		}
		if !ok {
			return
		}
		for _, raw := range extractCSSURLs(cv.value) {
			out = append(out, StyledURL{Raw: raw, Base: cv.base})
		}
	})
	return out
}
