// Package css parses stylesheets far enough to get at their selectors:
// style rules, @media blocks, @import, @charset and @namespace. Declarations
// are kept as written.
package css

import (
	"bytes"
	"maps"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"

	"cssinv/dom"
	"cssinv/selectors"
)

// Parser parses CSS stylesheets into structured rules.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// sheetParser holds the state of a single Parse call.
type sheetParser struct {
	*Parser
	gp    *css.Parser
	sheet *Stylesheet
}

// Parse parses CSS text into a Stylesheet.
// The optional source parameter identifies what's being parsed (for debug logging).
//
// Parsing never fails: constructs that can not be used are dropped the way
// a browser drops them and reported in Stylesheet.Warnings.
func (p *Parser) Parse(data []byte, source ...string) *Stylesheet {
	sp := &sheetParser{
		Parser: p,
		gp:     css.NewParser(parse.NewInput(bytes.NewReader(data)), false),
		sheet: &Stylesheet{
			Namespaces: make(map[string]dom.Namespace),
			Items:      make([]StylesheetItem, 0),
			Warnings:   make([]string, 0),
		},
	}

	if len(source) > 0 && source[0] != "" {
		p.log.Debug("Parsing CSS", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	sp.parseTopLevel()

	p.log.Debug("Parsed CSS",
		zap.Int("items", len(sp.sheet.Items)),
		zap.Int("warnings", len(sp.sheet.Warnings)))
	return sp.sheet
}

func (sp *sheetParser) warn(msg string, fields ...zap.Field) {
	sp.sheet.Warnings = append(sp.sheet.Warnings, msg)
	sp.log.Debug(msg, fields...)
}

// parseError reports a grammar error and tells whether parsing may go on.
// The grammar parser signals the end of input with an error as well.
func (sp *sheetParser) parseError() bool {
	if !sp.gp.HasParseError() {
		return false
	}
	sp.warn("parse error: " + sp.gp.Err().Error())
	return true
}

func (sp *sheetParser) parseTopLevel() {
	// @charset, @import and @namespace are only valid before any other rule
	preamble := true

	for {
		gt, _, data := sp.gp.Next()

		switch gt {
		case css.ErrorGrammar:
			if !sp.parseError() {
				return
			}

		case css.BeginAtRuleGrammar:
			preamble = false
			atRule := string(data)
			switch atRule {
			case "@media":
				queries := parseMediaQueryList(sp.gp.Values())
				rules := sp.parseMediaBlockRules()
				sp.log.Debug("Parsed @media block", zap.Stringer("query", queries), zap.Int("rules", len(rules)))
				sp.sheet.Items = append(sp.sheet.Items, StylesheetItem{
					MediaBlock: &MediaBlock{Queries: queries, Rules: rules},
				})
			default:
				sp.skipAtRuleBlock()
				sp.warn("unsupported @-rule skipped: "+atRule, zap.String("rule", atRule))
			}

		case css.AtRuleGrammar:
			atRule := string(data)
			switch {
			case atRule == "@charset" && preamble && sp.sheet.Charset == "" && len(sp.sheet.Items) == 0:
				sp.sheet.Charset = extractString(sp.gp.Values())
				sp.log.Debug("Parsed @charset", zap.String("charset", sp.sheet.Charset))
			case atRule == "@import" && preamble:
				imp := extractImport(sp.gp.Values())
				if imp.URL == "" {
					sp.warn("@import without URL ignored")
					continue
				}
				sp.sheet.Items = append(sp.sheet.Items, StylesheetItem{Import: &imp})
				sp.log.Debug("Parsed @import", zap.String("url", imp.URL))
			case atRule == "@namespace" && preamble:
				sp.parseNamespace(sp.gp.Values())
			default:
				sp.warn("misplaced or unsupported @-rule ignored: "+atRule, zap.String("rule", atRule))
			}

		case css.BeginRulesetGrammar:
			preamble = false
			if rule, ok := sp.parseRule(sp.gp.Values()); ok {
				sp.sheet.Items = append(sp.sheet.Items, StylesheetItem{Rule: rule})
			}
		}
	}
}

// parseNamespace handles "@namespace prefix url(...)". A default namespace
// (no prefix) only affects type selectors, which are not namespaced here.
func (sp *sheetParser) parseNamespace(tokens []css.Token) {
	var prefix string
	for _, t := range tokens {
		switch t.TokenType {
		case css.IdentToken:
			prefix = string(t.Data)
		case css.StringToken, css.URLToken:
			ns := dom.Namespace(extractString([]css.Token{t}))
			if prefix == "" {
				sp.log.Debug("Default namespace ignored", zap.String("namespace", string(ns)))
				return
			}
			sp.sheet.Namespaces[prefix] = ns
			sp.log.Debug("Parsed @namespace", zap.String("prefix", prefix), zap.String("namespace", string(ns)))
			return
		}
	}
	sp.warn("@namespace without URL ignored")
}

// parseRule builds a rule from the selector tokens of a ruleset and the
// declarations that follow. A selector list with any invalid selector drops
// the whole rule.
func (sp *sheetParser) parseRule(tokens []css.Token) (*Rule, bool) {
	text := tokensText(tokens)
	props := sp.parseDeclarations()

	list, err := selectors.ParseList(text, selectors.WithNamespaces(maps.Clone(sp.sheet.Namespaces)))
	if err != nil {
		sp.warn("rule dropped: "+err.Error(), zap.String("selector", text))
		return nil, false
	}
	return &Rule{SelectorText: text, Selectors: list, Properties: props}, true
}

// tokensText joins tokens back into text. The grammar parser has already
// collapsed whitespace runs into single spaces.
func tokensText(tokens []css.Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		sb.Write(t.Data)
	}
	return strings.TrimSpace(sb.String())
}

// extractImport extracts the URL and media list from @import tokens.
// Handles: @import "url"; @import url("url"); @import url(url) screen;
func extractImport(tokens []css.Token) Import {
	for i, t := range tokens {
		switch t.TokenType {
		case css.StringToken, css.URLToken:
			return Import{
				URL:   extractString([]css.Token{t}),
				Media: parseMediaQueryList(tokens[i+1:]),
			}
		}
	}
	return Import{}
}

// extractString returns the first string or url() value of tokens.
func extractString(tokens []css.Token) string {
	for _, t := range tokens {
		switch t.TokenType {
		case css.StringToken:
			return unquote(string(t.Data))
		case css.URLToken:
			s := string(t.Data)
			s = s[strings.IndexByte(s, '(')+1:]
			s = strings.TrimSuffix(s, ")")
			return unquote(strings.TrimSpace(s))
		}
	}
	return ""
}

// parseDeclarations parses property declarations until EndRulesetGrammar.
func (sp *sheetParser) parseDeclarations() map[string]Value {
	props := make(map[string]Value)

	for {
		gt, _, data := sp.gp.Next()

		switch gt {
		case css.ErrorGrammar:
			if !sp.parseError() {
				return props
			}

		case css.EndRulesetGrammar:
			return props

		case css.DeclarationGrammar:
			if values := sp.gp.Values(); len(values) > 0 {
				props[string(data)] = parsePropertyValue(values)
			}

		case css.CustomPropertyGrammar:
			props[string(data)] = Value{Raw: strings.TrimSpace(tokensText(sp.gp.Values()))}
		}
	}
}

// parsePropertyValue converts CSS tokens to a Value, splitting off a
// trailing !important.
func parsePropertyValue(tokens []css.Token) Value {
	var v Value
	if n := len(tokens); n >= 2 &&
		tokens[n-1].TokenType == css.IdentToken && strings.EqualFold(string(tokens[n-1].Data), "important") &&
		tokens[n-2].TokenType == css.DelimToken && string(tokens[n-2].Data) == "!" {
		v.Important = true
		tokens = tokens[:n-2]
	}
	v.Raw = tokensText(tokens)
	return v
}

// skipAtRuleBlock skips tokens until the matching end of an @-rule block.
func (sp *sheetParser) skipAtRuleBlock() {
	depth := 1
	for depth > 0 {
		gt, _, _ := sp.gp.Next()
		switch gt {
		case css.ErrorGrammar:
			if !sp.gp.HasParseError() {
				return
			}
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
}

// parseMediaQueryList parses a comma separated list of media queries such
// as "screen and (min-width: 600px), print".
func parseMediaQueryList(tokens []css.Token) MediaQueryList {
	var (
		list  MediaQueryList
		start int
		level int
	)
	for i, t := range tokens {
		switch t.TokenType {
		case css.LeftParenthesisToken, css.FunctionToken:
			level++
		case css.RightParenthesisToken:
			level--
		case css.CommaToken:
			if level == 0 {
				if mq, ok := parseMediaQuery(tokens[start:i]); ok {
					list = append(list, mq)
				}
				start = i + 1
			}
		}
	}
	if mq, ok := parseMediaQuery(tokens[start:]); ok {
		list = append(list, mq)
	}
	return list
}

// parseMediaQuery parses "[not|only] type [and (feature)]..." or
// "(feature) [and (feature)]...".
func parseMediaQuery(tokens []css.Token) (MediaQuery, bool) {
	mq := MediaQuery{Raw: tokensText(tokens)}
	if mq.Raw == "" {
		return mq, false
	}

	negateNext := false
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		switch t.TokenType {
		case css.IdentToken:
			switch ident := strings.ToLower(string(t.Data)); ident {
			case "not":
				if mq.Type == "" && len(mq.Features) == 0 {
					mq.Negated = true
				} else {
					negateNext = true
				}
			case "only", "and":
			default:
				mq.Type = ident
			}
		case css.LeftParenthesisToken:
			end := i + 1
			for level := 1; end < len(tokens); end++ {
				switch tokens[end].TokenType {
				case css.LeftParenthesisToken, css.FunctionToken:
					level++
				case css.RightParenthesisToken:
					level--
				}
				if level == 0 {
					break
				}
			}
			mq.Features = append(mq.Features, MediaFeature{
				Name:    tokensText(tokens[i+1 : min(end, len(tokens))]),
				Negated: negateNext,
			})
			negateNext = false
			i = end
		}
	}
	// "not (feature)" negates the condition, not a media type
	if mq.Negated && mq.Type == "" && len(mq.Features) > 0 {
		mq.Negated = false
		mq.Features[0].Negated = true
	}
	return mq, true
}

// parseMediaBlockRules parses rules inside an @media block and returns them.
// Nested conditional rules are not supported and are skipped.
func (sp *sheetParser) parseMediaBlockRules() []Rule {
	var rules []Rule

	for {
		gt, _, data := sp.gp.Next()

		switch gt {
		case css.ErrorGrammar:
			if !sp.parseError() {
				return rules
			}

		case css.EndAtRuleGrammar:
			return rules

		case css.BeginAtRuleGrammar:
			sp.skipAtRuleBlock()
			sp.warn("nested @-rule skipped: "+string(data), zap.String("rule", string(data)))

		case css.BeginRulesetGrammar:
			if rule, ok := sp.parseRule(sp.gp.Values()); ok {
				rules = append(rules, *rule)
			}
		}
	}
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
