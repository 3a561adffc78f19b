// Package css checks stylesheets injected into pages.
package css

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Summary describes linted stylesheet.
type Summary struct {
	Rules        int      // rulesets, including nested in @-rules
	AtRules      []string // names of @-rules in order
	Selectors    []string // all selectors, grouped selectors are split
	Declarations int
	Warnings     []string
}

// Linter walks stylesheet with tolerant parser and collects problems which
// would make rules silently ineffective in browser.
type Linter struct {
	log *zap.Logger
}

func NewLinter(log *zap.Logger) *Linter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Linter{log: log.Named("css-lint")}
}

// Lint never fails, problems are reported as warnings. The optional source
// parameter identifies what's being checked.
func (l *Linter) Lint(data []byte, source ...string) *Summary {
	sum := &Summary{}
	if len(source) > 0 && source[0] != "" {
		l.log.Debug("Linting CSS", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	parser := css.NewParser(parse.NewInput(bytes.NewReader(data)), false)

	var (
		depth     int
		current   []string // selectors of the innermost open ruleset
		declCount int
	)
	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				sum.Warnings = append(sum.Warnings, fmt.Sprintf("parse error: %v", err))
			}
			if depth > 0 {
				sum.Warnings = append(sum.Warnings, fmt.Sprintf("%d block(s) not closed at the end of stylesheet", depth))
			}
			l.log.Debug("CSS linted", zap.Int("rules", sum.Rules), zap.Int("warnings", len(sum.Warnings)))
			return sum

		case css.AtRuleGrammar:
			sum.AtRules = append(sum.AtRules, string(data))

		case css.BeginAtRuleGrammar:
			sum.AtRules = append(sum.AtRules, string(data))
			depth++

		case css.EndAtRuleGrammar:
			depth--

		case css.BeginRulesetGrammar:
			current = selectors(data, parser.Values())
			if len(current) == 0 {
				sum.Warnings = append(sum.Warnings, "ruleset without selector")
			}
			sum.Selectors = append(sum.Selectors, current...)
			sum.Rules++
			declCount = 0
			depth++

		case css.EndRulesetGrammar:
			if declCount == 0 {
				sum.Warnings = append(sum.Warnings, fmt.Sprintf("empty ruleset %q", strings.Join(current, ", ")))
			}
			depth--

		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			declCount++
			sum.Declarations++
			if gt == css.DeclarationGrammar && len(parser.Values()) == 0 {
				sum.Warnings = append(sum.Warnings, fmt.Sprintf("property %q has no value in %q", data, strings.Join(current, ", ")))
			}
		}
	}
}

func selectors(data []byte, values []css.Token) []string {
	var sb strings.Builder
	sb.Write(data)
	for _, v := range values {
		sb.Write(v.Data)
	}

	var out []string
	for s := range strings.SplitSeq(sb.String(), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
