package rules

import (
	"regexp"
	"strings"

	"github.com/pankaj-dahiya-devops/cloud-misconfig-checker/internal/models"
)

// Predicate is one condition over a RuleContext. Detectors are built by
// composing predicates; every regular expression is compiled when the
// predicate is constructed, which for the built-in corpus is package init.
type Predicate func(ctx RuleContext) bool

// Match tests pattern against the canonical text.
func Match(pattern string) Predicate {
	re := regexp.MustCompile(pattern)
	return func(ctx RuleContext) bool { return re.MatchString(ctx.Text) }
}

// MatchCompact tests pattern against the whitespace-stripped canonical text.
func MatchCompact(pattern string) Predicate {
	re := regexp.MustCompile(pattern)
	return func(ctx RuleContext) bool { return re.MatchString(ctx.Compact) }
}

// MatchSource tests pattern against the original input text.
func MatchSource(pattern string) Predicate {
	re := regexp.MustCompile(pattern)
	return func(ctx RuleContext) bool { return re.MatchString(ctx.Source()) }
}

// Contains reports whether the canonical text contains any of subs.
func Contains(subs ...string) Predicate {
	return func(ctx RuleContext) bool {
		for _, s := range subs {
			if strings.Contains(ctx.Text, s) {
				return true
			}
		}
		return false
	}
}

func All(ps ...Predicate) Predicate {
	return func(ctx RuleContext) bool {
		for _, p := range ps {
			if !p(ctx) {
				return false
			}
		}
		return true
	}
}

func Any(ps ...Predicate) Predicate {
	return func(ctx RuleContext) bool {
		for _, p := range ps {
			if p(ctx) {
				return true
			}
		}
		return false
	}
}

func Not(p Predicate) Predicate {
	return func(ctx RuleContext) bool { return !p(ctx) }
}

func TypeIs(t models.ConfigType) Predicate {
	return func(ctx RuleContext) bool { return ctx.ConfigType == t }
}

// Structured holds when the document decoded into a tree.
func Structured() Predicate {
	return func(ctx RuleContext) bool { return ctx.Document != nil && ctx.Document.Structured() }
}

// Unstructured holds when both decoders rejected the input.
func Unstructured() Predicate {
	return func(ctx RuleContext) bool { return ctx.Document == nil || !ctx.Document.Structured() }
}

// CountAbove holds when re matches the canonical text more than N times,
// where N is the rule's policy param or def.
func CountAbove(re *regexp.Regexp, param string, def float64) Predicate {
	return func(ctx RuleContext) bool {
		return float64(CountMatches(re, ctx.Text)) > ctx.Param(param, def)
	}
}

// DistinctAbove is CountAbove over distinct match strings.
func DistinctAbove(re *regexp.Regexp, param string, def float64) Predicate {
	return func(ctx RuleContext) bool {
		return float64(CountDistinct(re, ctx.Text)) > ctx.Param(param, def)
	}
}

func CountMatches(re *regexp.Regexp, text string) int {
	return len(re.FindAllStringIndex(text, -1))
}

func CountDistinct(re *regexp.Regexp, text string) int {
	seen := make(map[string]struct{})
	for _, m := range re.FindAllString(text, -1) {
		seen[m] = struct{}{}
	}
	return len(seen)
}
