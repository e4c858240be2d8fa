// Package gate evaluates draft content against a knowledge pack: banned-term,
// lexicon and readability checks. The evaluator is pure; callers decide what
// to do with the issues, but severity is declared on the issue itself so no
// caller has to re-derive it.
package gate

import (
	"fmt"
	"math"
	"strings"

	"coursegen-worker/pkg/models"
)

type IssueCode string

const (
	CodeLexicon     IssueCode = "lexicon"
	CodeBannedTerm  IssueCode = "banned_term"
	CodeReadability IssueCode = "readability"
)

type Severity string

const (
	SeverityBlocking Severity = "blocking"
	SeverityAdvisory Severity = "advisory"
)

// Issue is one gate finding for one study-text block.
type Issue struct {
	Code     IssueCode `json:"code"`
	Severity Severity  `json:"severity"`
	Path     string    `json:"path"`
	Message  string    `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s at %s: %s", i.Code, i.Path, i.Message)
}

// Vocabulary and safety violations are correctness failures; readability is
// advisory.
func severityFor(code IssueCode) Severity {
	if code == CodeReadability {
		return SeverityAdvisory
	}
	return SeverityBlocking
}

// functionWords are always permitted by the lexicon check regardless of the
// pack's vocabulary.
var functionWords = map[string]bool{
	"a": true, "an": true, "the": true,
	"i": true, "you": true, "he": true, "she": true, "it": true,
	"we": true, "they": true, "this": true, "that": true,
	"and": true, "or": true, "but": true, "so": true,
	"is": true, "are": true, "was": true, "to": true, "of": true,
}

// Evaluate runs all three checks independently over every study text and
// accumulates issues; it never short-circuits. A block can emit up to one
// issue per check. An empty result means the content passes the gate.
func Evaluate(draft *models.CourseDraft, pack *models.KnowledgePack) []Issue {
	var issues []Issue
	if draft == nil || pack == nil {
		return issues
	}

	allowed := make(map[string]bool, len(pack.AllowedVocab.Content)+len(pack.AllowedVocab.Function))
	for _, w := range pack.AllowedVocab.Content {
		allowed[strings.ToLower(w)] = true
	}
	for _, w := range pack.AllowedVocab.Function {
		allowed[strings.ToLower(w)] = true
	}

	maxWordsPerSentence := sentenceBound(pack.ReadingLevelMax)

	for _, text := range draft.StudyTexts {
		path := fmt.Sprintf("studyTexts.%s", text.ID)

		if issue := checkBannedTerms(text.Content, path, pack.BannedTerms); issue != nil {
			issues = append(issues, *issue)
		}
		// An empty vocabulary means the pack does not restrict the lexicon
		// (the default fallback pack works this way).
		if len(allowed) > 0 {
			if issue := checkLexicon(text.Content, path, allowed); issue != nil {
				issues = append(issues, *issue)
			}
		}
		if issue := checkReadability(text.Content, path, maxWordsPerSentence); issue != nil {
			issues = append(issues, *issue)
		}
	}

	return issues
}

// Blocking returns only the issues that must fail the content.
func Blocking(issues []Issue) []Issue {
	var out []Issue
	for _, issue := range issues {
		if issue.Severity == SeverityBlocking {
			out = append(out, issue)
		}
	}
	return out
}

// sentenceBound scales the pack's reading level to a mean words-per-sentence
// ceiling, clamped to [6, 12].
func sentenceBound(readingLevelMax float64) int {
	bound := int(math.Round(readingLevelMax * 6))
	if bound < 6 {
		bound = 6
	}
	if bound > 12 {
		bound = 12
	}
	return bound
}

func checkBannedTerms(content, path string, bannedTerms []string) *Issue {
	lowered := strings.ToLower(content)
	for _, term := range bannedTerms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if strings.Contains(lowered, term) {
			return &Issue{
				Code:     CodeBannedTerm,
				Severity: severityFor(CodeBannedTerm),
				Path:     path,
				Message:  fmt.Sprintf("text contains banned term %q", term),
			}
		}
	}
	return nil
}

// checkLexicon fails the whole block on the first disallowed token; issue
// granularity is per-text, not per-token.
func checkLexicon(content, path string, allowed map[string]bool) *Issue {
	for _, token := range tokenize(content) {
		if functionWords[token] || allowed[token] {
			continue
		}
		return &Issue{
			Code:     CodeLexicon,
			Severity: severityFor(CodeLexicon),
			Path:     path,
			Message:  fmt.Sprintf("word %q is not in the allowed vocabulary", token),
		}
	}
	return nil
}

func checkReadability(content, path string, maxWordsPerSentence int) *Issue {
	sentences := splitSentences(content)
	if len(sentences) == 0 {
		return nil
	}

	totalWords := 0
	for _, sentence := range sentences {
		totalWords += len(strings.Fields(sentence))
	}
	mean := float64(totalWords) / float64(len(sentences))

	if mean > float64(maxWordsPerSentence) {
		return &Issue{
			Code:     CodeReadability,
			Severity: severityFor(CodeReadability),
			Path:     path,
			Message: fmt.Sprintf("mean sentence length %.1f words exceeds the limit of %d",
				mean, maxWordsPerSentence),
		}
	}
	return nil
}

// tokenize lowercases, strips non-alphanumerics and splits on whitespace.
func tokenize(content string) []string {
	normalized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return ' '
		}
	}, content)

	return strings.Fields(normalized)
}

func splitSentences(content string) []string {
	raw := strings.FieldsFunc(content, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	var sentences []string
	for _, s := range raw {
		if strings.TrimSpace(s) != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}
