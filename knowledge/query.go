package knowledge

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultTopK     = 3
	ResultSeparator = "\n\n---\n\n"

	phraseBoost     = 5
	phrasePrefixLen = 30
)

type Match struct {
	DocID   string
	Score   int
	Content string
}

// QueryContext returns the content of the topK best matching documents
// joined with ResultSeparator, or an empty string when nothing matches.
// A non-positive topK means DefaultTopK. On ErrInternal the result is
// empty as well.
func (e *Engine) QueryContext(question string, topK int) (string, error) {
	matches, err := e.Query(question, topK)
	if err != nil {
		return "", err
	}

	contents := make([]string, 0, len(matches))
	for _, m := range matches {
		contents = append(contents, m.Content)
	}

	return strings.Join(contents, ResultSeparator), nil
}

// Query scores every document against question and returns the topK best,
// highest score first. Documents with equal scores keep their insertion
// order; documents scoring zero are left out.
func (e *Engine) Query(question string, topK int) (matches []Match, err error) {
	start := time.Now()
	defer func() {
		e.metrics.latency.Observe(time.Since(start).Seconds())
		switch {
		case err != nil:
			e.metrics.queries.WithLabelValues("error").Inc()
			e.log.Error("query failed", "query", truncate(question, 50), "error", err)
		case len(matches) == 0:
			e.metrics.queries.WithLabelValues("miss").Inc()
		default:
			e.metrics.queries.WithLabelValues("hit").Inc()
		}
	}()
	defer recoverInternal(&err)

	if topK <= 0 {
		topK = DefaultTopK
	}

	docs := e.store.Docs()
	if len(docs) == 0 {
		e.log.Debug("no documents indexed yet")
		return nil, nil
	}

	q := strings.ToLower(question)
	terms := queryTerms(q)
	phrase := prefix(q, phrasePrefixLen)

	for _, d := range docs {
		s := score(terms, phrase, strings.ToLower(d.Content))
		if s > 0 {
			matches = append(matches, Match{DocID: d.ID, Score: s, Content: d.Content})
		}
	}

	slices.SortStableFunc(matches, func(a, b Match) int {
		return b.Score - a.Score
	})
	matches = matches[:min(topK, len(matches))]

	if len(matches) == 0 {
		e.log.Debug("no results for query", "query", truncate(question, 50))
		return nil, nil
	}

	chars := 0
	for i, m := range matches {
		if i > 0 {
			chars += len(ResultSeparator)
		}
		chars += utf8.RuneCountInString(m.Content)
	}
	e.log.Info("query answered",
		"query", truncate(question, 50),
		"terms", len(terms),
		"results", len(matches),
		"chars", chars)

	return matches, nil
}

// score counts the query terms contained anywhere in content, including
// inside longer words, plus phraseBoost if content contains phrase.
// Both arguments are expected lowercased.
func score(terms []string, phrase, content string) int {
	s := 0
	for _, t := range terms {
		if strings.Contains(content, t) {
			s++
		}
	}

	if strings.Contains(content, phrase) {
		s += phraseBoost
	}

	return s
}

func queryTerms(q string) []string {
	var terms []string
	seen := make(map[string]struct{})
	for _, t := range strings.Fields(q) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
	}

	return terms
}

// prefix returns the first n runes of s.
func prefix(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}

	return s
}

func truncate(s string, n int) string {
	p := prefix(s, n)
	if len(p) < len(s) {
		return p + "..."
	}

	return p
}
