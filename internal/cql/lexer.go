package cql

import (
	"strings"
	"unicode"

	"github.com/mdouchement/batchprint/internal/bperror"
)

type tokenKind int

const (
	tokenBare tokenKind = iota
	tokenQuoted
	tokenOperator
)

type token struct {
	kind tokenKind
	text string
}

// lex splits the expression into bare words, quoted strings and comparison
// operators. Operators need no surrounding whitespace (type="SINGLE").
func lex(expression string) ([]token, error) {
	var tokens []token
	runes := []rune(expression)

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '"':
			text, next, err := lexQuoted(runes, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokenQuoted, text: text})
			i = next
		case isOperatorRune(r):
			text, next := lexOperator(runes, i)
			tokens = append(tokens, token{kind: tokenOperator, text: text})
			i = next
		default:
			start := i
			for i < len(runes) && !unicode.IsSpace(runes[i]) && !isOperatorRune(runes[i]) && runes[i] != '"' {
				i++
			}
			tokens = append(tokens, token{kind: tokenBare, text: string(runes[start:i])})
		}
	}
	return tokens, nil
}

func lexQuoted(runes []rune, start int) (string, int, error) {
	var sb strings.Builder
	for i := start + 1; i < len(runes); i++ {
		switch runes[i] {
		case '\\':
			if i+1 >= len(runes) {
				return "", 0, bperror.Entry("unterminated escape in query string")
			}
			i++
			sb.WriteRune(runes[i])
		case '"':
			return sb.String(), i + 1, nil
		default:
			sb.WriteRune(runes[i])
		}
	}
	return "", 0, bperror.Entry("unterminated string in query")
}

var operators = []string{"==", "<=", ">=", "<>", "=", "<", ">"}

func isOperatorRune(r rune) bool {
	return r == '=' || r == '<' || r == '>'
}

func lexOperator(runes []rune, start int) (string, int) {
	rest := string(runes[start:])
	for _, op := range operators {
		if strings.HasPrefix(rest, op) {
			return op, start + len(op)
		}
	}
	return string(runes[start]), start + 1
}
