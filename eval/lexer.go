package eval

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokTrue
	tokFalse
	tokAnd
	tokOr
	tokNot
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokDoubleSlash
	tokPercent
	tokDoubleStar
	tokLt
	tokLte
	tokGt
	tokGte
	tokEq
	tokNeq
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokComma
)

var tokenNames = map[tokenKind]string{
	tokEOF:         "end of expression",
	tokNumber:      "number",
	tokString:      "string",
	tokIdent:       "identifier",
	tokPlus:        "+",
	tokMinus:       "-",
	tokStar:        "*",
	tokSlash:       "/",
	tokDoubleSlash: "//",
	tokPercent:     "%",
	tokDoubleStar:  "**",
	tokLt:          "<",
	tokLte:         "<=",
	tokGt:          ">",
	tokGte:         ">=",
	tokEq:          "==",
	tokNeq:         "!=",
	tokLParen:      "(",
	tokRParen:      ")",
	tokLBracket:    "[",
	tokRBracket:    "]",
	tokComma:       ",",
	tokAnd:         "and",
	tokOr:          "or",
	tokNot:         "not",
	tokTrue:        "true",
	tokFalse:       "false",
}

func (k tokenKind) String() string {
	if n, ok := tokenNames[k]; ok {
		return n
	}
	return fmt.Sprintf("token(%d)", int(k))
}

type token struct {
	kind tokenKind
	text string
	pos  int
}

// keywords maps the reserved words of the grammar. True/False are accepted
// alongside true/false so expressions written for the palette UI keep
// working regardless of capitalization habit.
var keywords = map[string]tokenKind{
	"and":   tokAnd,
	"or":    tokOr,
	"not":   tokNot,
	"true":  tokTrue,
	"True":  tokTrue,
	"false": tokFalse,
	"False": tokFalse,
}

// lex splits an expression into tokens. Any character outside the grammar is
// an error; there is no escape hatch.
func lex(input string) ([]token, error) {
	var toks []token
	runes := []rune(input)
	i := 0

	for i < len(runes) {
		r := runes[i]

		if unicode.IsSpace(r) {
			i++
			continue
		}

		switch r {
		case '+':
			toks = append(toks, token{tokPlus, "+", i})
			i++
			continue
		case '-':
			toks = append(toks, token{tokMinus, "-", i})
			i++
			continue
		case '%':
			toks = append(toks, token{tokPercent, "%", i})
			i++
			continue
		case '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
			continue
		case ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
			continue
		case '[':
			toks = append(toks, token{tokLBracket, "[", i})
			i++
			continue
		case ']':
			toks = append(toks, token{tokRBracket, "]", i})
			i++
			continue
		case ',':
			toks = append(toks, token{tokComma, ",", i})
			i++
			continue
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				toks = append(toks, token{tokDoubleStar, "**", i})
				i += 2
			} else {
				toks = append(toks, token{tokStar, "*", i})
				i++
			}
			continue
		case '/':
			if i+1 < len(runes) && runes[i+1] == '/' {
				toks = append(toks, token{tokDoubleSlash, "//", i})
				i += 2
			} else {
				toks = append(toks, token{tokSlash, "/", i})
				i++
			}
			continue
		case '<':
			if i+1 < len(runes) && runes[i+1] == '=' {
				toks = append(toks, token{tokLte, "<=", i})
				i += 2
			} else {
				toks = append(toks, token{tokLt, "<", i})
				i++
			}
			continue
		case '>':
			if i+1 < len(runes) && runes[i+1] == '=' {
				toks = append(toks, token{tokGte, ">=", i})
				i += 2
			} else {
				toks = append(toks, token{tokGt, ">", i})
				i++
			}
			continue
		case '=':
			if i+1 < len(runes) && runes[i+1] == '=' {
				toks = append(toks, token{tokEq, "==", i})
				i += 2
				continue
			}
			return nil, fmt.Errorf("assignment is not allowed (position %d)", i)
		case '!':
			if i+1 < len(runes) && runes[i+1] == '=' {
				toks = append(toks, token{tokNeq, "!=", i})
				i += 2
				continue
			}
			return nil, fmt.Errorf("unexpected character '!' at position %d", i)
		case '\'', '"':
			lit, next, err := lexString(runes, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{tokString, lit, i})
			i = next
			continue
		}

		if unicode.IsDigit(r) || (r == '.' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])) {
			lit, next := lexNumber(runes, i)
			toks = append(toks, token{tokNumber, lit, i})
			i = next
			continue
		}

		if unicode.IsLetter(r) || r == '_' {
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}
			word := string(runes[start:i])
			if kw, ok := keywords[word]; ok {
				toks = append(toks, token{kw, word, start})
			} else {
				toks = append(toks, token{tokIdent, word, start})
			}
			continue
		}

		if r == '.' {
			return nil, fmt.Errorf("attribute access is not allowed (position %d)", i)
		}
		return nil, fmt.Errorf("unexpected character %q at position %d", string(r), i)
	}

	toks = append(toks, token{tokEOF, "", len(runes)})
	return toks, nil
}

func lexString(runes []rune, start int) (string, int, error) {
	quote := runes[start]
	var sb strings.Builder
	i := start + 1
	for i < len(runes) {
		r := runes[i]
		if r == '\\' && i+1 < len(runes) {
			next := runes[i+1]
			switch next {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case '\\', '\'', '"':
				sb.WriteRune(next)
			default:
				sb.WriteRune(next)
			}
			i += 2
			continue
		}
		if r == quote {
			return sb.String(), i + 1, nil
		}
		sb.WriteRune(r)
		i++
	}
	return "", 0, fmt.Errorf("unterminated string starting at position %d", start)
}

func lexNumber(runes []rune, start int) (string, int) {
	i := start
	seenDot := false
	seenExp := false
	for i < len(runes) {
		r := runes[i]
		if unicode.IsDigit(r) {
			i++
			continue
		}
		if r == '.' && !seenDot && !seenExp {
			// A second '.' ends the literal; the parser will reject the rest.
			if i+1 < len(runes) && runes[i+1] == '.' {
				break
			}
			seenDot = true
			i++
			continue
		}
		if (r == 'e' || r == 'E') && !seenExp && i+1 < len(runes) &&
			(unicode.IsDigit(runes[i+1]) || ((runes[i+1] == '+' || runes[i+1] == '-') && i+2 < len(runes) && unicode.IsDigit(runes[i+2]))) {
			seenExp = true
			i++
			if runes[i] == '+' || runes[i] == '-' {
				i++
			}
			continue
		}
		break
	}
	return string(runes[start:i]), i
}
