// Package mathcheck extracts and evaluates arithmetic expressions embedded
// in free text, catching stated answers that do not check out.
package mathcheck

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// tokenKind identifies a lexer token.
type tokenKind int

const (
	tokenNumber tokenKind = iota
	tokenOperator
	tokenLeftParen
	tokenRightParen
	tokenComma
	tokenIdent
	tokenEOF
)

// token is a single lexed token.
type token struct {
	kind  tokenKind
	text  string
	value float64
}

// EvaluateExpression evaluates an arithmetic expression string.
//
// Supported syntax: + - * / ^ (power), parentheses, unary minus, and the
// functions sqrt(x) and pow(x, y). The unicode multiplication and division
// symbols (× ÷) are normalized before parsing. Power is right-associative
// and binds tighter than * and /, which bind tighter than + and -.
//
// Returns the numeric result, or an error if the expression cannot be
// parsed or evaluated.
func EvaluateExpression(expr string) (float64, error) {
	tokens, err := tokenize(normalizeExpression(expr))
	if err != nil {
		return 0, err
	}

	p := &parser{tokens: tokens}
	result, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.peek().kind != tokenEOF {
		return 0, fmt.Errorf("unexpected trailing input %q", p.peek().text)
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, fmt.Errorf("expression %q has no finite value", expr)
	}
	return result, nil
}

// normalizeExpression rewrites unicode operator symbols to their ASCII forms.
func normalizeExpression(expr string) string {
	replacer := strings.NewReplacer("×", "*", "÷", "/", "−", "-")
	return replacer.Replace(expr)
}

// tokenize lexes an expression into tokens.
func tokenize(expr string) ([]token, error) {
	var tokens []token
	runes := []rune(expr)

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.IsDigit(r) || r == '.':
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				i++
			}
			text := string(runes[start:i])
			value, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q", text)
			}
			tokens = append(tokens, token{kind: tokenNumber, text: text, value: value})
		case unicode.IsLetter(r):
			start := i
			for i < len(runes) && unicode.IsLetter(runes[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokenIdent, text: string(runes[start:i])})
		case r == '(':
			tokens = append(tokens, token{kind: tokenLeftParen, text: "("})
			i++
		case r == ')':
			tokens = append(tokens, token{kind: tokenRightParen, text: ")"})
			i++
		case r == ',':
			tokens = append(tokens, token{kind: tokenComma, text: ","})
			i++
		case r == '+' || r == '-' || r == '*' || r == '/' || r == '^':
			tokens = append(tokens, token{kind: tokenOperator, text: string(r)})
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q", string(r))
		}
	}

	tokens = append(tokens, token{kind: tokenEOF})
	return tokens, nil
}

// parser is a recursive-descent evaluator with the grammar
// expr -> term -> power -> factor.
type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokenEOF {
		p.pos++
	}
	return tok
}

// parseExpr handles + and -, left to right.
func (p *parser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokenOperator || (tok.text != "+" && tok.text != "-") {
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if tok.text == "+" {
			left += right
		} else {
			left -= right
		}
	}
}

// parseTerm handles * and /, left to right.
func (p *parser) parseTerm() (float64, error) {
	left, err := p.parsePower()
	if err != nil {
		return 0, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokenOperator || (tok.text != "*" && tok.text != "/") {
			return left, nil
		}
		p.next()
		right, err := p.parsePower()
		if err != nil {
			return 0, err
		}
		if tok.text == "*" {
			left *= right
		} else {
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		}
	}
}

// parsePower handles ^, right associative.
func (p *parser) parsePower() (float64, error) {
	base, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	tok := p.peek()
	if tok.kind == tokenOperator && tok.text == "^" {
		p.next()
		exponent, err := p.parsePower()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exponent), nil
	}
	return base, nil
}

// parseFactor handles numbers, parentheses, unary minus, and function calls.
func (p *parser) parseFactor() (float64, error) {
	tok := p.next()
	switch tok.kind {
	case tokenNumber:
		return tok.value, nil
	case tokenOperator:
		if tok.text == "-" {
			value, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			return -value, nil
		}
		if tok.text == "+" {
			return p.parseFactor()
		}
		return 0, fmt.Errorf("unexpected operator %q", tok.text)
	case tokenLeftParen:
		value, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if closing := p.next(); closing.kind != tokenRightParen {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		return value, nil
	case tokenIdent:
		return p.parseFunction(tok.text)
	default:
		return 0, fmt.Errorf("unexpected token %q", tok.text)
	}
}

// parseFunction handles sqrt(x) and pow(x, y).
//
// sqrt(x) is treated as pow(x, 0.5), keeping evaluation on a single path.
func (p *parser) parseFunction(name string) (float64, error) {
	if opening := p.next(); opening.kind != tokenLeftParen {
		return 0, fmt.Errorf("expected ( after %q", name)
	}

	first, err := p.parseExpr()
	if err != nil {
		return 0, err
	}

	switch strings.ToLower(name) {
	case "sqrt":
		if closing := p.next(); closing.kind != tokenRightParen {
			return 0, fmt.Errorf("missing closing parenthesis in sqrt")
		}
		if first < 0 {
			return 0, fmt.Errorf("sqrt of negative number")
		}
		return math.Pow(first, 0.5), nil
	case "pow":
		if comma := p.next(); comma.kind != tokenComma {
			return 0, fmt.Errorf("pow expects two arguments")
		}
		second, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if closing := p.next(); closing.kind != tokenRightParen {
			return 0, fmt.Errorf("missing closing parenthesis in pow")
		}
		return math.Pow(first, second), nil
	default:
		return 0, fmt.Errorf("unknown function %q", name)
	}
}
