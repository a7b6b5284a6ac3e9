package dsl

import (
	"fmt"

	"github.com/Mindburn-Labs/zanzibar/pkg/authz"
)

// Parse translates DSL text into a list of NamespaceConfig, one per namespace
// block, in source order. Any grammar violation — unknown keyword, unmatched paren,
// wrong operand arity — surfaces as a single *authz.Error of KindParseError
// carrying a line:column-qualified message.
func Parse(src string) ([]*authz.NamespaceConfig, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, authz.NewParseError(err.Error())
	}

	var configs []*authz.NamespaceConfig
	for p.tok.kind != tokenEOF {
		cfg, err := p.parseNamespace()
		if err != nil {
			if _, ok := err.(*authz.Error); !ok {
				// Lexer failures arrive as plain errors; report them as ParseError too.
				err = authz.NewParseError(err.Error())
			}
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) parseErrorf(format string, args ...any) *authz.Error {
	msg := fmt.Sprintf(format, args...)
	return authz.NewParseError(fmt.Sprintf("%s (at %d:%d)", msg, p.tok.line, p.tok.column))
}

func (p *parser) expectIdent(text string) error {
	if p.tok.kind != tokenIdent || p.tok.text != text {
		return p.parseErrorf("expected %q, found %s", text, p.tok)
	}
	return p.advance()
}

func (p *parser) expectKind(kind tokenKind, what string) (token, error) {
	if p.tok.kind != kind {
		return token{}, p.parseErrorf("expected %s, found %s", what, p.tok)
	}
	tok := p.tok
	return tok, p.advance()
}

func (p *parser) parseNamespace() (*authz.NamespaceConfig, error) {
	if err := p.expectIdent("namespace"); err != nil {
		return nil, err
	}
	name, err := p.expectKind(tokenIdent, "namespace identifier")
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKind(tokenLBrace, "'{'"); err != nil {
		return nil, err
	}

	cfg := authz.NewNamespaceConfig(name.text)
	for p.tok.kind != tokenRBrace {
		if p.tok.kind == tokenEOF {
			return nil, p.parseErrorf("unexpected end of input, expected '}' closing namespace %q", name.text)
		}
		relName, relCfg, err := p.parseRelation()
		if err != nil {
			return nil, err
		}
		cfg.Relations[relName] = relCfg
	}
	if _, err := p.expectKind(tokenRBrace, "'}'"); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (p *parser) parseRelation() (authz.Relation, authz.RelationConfig, error) {
	if err := p.expectIdent("relation"); err != nil {
		return "", authz.RelationConfig{}, err
	}
	name, err := p.expectKind(tokenIdent, "relation identifier")
	if err != nil {
		return "", authz.RelationConfig{}, err
	}
	if _, err := p.expectKind(tokenLBrace, "'{'"); err != nil {
		return "", authz.RelationConfig{}, err
	}

	relation := authz.Relation(name.text)
	cfg := authz.RelationConfig{Name: relation}

	if p.tok.kind == tokenIdent && p.tok.text == "rewrite" {
		if err := p.advance(); err != nil {
			return "", authz.RelationConfig{}, err
		}
		expr, err := p.parseExpression()
		if err != nil {
			return "", authz.RelationConfig{}, err
		}
		cfg.Rewrite = &expr
	}

	if _, err := p.expectKind(tokenRBrace, "'}' closing relation block"); err != nil {
		return "", authz.RelationConfig{}, err
	}
	return relation, cfg, nil
}

func (p *parser) parseExpression() (authz.UsersetExpression, error) {
	if p.tok.kind != tokenIdent {
		return authz.UsersetExpression{}, p.parseErrorf("expected an expression, found %s", p.tok)
	}

	switch p.tok.text {
	case "this":
		if err := p.advance(); err != nil {
			return authz.UsersetExpression{}, err
		}
		return authz.This(), nil

	case "computed_userset":
		return p.parseComputedUserset()

	case "tuple_to_userset":
		return p.parseTupleToUserset()

	case "union":
		children, err := p.parseVariadic("union", 1)
		if err != nil {
			return authz.UsersetExpression{}, err
		}
		return authz.Union(children...), nil

	case "intersection":
		children, err := p.parseVariadic("intersection", 1)
		if err != nil {
			return authz.UsersetExpression{}, err
		}
		return authz.Intersection(children...), nil

	case "exclusion":
		return p.parseExclusion()

	default:
		return authz.UsersetExpression{}, p.parseErrorf("unknown expression keyword %q", p.tok.text)
	}
}

func (p *parser) parseComputedUserset() (authz.UsersetExpression, error) {
	if err := p.advance(); err != nil { // consume "computed_userset"
		return authz.UsersetExpression{}, err
	}
	if _, err := p.expectKind(tokenLParen, "'('"); err != nil {
		return authz.UsersetExpression{}, err
	}
	if err := p.expectIdent("relation"); err != nil {
		return authz.UsersetExpression{}, err
	}
	if _, err := p.expectKind(tokenColon, "':'"); err != nil {
		return authz.UsersetExpression{}, err
	}
	rel, err := p.expectKind(tokenString, "relation name string")
	if err != nil {
		return authz.UsersetExpression{}, err
	}
	if _, err := p.expectKind(tokenRParen, "')'"); err != nil {
		return authz.UsersetExpression{}, err
	}
	return authz.ComputedUserset(authz.Relation(rel.text)), nil
}

func (p *parser) parseTupleToUserset() (authz.UsersetExpression, error) {
	if err := p.advance(); err != nil { // consume "tuple_to_userset"
		return authz.UsersetExpression{}, err
	}
	if _, err := p.expectKind(tokenLParen, "'('"); err != nil {
		return authz.UsersetExpression{}, err
	}
	if err := p.expectIdent("tupleset"); err != nil {
		return authz.UsersetExpression{}, err
	}
	if _, err := p.expectKind(tokenColon, "':'"); err != nil {
		return authz.UsersetExpression{}, err
	}
	tupleset, err := p.expectKind(tokenString, "tupleset relation string")
	if err != nil {
		return authz.UsersetExpression{}, err
	}
	if _, err := p.expectKind(tokenComma, "','"); err != nil {
		return authz.UsersetExpression{}, err
	}
	if err := p.expectIdent("computed_userset"); err != nil {
		return authz.UsersetExpression{}, err
	}
	if _, err := p.expectKind(tokenColon, "':'"); err != nil {
		return authz.UsersetExpression{}, err
	}
	computed, err := p.expectKind(tokenString, "computed_userset relation string")
	if err != nil {
		return authz.UsersetExpression{}, err
	}
	if _, err := p.expectKind(tokenRParen, "')'"); err != nil {
		return authz.UsersetExpression{}, err
	}
	return authz.TupleToUserset(authz.Relation(tupleset.text), authz.Relation(computed.text)), nil
}

// parseVariadic parses "keyword" "(" expression ("," expression)* ")" and
// enforces a minimum operand count — 1 for union/intersection per the
// relaxed grammar (see §9 of the design notes).
func (p *parser) parseVariadic(keyword string, minOperands int) ([]authz.UsersetExpression, error) {
	if err := p.advance(); err != nil { // consume keyword
		return nil, err
	}
	if _, err := p.expectKind(tokenLParen, "'('"); err != nil {
		return nil, err
	}

	var children []authz.UsersetExpression
	for {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		children = append(children, expr)
		if p.tok.kind == tokenComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}

	if _, err := p.expectKind(tokenRParen, "')'"); err != nil {
		return nil, err
	}
	if len(children) < minOperands {
		return nil, p.parseErrorf("%s requires at least %d operand(s), found %d", keyword, minOperands, len(children))
	}
	return children, nil
}

func (p *parser) parseExclusion() (authz.UsersetExpression, error) {
	if err := p.advance(); err != nil { // consume "exclusion"
		return authz.UsersetExpression{}, err
	}
	if _, err := p.expectKind(tokenLParen, "'('"); err != nil {
		return authz.UsersetExpression{}, err
	}
	base, err := p.parseExpression()
	if err != nil {
		return authz.UsersetExpression{}, err
	}
	if _, err := p.expectKind(tokenComma, "','"); err != nil {
		return authz.UsersetExpression{}, err
	}
	exclude, err := p.parseExpression()
	if err != nil {
		return authz.UsersetExpression{}, err
	}
	if p.tok.kind == tokenComma {
		return authz.UsersetExpression{}, p.parseErrorf("exclusion requires exactly 2 operands, found a 3rd")
	}
	if _, err := p.expectKind(tokenRParen, "')'"); err != nil {
		return authz.UsersetExpression{}, err
	}
	return authz.Exclusion(base, exclude), nil
}
