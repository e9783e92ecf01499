package documentstore

import (
	"fmt"
	"strings"
)

// ParseUpdateExpression implements the grammar of spec §4.4.3:
//
//	update  ← clause+
//	clause  ← SET set_list | REMOVE path_list | ADD add_list | DELETE del_list
func ParseUpdateExpression(src string) (*UpdateExpr, error) {
	toks, err := lexExpr(src)
	if err != nil {
		return nil, err
	}
	p := &updateParser{toks: toks}
	expr := &UpdateExpr{}
	if p.cur().kind == tokEOF {
		return nil, fmt.Errorf("expression: update expression must contain at least one clause")
	}
	for p.cur().kind != tokEOF {
		switch {
		case p.isKeyword("SET"):
			p.advance()
			sets, err := p.parseSetList()
			if err != nil {
				return nil, err
			}
			expr.Sets = append(expr.Sets, sets...)
		case p.isKeyword("REMOVE"):
			p.advance()
			paths, err := p.parsePathList()
			if err != nil {
				return nil, err
			}
			expr.Removes = append(expr.Removes, paths...)
		case p.isKeyword("ADD"):
			p.advance()
			adds, err := p.parseAddList()
			if err != nil {
				return nil, err
			}
			expr.Adds = append(expr.Adds, adds...)
		case p.isKeyword("DELETE"):
			p.advance()
			dels, err := p.parseDeleteList()
			if err != nil {
				return nil, err
			}
			expr.Deletes = append(expr.Deletes, dels...)
		default:
			return nil, p.errorf("expected SET, REMOVE, ADD, or DELETE, got %q", p.cur().text)
		}
	}
	return expr, nil
}

type updateParser struct {
	toks []token
	pos  int
}

func (p *updateParser) cur() token { return p.toks[p.pos] }
func (p *updateParser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}
func (p *updateParser) isKeyword(word string) bool {
	t := p.cur()
	return t.kind == tokIdent && strings.EqualFold(t.text, word)
}
func (p *updateParser) errorf(format string, args ...any) error {
	return fmt.Errorf("expression: %s at position %d", fmt.Sprintf(format, args...), p.cur().pos)
}

func (p *updateParser) atClauseKeyword() bool {
	return p.isKeyword("SET") || p.isKeyword("REMOVE") || p.isKeyword("ADD") || p.isKeyword("DELETE")
}

// set_list ← set_action ("," set_action)*
func (p *updateParser) parseSetList() ([]SetAction, error) {
	var out []SetAction
	for {
		path, err := p.parsePathText()
		if err != nil {
			return nil, err
		}
		if p.cur().kind != tokOp || p.cur().text != "=" {
			return nil, p.errorf("expected '=' in SET action")
		}
		p.advance()
		ve, err := p.parseValueExpr()
		if err != nil {
			return nil, err
		}
		out = append(out, SetAction{Path: path, Expr: ve})
		if p.cur().kind == tokComma {
			p.advance()
			continue
		}
		break
	}
	return out, nil
}

// value_expr ← value_atom ((+|-) value_atom)?
func (p *updateParser) parseValueExpr() (ValueExpr, error) {
	left, err := p.parseValueAtom()
	if err != nil {
		return nil, err
	}
	switch p.cur().kind {
	case tokPlus:
		p.advance()
		right, err := p.parseValueAtom()
		if err != nil {
			return nil, err
		}
		return ArithExpr{Op: '+', Left: left, Right: right}, nil
	case tokMinus:
		p.advance()
		right, err := p.parseValueAtom()
		if err != nil {
			return nil, err
		}
		return ArithExpr{Op: '-', Left: left, Right: right}, nil
	default:
		return left, nil
	}
}

// value_atom ← func_call | value_ref | name_ref | path | literal
func (p *updateParser) parseValueAtom() (ValueExpr, error) {
	t := p.cur()
	if t.kind == tokIdent && strings.EqualFold(t.text, "if_not_exists") {
		p.advance()
		if p.cur().kind != tokLParen {
			return nil, p.errorf("expected '(' after if_not_exists")
		}
		p.advance()
		path, err := p.parsePathText()
		if err != nil {
			return nil, err
		}
		if p.cur().kind != tokComma {
			return nil, p.errorf("expected ',' in if_not_exists(...)")
		}
		p.advance()
		def, err := p.parseValueExpr()
		if err != nil {
			return nil, err
		}
		if p.cur().kind != tokRParen {
			return nil, p.errorf("expected ')' to close if_not_exists(...)")
		}
		p.advance()
		return IfNotExistsExpr{Path: path, Default: def}, nil
	}
	if t.kind == tokIdent && strings.EqualFold(t.text, "list_append") {
		p.advance()
		if p.cur().kind != tokLParen {
			return nil, p.errorf("expected '(' after list_append")
		}
		p.advance()
		a, err := p.parseValueExpr()
		if err != nil {
			return nil, err
		}
		if p.cur().kind != tokComma {
			return nil, p.errorf("expected ',' in list_append(...)")
		}
		p.advance()
		b, err := p.parseValueExpr()
		if err != nil {
			return nil, err
		}
		if p.cur().kind != tokRParen {
			return nil, p.errorf("expected ')' to close list_append(...)")
		}
		p.advance()
		return ListAppendExpr{A: a, B: b}, nil
	}

	ep := &ExprParser{toks: p.toks, pos: p.pos}
	node, err := ep.parseOperand()
	if err != nil {
		return nil, err
	}
	p.pos = ep.pos
	return AtomExpr{Node: node}, nil
}

// path_list ← path ("," path)*
func (p *updateParser) parsePathList() ([]string, error) {
	var out []string
	for {
		path, err := p.parsePathText()
		if err != nil {
			return nil, err
		}
		out = append(out, path)
		if p.cur().kind == tokComma {
			p.advance()
			continue
		}
		break
	}
	return out, nil
}

// add_list ← add_action ("," add_action)*, add_action ← path value_atom
func (p *updateParser) parseAddList() ([]AddAction, error) {
	var out []AddAction
	for {
		path, err := p.parsePathText()
		if err != nil {
			return nil, err
		}
		val, err := p.parseValueRefOrLiteral()
		if err != nil {
			return nil, err
		}
		out = append(out, AddAction{Path: path, Value: val})
		if p.cur().kind == tokComma {
			p.advance()
			continue
		}
		break
	}
	return out, nil
}

func (p *updateParser) parseDeleteList() ([]DeleteAction, error) {
	var out []DeleteAction
	for {
		path, err := p.parsePathText()
		if err != nil {
			return nil, err
		}
		val, err := p.parseValueRefOrLiteral()
		if err != nil {
			return nil, err
		}
		out = append(out, DeleteAction{Path: path, Value: val})
		if p.cur().kind == tokComma {
			p.advance()
			continue
		}
		break
	}
	return out, nil
}

func (p *updateParser) parseValueRefOrLiteral() (Node, error) {
	ep := &ExprParser{toks: p.toks, pos: p.pos}
	node, err := ep.parseOperand()
	if err != nil {
		return nil, err
	}
	p.pos = ep.pos
	return node, nil
}

func (p *updateParser) parsePathText() (string, error) {
	ep := &ExprParser{toks: p.toks, pos: p.pos}
	node, err := ep.parsePath()
	if err != nil {
		return "", err
	}
	p.pos = ep.pos
	pn, ok := node.(PathNode)
	if !ok {
		return "", p.errorf("expected attribute path")
	}
	return pn.Path, nil
}
