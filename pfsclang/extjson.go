package pfsclang

import (
	"fmt"
	"strconv"
)

// JSONValue is a restricted extended-JSON literal: the usual JSON value
// kinds, but permitting unquoted identifier object keys and the Python/JS
// boolean-null spellings, per the grammar's `tla` (top-level assignment)
// right-hand-side rule.
type JSONValue struct {
	Kind JSONKind
	Str  string
	Num  float64
	Bool bool
	Arr  []JSONValue
	Obj  []JSONField // order-preserving
}

// JSONField is one key/value pair of a JSONValue object, in source order.
type JSONField struct {
	Key   string
	Value JSONValue
}

// JSONKind enumerates the possible JSONValue shapes.
type JSONKind int

const (
	JSONNull JSONKind = iota
	JSONBool
	JSONNumber
	JSONString
	JSONArray
	JSONObject
)

// jsonParser parses a JSONValue out of a token stream positioned at its
// first token.
type jsonParser struct {
	p *Parser
}

func (p *Parser) parseJSONValue() (JSONValue, error) {
	jp := jsonParser{p: p}
	return jp.value()
}

func (jp jsonParser) value() (JSONValue, error) {
	tok := jp.p.peek()
	switch {
	case tok.Kind == TokString:
		jp.p.advance()
		return JSONValue{Kind: JSONString, Str: tok.Value}, nil
	case tok.Kind == TokNumber:
		jp.p.advance()
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return JSONValue{}, fmt.Errorf("pfsclang: invalid number %q at line %d", tok.Value, tok.Line)
		}
		return JSONValue{Kind: JSONNumber, Num: f}, nil
	case tok.Kind == TokKeyword && (tok.Value == "true" || tok.Value == "True"):
		jp.p.advance()
		return JSONValue{Kind: JSONBool, Bool: true}, nil
	case tok.Kind == TokKeyword && (tok.Value == "false" || tok.Value == "False"):
		jp.p.advance()
		return JSONValue{Kind: JSONBool, Bool: false}, nil
	case tok.Kind == TokKeyword && (tok.Value == "null" || tok.Value == "None"):
		jp.p.advance()
		return JSONValue{Kind: JSONNull}, nil
	case tok.Kind == TokLBrack:
		return jp.array()
	case tok.Kind == TokLBrace:
		return jp.object()
	default:
		return JSONValue{}, fmt.Errorf("pfsclang: expected a value at line %d, got %v", tok.Line, tok)
	}
}

func (jp jsonParser) array() (JSONValue, error) {
	if _, err := jp.p.expect(TokLBrack); err != nil {
		return JSONValue{}, err
	}
	var elems []JSONValue
	for jp.p.peek().Kind != TokRBrack {
		v, err := jp.value()
		if err != nil {
			return JSONValue{}, err
		}
		elems = append(elems, v)
		if jp.p.peek().Kind == TokComma {
			jp.p.advance()
			continue
		}
		break
	}
	if _, err := jp.p.expect(TokRBrack); err != nil {
		return JSONValue{}, err
	}
	return JSONValue{Kind: JSONArray, Arr: elems}, nil
}

func (jp jsonParser) object() (JSONValue, error) {
	if _, err := jp.p.expect(TokLBrace); err != nil {
		return JSONValue{}, err
	}
	var fields []JSONField
	for jp.p.peek().Kind != TokRBrace {
		keyTok := jp.p.peek()
		var key string
		switch keyTok.Kind {
		case TokString:
			key = keyTok.Value
			jp.p.advance()
		case TokIdent, TokKeyword:
			key = keyTok.Value
			jp.p.advance()
		default:
			return JSONValue{}, fmt.Errorf("pfsclang: expected object key at line %d, got %v", keyTok.Line, keyTok)
		}
		if _, err := jp.p.expect(TokColon); err != nil {
			return JSONValue{}, err
		}
		v, err := jp.value()
		if err != nil {
			return JSONValue{}, err
		}
		fields = append(fields, JSONField{Key: key, Value: v})
		if jp.p.peek().Kind == TokComma {
			jp.p.advance()
			continue
		}
		break
	}
	if _, err := jp.p.expect(TokRBrace); err != nil {
		return JSONValue{}, err
	}
	return JSONValue{Kind: JSONObject, Obj: fields}, nil
}

// Get returns the value of the named field of an object JSONValue, and
// whether it was present.
func (v JSONValue) Get(key string) (JSONValue, bool) {
	if v.Kind != JSONObject {
		return JSONValue{}, false
	}
	for _, f := range v.Obj {
		if f.Key == key {
			return f.Value, true
		}
	}
	return JSONValue{}, false
}

// AsString returns Str if Kind is JSONString.
func (v JSONValue) AsString() (string, bool) {
	if v.Kind != JSONString {
		return "", false
	}
	return v.Str, true
}
