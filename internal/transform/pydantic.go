// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transform

import (
	"strings"

	"github.com/migrapy/migrapy/internal/cst"
	"github.com/migrapy/migrapy/internal/knowledge"
	"github.com/migrapy/migrapy/internal/usage"
)

// Pydantic returns the Tier-1 transformer for pydantic's 1.x → 2.x
// migration: the three rewrites spec.md's S1–S3 scenarios exercise.
func Pydantic() *Transformer {
	return &Transformer{
		Library: "pydantic",
		Rules: []Rule{
			pydanticMethodRename(),
			pydanticValidatorDecorator(),
			pydanticConfigRestructure(),
		},
	}
}

// pydanticMethodRename renames `.dict()` → `.model_dump()` and
// `.json()` → `.model_dump_json()`. Without full type inference there is
// no way to confirm the receiver is a BaseModel instance, so this is the
// textbook medium-confidence heuristic match the rule-authoring section
// itself uses as an example: any `.dict()`/`.json()` call, gated only on
// pydantic being in scope in this file.
func pydanticMethodRename() Rule {
	renames := map[string]string{"dict": "model_dump", "json": "model_dump_json"}
	return Rule{
		Name:       "pydanticMethodRename",
		Kind:       knowledge.MethodRename,
		Confidence: knowledge.Medium,
		Match: func(c *cst.Cursor, idx *usage.Index) Match {
			if len(idx.Imports) == 0 {
				return noMatch
			}
			n := c.Node
			if n.Type() != "attribute" {
				return noMatch
			}
			p := c.Parent()
			if p == nil || p.Type() != "call" {
				return noMatch
			}
			attr := n.ChildByFieldName("attribute")
			if attr == nil {
				return noMatch
			}
			newName, ok := renames[attr.Text()]
			if !ok {
				return noMatch
			}
			obj := n.ChildByFieldName("object")
			if obj == nil {
				return noMatch
			}
			return Match{Matched: true, Captures: map[string]string{"recv": obj.Text(), "new": newName}}
		},
		Rewrite: func(tree *cst.Tree, n *cst.Node, cap map[string]string) {
			tree.ReplaceNode(n, cap["recv"]+"."+cap["new"])
		},
	}
}

// pydanticValidatorDecorator rewrites `@validator(...)` to
// `@field_validator(...)` plus an inserted `@classmethod` above the
// function, translating the `pre=True` keyword argument to
// `mode="before"` (and, symmetrically, `pre=False` to `mode="after"`).
func pydanticValidatorDecorator() Rule {
	return Rule{
		Name:       "pydanticValidatorDecorator",
		Kind:       knowledge.DecoratorShape,
		Confidence: knowledge.High,
		RequiresImports: []string{"pydantic:field_validator"},
		Match: func(c *cst.Cursor, idx *usage.Index) Match {
			n := c.Node
			if n.Type() != "decorator" {
				return noMatch
			}
			call := decoratorCall(n)
			if call == nil {
				return noMatch
			}
			fn := call.ChildByFieldName("function")
			if fn == nil || fn.Type() != "identifier" || fn.Text() != "validator" {
				return noMatch
			}
			p := c.Parent()
			if p == nil || p.Type() != "decorated_definition" {
				return noMatch
			}
			return Match{Matched: true}
		},
		Rewrite: func(tree *cst.Tree, n *cst.Node, cap map[string]string) {
			call := decoratorCall(n)
			args := call.ChildByFieldName("arguments")
			var parts []string
			for i := 0; i < args.NamedChildCount(); i++ {
				arg := args.NamedChild(i)
				if arg.Type() == "keyword_argument" && arg.ChildByFieldName("name").Text() == "pre" {
					val := arg.ChildByFieldName("value").Text()
					mode := "after"
					if val == "True" {
						mode = "before"
					}
					parts = append(parts, `mode="`+mode+`"`)
					continue
				}
				parts = append(parts, arg.Text())
			}
			tree.ReplaceNode(n, "@field_validator("+strings.Join(parts, ", ")+")")
			tree.InsertAfter(n, "\n"+leadingIndent(n)+"@classmethod")
		},
	}
}

func decoratorCall(decorator *cst.Node) *cst.Node {
	for i := 0; i < decorator.NamedChildCount(); i++ {
		if c := decorator.NamedChild(i); c.Type() == "call" {
			return c
		}
	}
	return nil
}

// leadingIndent returns the run of horizontal whitespace immediately
// preceding n on its source line, so an inserted sibling line lines up
// with n's own indentation.
func leadingIndent(n *cst.Node) string {
	col := n.Col() - 1
	if col <= 0 {
		return ""
	}
	return strings.Repeat(" ", col)
}

// pydanticConfigRestructure replaces an inner `class Config: ...` with a
// `model_config = ConfigDict(...)` class-level assignment, translating
// the two documented key renames.
func pydanticConfigRestructure() Rule {
	keyRenames := map[string]string{"orm_mode": "from_attributes", "allow_mutation": "frozen"}
	return Rule{
		Name:       "pydanticConfigRestructure",
		Kind:       knowledge.ClassConfigRestructure,
		Confidence: knowledge.High,
		RequiresImports: []string{"pydantic:ConfigDict"},
		Match: func(c *cst.Cursor, idx *usage.Index) Match {
			n := c.Node
			if n.Type() != "class_definition" {
				return noMatch
			}
			name := n.ChildByFieldName("name")
			if name == nil || name.Text() != "Config" {
				return noMatch
			}
			p := c.Parent()
			if p == nil || p.Type() != "block" {
				return noMatch
			}
			return Match{Matched: true}
		},
		Rewrite: func(tree *cst.Tree, n *cst.Node, cap map[string]string) {
			body := n.ChildByFieldName("body")
			var kv []string
			for i := 0; i < body.NamedChildCount(); i++ {
				stmt := body.NamedChild(i)
				var assign *cst.Node
				switch stmt.Type() {
				case "expression_statement":
					if c := stmt.NamedChild(0); c != nil && c.Type() == "assignment" {
						assign = c
					}
				case "assignment":
					assign = stmt
				}
				if assign == nil {
					continue
				}
				left := assign.ChildByFieldName("left")
				right := assign.ChildByFieldName("right")
				if left == nil || right == nil {
					continue
				}
				key := left.Text()
				val := right.Text()
				if allow, ok := keyRenames["allow_mutation"]; ok && key == "allow_mutation" {
					_ = allow
					if val == "False" {
						val = "True"
					} else if val == "True" {
						val = "False"
					}
				}
				if newKey, ok := keyRenames[key]; ok {
					key = newKey
				}
				kv = append(kv, key+"="+val)
			}
			tree.ReplaceNode(n, "model_config = ConfigDict("+strings.Join(kv, ", ")+")")
		},
	}
}
