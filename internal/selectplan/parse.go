package selectplan

import "strings"

// Parse parses a select expression depth-correctly: parenthesis depth is
// tracked so a comma only splits items at depth 0, and each top-level item
// is classified as a star, an exclusion, a plain column, or a relation
// (`[hint:]target(innerSelect)`), with inner selects parsed recursively.
//
// An empty or whitespace-only expression yields an empty *Tree (the
// "select everything" default). Parse returns ErrTooDeep if relation
// nesting exceeds MaxDepth; it is depth-correct in the sense that, for any
// input, paren depth at the end of a successful parse is always 0 — a
// mismatched-parens input is caught as part of splitting top-level items
// and returns a non-nil error instead of silently truncating.
func Parse(expr string) (*Tree, error) {
	return parseAtDepth(expr, 0)
}

func parseAtDepth(expr string, depth int) (*Tree, error) {
	expr = strings.TrimSpace(expr)
	tree := &Tree{}
	if expr == "" {
		return tree, nil
	}
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}

	items, err := splitTopLevel(expr)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if err := parseItem(tree, item, depth); err != nil {
			return nil, err
		}
	}

	return tree, nil
}

// splitTopLevel splits expr on commas that occur at parenthesis depth 0,
// tracking depth across the whole string so nested relation selects are
// never split internally. Returns an error if parentheses are unbalanced.
func splitTopLevel(expr string) ([]string, error) {
	var items []string
	var cur strings.Builder
	depth := 0

	for _, r := range expr {
		switch r {
		case '(':
			depth++
			cur.WriteRune(r)
		case ')':
			depth--
			if depth < 0 {
				return nil, unbalancedParensErr(expr)
			}
			cur.WriteRune(r)
		case ',':
			if depth == 0 {
				items = append(items, cur.String())
				cur.Reset()
				continue
			}
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	if depth != 0 {
		return nil, unbalancedParensErr(expr)
	}
	items = append(items, cur.String())
	return items, nil
}

func parseItem(tree *Tree, item string, depth int) error {
	if item == "*" {
		tree.Columns = append(tree.Columns, ColumnNode{Star: true})
		return nil
	}
	if strings.HasPrefix(item, "-") {
		tree.Columns = append(tree.Columns, ColumnNode{Name: item[1:], Exclude: true})
		return nil
	}

	openParen := strings.Index(item, "(")
	if openParen < 0 {
		tree.Columns = append(tree.Columns, ColumnNode{Name: item})
		return nil
	}
	if !strings.HasSuffix(item, ")") {
		return unbalancedParensErr(item)
	}

	head := item[:openParen]
	inner := item[openParen+1 : len(item)-1]

	hint, target, hasHint := strings.Cut(head, ":")
	if !hasHint {
		target = head
		hint = ""
	}

	child, err := parseAtDepth(inner, depth+1)
	if err != nil {
		return err
	}

	tree.Relations = append(tree.Relations, RelationNode{
		Hint:   hint,
		Target: target,
		Child:  child,
	})
	return nil
}

type parseError struct {
	msg string
}

func (e *parseError) Error() string { return e.msg }

func unbalancedParensErr(expr string) error {
	return &parseError{msg: "selectplan: unbalanced parentheses in select expression: " + expr}
}
