package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/pdok/go-wfs-server/ogc/wfs/crs"
	"github.com/pdok/go-wfs-server/ogc/wfs/fes"
	"github.com/pdok/go-wfs-server/ogc/wfs/ogcerr"
)

// ParseFilter turns a <fes:Filter> element into a *fes.Filter, dispatching
// each child by its namespace-qualified tag per the polymorphic-dispatch
// design in spec §9. Filter's own children are either all ResourceId (the
// ID-operator branch) or a single non-ID predicate; mixing the two is
// tolerated and the compiler ANDs them together.
func ParseFilter(el *etree.Element, ns *NamespaceContext, policy crs.Policy) (*fes.Filter, error) {
	children := el.ChildElements()
	if len(children) == 0 {
		return nil, badFilter(fmt.Errorf("Filter has no children"))
	}

	f := &fes.Filter{}
	var predicates []*etree.Element
	for _, child := range children {
		_, local := ns.Tag(child, true)
		if local == "ResourceId" {
			if len(child.ChildElements()) > 0 {
				return nil, badFilter(fmt.Errorf("ResourceId must have no child elements"))
			}
			f.ResourceIDs = append(f.ResourceIDs, fes.ResourceID{RawID: child.SelectAttrValue("rid", "")})
			continue
		}
		predicates = append(predicates, child)
	}

	switch len(predicates) {
	case 0:
	case 1:
		op, err := parseOperator(predicates[0], ns, policy)
		if err != nil {
			return nil, err
		}
		f.Predicate = op
	default:
		return nil, badFilter(fmt.Errorf("Filter must have a single top-level predicate, got %d", len(predicates)))
	}
	return f, nil
}

func badFilter(cause error) *ogcerr.Exception {
	return ogcerr.New(ogcerr.InvalidParameterValue, "filter", "invalid Filter: %v", cause)
}

func parseOperator(el *etree.Element, ns *NamespaceContext, policy crs.Policy) (fes.NonIdOperator, error) {
	_, local := ns.Tag(el, true)

	if op, ok := comparisonOps[local]; ok {
		return parseComparison(el, ns, policy, op)
	}
	if op, ok := spatialOps[local]; ok {
		return parseSpatial(el, ns, policy, op)
	}

	switch local {
	case "And":
		return parseLogical(el, ns, policy, fes.OpAnd)
	case "Or":
		return parseLogical(el, ns, policy, fes.OpOr)
	case "Not":
		return parseLogical(el, ns, policy, fes.OpNot)
	case "PropertyIsBetween":
		return parseBetween(el, ns, policy)
	case "PropertyIsLike":
		return parseLike(el, ns, policy)
	case "PropertyIsNil":
		expr, err := operandExpr(el, ns, policy)
		if err != nil {
			return nil, err
		}
		return fes.PropertyIsNil{Expr: expr}, nil
	case "PropertyIsNull":
		expr, err := operandExpr(el, ns, policy)
		if err != nil {
			return nil, err
		}
		return fes.PropertyIsNull{Expr: expr}, nil
	default:
		return nil, badFilter(fmt.Errorf("unsupported predicate element %q", local))
	}
}

var comparisonOps = map[string]fes.ComparisonOp{
	"PropertyIsEqualTo":              fes.OpEqualTo,
	"PropertyIsNotEqualTo":           fes.OpNotEqualTo,
	"PropertyIsLessThan":             fes.OpLessThan,
	"PropertyIsGreaterThan":          fes.OpGreaterThan,
	"PropertyIsLessThanOrEqualTo":    fes.OpLessThanOrEqualTo,
	"PropertyIsGreaterThanOrEqualTo": fes.OpGreaterThanOrEqualTo,
}

var spatialOps = map[string]fes.SpatialOp{
	"BBOX": fes.OpBBOX, "Intersects": fes.OpIntersects, "Contains": fes.OpContains,
	"Crosses": fes.OpCrosses, "Disjoint": fes.OpDisjoint, "Equals": fes.OpEquals,
	"Overlaps": fes.OpOverlaps, "Touches": fes.OpTouches, "Within": fes.OpWithin,
	"DWithin": fes.OpDWithin, "Beyond": fes.OpBeyond,
}

func parseComparison(el *etree.Element, ns *NamespaceContext, policy crs.Policy, op fes.ComparisonOp) (fes.NonIdOperator, error) {
	operands := el.ChildElements()
	var exprs []fes.Expression
	for _, o := range operands {
		if o.Tag == "matchCase" {
			continue
		}
		e, err := parseExpression(o, ns, policy)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	if len(exprs) != 2 {
		return nil, badFilter(fmt.Errorf("%s requires exactly two operands, got %d", el.Tag, len(exprs)))
	}
	matchCase := true
	if v := el.SelectAttrValue("matchCase", ""); v == "false" || v == "0" {
		matchCase = false
	}
	// Literal OP ValueReference is invertible to the canonical ValueReference OP Literal form.
	if _, isLit := exprs[0].(fes.Literal); isLit {
		if _, isRef := exprs[1].(fes.ValueReference); isRef {
			return fes.PropertyIsComparison{Op: op.Invert(), Left: exprs[1], Right: exprs[0], MatchCase: matchCase}, nil
		}
	}
	return fes.PropertyIsComparison{Op: op, Left: exprs[0], Right: exprs[1], MatchCase: matchCase}, nil
}

func parseBetween(el *etree.Element, ns *NamespaceContext, policy crs.Policy) (fes.NonIdOperator, error) {
	expr, err := operandExpr(el, ns, policy)
	if err != nil {
		return nil, err
	}
	lower := el.FindElement("LowerBoundary")
	upper := el.FindElement("UpperBoundary")
	if lower == nil || upper == nil {
		return nil, badFilter(fmt.Errorf("PropertyIsBetween requires LowerBoundary and UpperBoundary"))
	}
	lo, err := firstOperandExpr(lower, ns, policy)
	if err != nil {
		return nil, err
	}
	hi, err := firstOperandExpr(upper, ns, policy)
	if err != nil {
		return nil, err
	}
	return fes.PropertyIsBetween{Expr: expr, LowerBoundary: lo, UpperBoundary: hi}, nil
}

func parseLike(el *etree.Element, ns *NamespaceContext, policy crs.Policy) (fes.NonIdOperator, error) {
	operands := el.ChildElements()
	if len(operands) != 2 {
		return nil, badFilter(fmt.Errorf("PropertyIsLike requires exactly two operands"))
	}
	expr, err := parseExpression(operands[0], ns, policy)
	if err != nil {
		return nil, err
	}
	pattern, err := parseExpression(operands[1], ns, policy)
	if err != nil {
		return nil, err
	}
	matchCase := true
	if v := el.SelectAttrValue("matchCase", ""); v == "false" || v == "0" {
		matchCase = false
	}
	return fes.PropertyIsLike{
		Expr: expr, Pattern: pattern,
		WildCard:   el.SelectAttrValue("wildCard", "*"),
		SingleChar: el.SelectAttrValue("singleChar", "."),
		EscapeChar: el.SelectAttrValue("escapeChar", "!"),
		MatchCase:  matchCase,
	}, nil
}

func parseLogical(el *etree.Element, ns *NamespaceContext, policy crs.Policy, op fes.LogicalOp) (fes.NonIdOperator, error) {
	var children []fes.NonIdOperator
	for _, child := range el.ChildElements() {
		c, err := parseOperator(child, ns, policy)
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	if op == fes.OpNot && len(children) != 1 {
		return nil, badFilter(fmt.Errorf("Not requires exactly one child predicate"))
	}
	if len(children) < 1 {
		return nil, badFilter(fmt.Errorf("%s requires at least one child predicate", el.Tag))
	}
	return fes.LogicalPredicate{Op: op, Children: children}, nil
}

func parseSpatial(el *etree.Element, ns *NamespaceContext, policy crs.Policy, op fes.SpatialOp) (fes.NonIdOperator, error) {
	operands := el.ChildElements()
	pred := fes.SpatialPredicate{Op: op}

	var geomEl *etree.Element
	for _, o := range operands {
		switch o.Tag {
		case "Distance":
			v, err := strconv.ParseFloat(strings.TrimSpace(o.Text()), 64)
			if err != nil {
				return nil, badFilter(fmt.Errorf("invalid Distance %q: %w", o.Text(), err))
			}
			pred.Distance = v
			pred.Unit = fes.DistanceUnit(o.SelectAttrValue("uom", string(fes.UnitMeters)))
		case "ValueReference", "PropertyName":
			pred.ValueRef = fes.ValueReference{XPath: strings.TrimSpace(o.Text())}
		default:
			geomEl = o
		}
	}
	if geomEl != nil {
		e, err := parseExpression(geomEl, ns, policy)
		if err != nil {
			return nil, err
		}
		pred.GeometryExpr = e
	} else if op == fes.OpBBOX {
		return nil, badFilter(fmt.Errorf("BBOX requires an Envelope operand"))
	}
	return pred, nil
}

// operandExpr reads the first non-boundary child of el as an expression,
// used by unary predicates (PropertyIsNil/Null/Between).
func operandExpr(el *etree.Element, ns *NamespaceContext, policy crs.Policy) (fes.Expression, error) {
	for _, child := range el.ChildElements() {
		if child.Tag == "LowerBoundary" || child.Tag == "UpperBoundary" {
			continue
		}
		return parseExpression(child, ns, policy)
	}
	return nil, badFilter(fmt.Errorf("%s requires an operand", el.Tag))
}

func firstOperandExpr(boundaryEl *etree.Element, ns *NamespaceContext, policy crs.Policy) (fes.Expression, error) {
	children := boundaryEl.ChildElements()
	if len(children) != 1 {
		return nil, badFilter(fmt.Errorf("%s requires exactly one operand", boundaryEl.Tag))
	}
	return parseExpression(children[0], ns, policy)
}

func parseExpression(el *etree.Element, ns *NamespaceContext, policy crs.Policy) (fes.Expression, error) {
	space, local := ns.Tag(el, true)

	switch local {
	case "ValueReference", "PropertyName":
		if len(el.ChildElements()) > 0 {
			return nil, badFilter(fmt.Errorf("%s must have no child elements", el.Tag))
		}
		return fes.ValueReference{XPath: strings.TrimSpace(el.Text())}, nil
	case "Literal":
		if len(el.ChildElements()) > 0 {
			return nil, badFilter(fmt.Errorf("Literal must have no child elements"))
		}
		return fes.Literal{Value: el.Text(), XMLType: el.SelectAttrValue("type", "")}, nil
	case "Function":
		var args []fes.Expression
		for _, arg := range el.ChildElements() {
			a, err := parseExpression(arg, ns, policy)
			if err != nil {
				return nil, err
			}
			args = append(args, a)
		}
		return fes.Function{Name: el.SelectAttrValue("name", ""), Args: args}, nil
	case "Add", "Sub", "Mul", "Div":
		return parseArithmetic(el, ns, policy, local)
	}

	if space == gmlNamespace || space == "" {
		g, err := ParseGeometry(el, policy)
		if err == nil {
			return fes.GeometryLiteral{SRSName: el.SelectAttrValue("srsName", ""), Raw: g}, nil
		}
	}
	return nil, badFilter(fmt.Errorf("unsupported expression element %q", el.Tag))
}

func parseArithmetic(el *etree.Element, ns *NamespaceContext, policy crs.Policy, local string) (fes.Expression, error) {
	operands := el.ChildElements()
	if len(operands) != 2 {
		return nil, badFilter(fmt.Errorf("%s requires exactly two operands", local))
	}
	left, err := parseExpression(operands[0], ns, policy)
	if err != nil {
		return nil, err
	}
	right, err := parseExpression(operands[1], ns, policy)
	if err != nil {
		return nil, err
	}
	ops := map[string]fes.ArithmeticOp{"Add": fes.OpAdd, "Sub": fes.OpSub, "Mul": fes.OpMul, "Div": fes.OpDiv}
	return fes.Arithmetic{Op: ops[local], Left: left, Right: right}, nil
}
