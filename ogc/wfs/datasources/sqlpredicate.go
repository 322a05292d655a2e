package datasources

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-spatial/geom/encoding/wkt"
	"github.com/pdok/go-wfs-server/ogc/wfs/compiler"
	"github.com/pdok/go-wfs-server/ogc/wfs/fes"
	"github.com/pdok/go-wfs-server/ogc/wfs/xsd"
)

// paramBinder accumulates named bind parameters while a predicate tree is
// rendered to SQL text, handing out unique ":pN" placeholders.
type paramBinder struct {
	args map[string]any
	seq  int
}

func newParamBinder() *paramBinder {
	return &paramBinder{args: map[string]any{}}
}

func (b *paramBinder) bind(value any) string {
	b.seq++
	name := fmt.Sprintf("p%d", b.seq)
	b.args[name] = value
	return name
}

// RenderPredicate compiles a compiler.Predicate into a SQL WHERE fragment
// (without the "where" keyword) plus its named bind parameters, for the
// given dialect.
func RenderPredicate(p compiler.Predicate, dialect Dialect) (string, map[string]any, error) {
	binder := newParamBinder()
	sql, err := renderPredicate(p, dialect, binder)
	if err != nil {
		return "", nil, err
	}
	return sql, binder.args, nil
}

func renderPredicate(p compiler.Predicate, dialect Dialect, b *paramBinder) (string, error) {
	switch v := p.(type) {
	case compiler.Compare:
		return renderCompare(v, dialect, b)
	case compiler.Between:
		return renderBetween(v, dialect, b)
	case compiler.Like:
		return renderLike(v, b)
	case compiler.IsNull:
		return renderIsNull(v, dialect, b)
	case compiler.Spatial:
		return renderSpatial(v, dialect, b)
	case compiler.ResourceIDIn:
		return renderResourceIDIn(v, b)
	case compiler.And:
		return renderBoolOp(v.Children, "and", dialect, b)
	case compiler.Or:
		return renderBoolOp(v.Children, "or", dialect, b)
	case compiler.Not:
		inner, err := renderPredicate(v.Child, dialect, b)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("not (%s)", inner), nil
	default:
		return "", fmt.Errorf("unsupported predicate %T", p)
	}
}

func renderBoolOp(children []compiler.Predicate, op string, dialect Dialect, b *paramBinder) (string, error) {
	parts := make([]string, 0, len(children))
	for _, c := range children {
		s, err := renderPredicate(c, dialect, b)
		if err != nil {
			return "", err
		}
		parts = append(parts, "("+s+")")
	}
	return strings.Join(parts, " "+op+" "), nil
}

var comparisonSQL = map[fes.ComparisonOp]string{
	fes.OpEqualTo: "=", fes.OpNotEqualTo: "<>", fes.OpLessThan: "<",
	fes.OpGreaterThan: ">", fes.OpLessThanOrEqualTo: "<=", fes.OpGreaterThanOrEqualTo: ">=",
}

func renderCompare(c compiler.Compare, dialect Dialect, b *paramBinder) (string, error) {
	left, err := renderExpr(c.Left, sibling(c.Right), dialect, b)
	if err != nil {
		return "", err
	}
	right, err := renderExpr(c.Right, sibling(c.Left), dialect, b)
	if err != nil {
		return "", err
	}
	op, ok := comparisonSQL[c.Op]
	if !ok {
		return "", fmt.Errorf("unsupported comparison operator %v", c.Op)
	}
	if !c.MatchCase {
		left = fmt.Sprintf("lower(%s)", left)
		right = fmt.Sprintf("lower(%s)", right)
	}
	return fmt.Sprintf("%s %s %s", left, op, right), nil
}

func renderBetween(v compiler.Between, dialect Dialect, b *paramBinder) (string, error) {
	expr, err := renderExpr(v.Expr, nil, dialect, b)
	if err != nil {
		return "", err
	}
	lo, err := renderExpr(v.Lower, fieldOf(v.Expr), dialect, b)
	if err != nil {
		return "", err
	}
	hi, err := renderExpr(v.Upper, fieldOf(v.Expr), dialect, b)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s between %s and %s", expr, lo, hi), nil
}

func renderLike(v compiler.Like, b *paramBinder) (string, error) {
	field, err := renderExpr(v.Expr, nil, Dialect{}, b)
	if err != nil {
		return "", err
	}
	pattern, ok := v.Pattern.(compiler.Literal)
	if !ok {
		return "", fmt.Errorf("PropertyIsLike pattern must be a literal")
	}
	sqlPattern := translateLikePattern(pattern.Text, v.WildCard, v.SingleChar, v.EscapeChar)
	name := b.bind(sqlPattern)
	if !v.MatchCase {
		return fmt.Sprintf("lower(%s) like lower(:%s) escape '\\'", field, name), nil
	}
	return fmt.Sprintf("%s like :%s escape '\\'", field, name), nil
}

// translateLikePattern rewrites a FES wildcard pattern (whose wildcard,
// single-char and escape tokens are caller-declared, per spec §4.4) into
// SQL LIKE syntax ('%'/'_' escaped with a fixed backslash).
func translateLikePattern(pattern, wildcard, singleChar, escape string) string {
	var b strings.Builder
	i := 0
	for i < len(pattern) {
		switch {
		case escape != "" && strings.HasPrefix(pattern[i:], escape):
			i += len(escape)
			if i < len(pattern) {
				b.WriteString(escapeLikeLiteral(string(pattern[i])))
				i++
			}
		case wildcard != "" && strings.HasPrefix(pattern[i:], wildcard):
			b.WriteByte('%')
			i += len(wildcard)
		case singleChar != "" && strings.HasPrefix(pattern[i:], singleChar):
			b.WriteByte('_')
			i += len(singleChar)
		default:
			b.WriteString(escapeLikeLiteral(string(pattern[i])))
			i++
		}
	}
	return b.String()
}

func escapeLikeLiteral(ch string) string {
	if ch == "%" || ch == "_" || ch == `\` {
		return `\` + ch
	}
	return ch
}

func renderIsNull(v compiler.IsNull, dialect Dialect, b *paramBinder) (string, error) {
	expr, err := renderExpr(v.Expr, nil, dialect, b)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s is null", expr), nil
}

func renderSpatial(v compiler.Spatial, dialect Dialect, b *paramBinder) (string, error) {
	if dialect.SpatialFunc == nil {
		return "", fmt.Errorf("dialect %q does not support spatial predicates", dialect.Name)
	}
	fieldSQL := "geom"
	if fr, ok := v.Field.(compiler.FieldRef); ok {
		fieldSQL = dialect.CastGeometryColumn(fr.DataSourcePath)
	}
	geomLit, ok := v.Geometry.(compiler.GeomLiteral)
	if !ok {
		return "", fmt.Errorf("spatial predicate geometry operand must be a literal")
	}
	wktText, err := wkt.EncodeString(geomLit.Geometry.Geom)
	if err != nil {
		return "", fmt.Errorf("encoding geometry to WKT: %w", err)
	}
	wktParam := b.bind(wktText)
	sridParam := b.bind(geomLit.Geometry.CRS.SRID())
	geomSQL := dialect.GeomFromWKT(wktParam, sridParam)
	return dialect.SpatialFunc(v.Op, fieldSQL, geomSQL, v.Distance, v.Unit)
}

func renderResourceIDIn(v compiler.ResourceIDIn, b *paramBinder) (string, error) {
	if len(v.IDs) == 0 {
		return "1 = 0", nil
	}
	placeholders := make([]string, len(v.IDs))
	for i, id := range v.IDs {
		placeholders[i] = ":" + b.bind(id)
	}
	return fmt.Sprintf("%s in (%s)", v.IdentityPath, strings.Join(placeholders, ", ")), nil
}

// sibling extracts a FieldRef from e, when e is one, so the other operand's
// literal can be coerced against that field's declared atomic type.
func sibling(e compiler.Expr) *xsd.Node {
	if fr, ok := e.(compiler.FieldRef); ok {
		return fr.Node
	}
	return nil
}

func fieldOf(e compiler.Expr) *xsd.Node {
	return sibling(e)
}

func renderExpr(e compiler.Expr, typeHint *xsd.Node, dialect Dialect, b *paramBinder) (string, error) {
	switch v := e.(type) {
	case compiler.FieldRef:
		return v.DataSourcePath, nil

	case compiler.Literal:
		value, err := coerceLiteral(v, typeHint)
		if err != nil {
			return "", err
		}
		return ":" + b.bind(value), nil

	case compiler.FuncCall:
		return renderFuncCall(v, typeHint, dialect, b)

	case compiler.Arith:
		left, err := renderExpr(v.Left, typeHint, dialect, b)
		if err != nil {
			return "", err
		}
		right, err := renderExpr(v.Right, typeHint, dialect, b)
		if err != nil {
			return "", err
		}
		ops := map[compiler.ArithOp]string{compiler.Add: "+", compiler.Sub: "-", compiler.Mul: "*", compiler.Div: "/"}
		return fmt.Sprintf("(%s %s %s)", left, ops[v.Op], right), nil

	case compiler.GeomLiteral:
		wktText, err := wkt.EncodeString(v.Geometry.Geom)
		if err != nil {
			return "", err
		}
		wktParam := b.bind(wktText)
		sridParam := b.bind(v.Geometry.CRS.SRID())
		return dialect.GeomFromWKT(wktParam, sridParam), nil

	default:
		return "", fmt.Errorf("unsupported expression %T", e)
	}
}

func renderFuncCall(v compiler.FuncCall, typeHint *xsd.Node, dialect Dialect, b *paramBinder) (string, error) {
	rendered := make([]string, 0, len(v.Args))
	for _, arg := range v.Args {
		s, err := renderExpr(arg, typeHint, dialect, b)
		if err != nil {
			return "", err
		}
		rendered = append(rendered, s)
	}
	if v.Name == "Concatenate" {
		return fmt.Sprintf(v.SQLTemplate, strings.Join(rendered, " || ")), nil
	}
	if len(rendered) != 1 {
		return fmt.Sprintf(v.SQLTemplate, strings.Join(rendered, ", ")), nil
	}
	return fmt.Sprintf(v.SQLTemplate, rendered[0]), nil
}

// coerceLiteral converts a FES literal's source text into the Go value its
// comparison partner's schema type expects; datastore drivers bind typed
// Go values more reliably than raw strings for numeric/date columns.
func coerceLiteral(lit compiler.Literal, hint *xsd.Node) (any, error) {
	atomic := lit.Type
	if atomic == "" && hint != nil {
		atomic = hint.Atomic
	}
	switch atomic {
	case xsd.XsInt, xsd.XsLong:
		return strconv.ParseInt(lit.Text, 10, 64)
	case xsd.XsDouble, xsd.XsDecimal:
		return strconv.ParseFloat(lit.Text, 64)
	case xsd.XsBoolean:
		return strconv.ParseBool(lit.Text)
	case xsd.XsDate:
		return time.Parse("2006-01-02", lit.Text)
	case xsd.XsDateTime:
		return time.Parse(time.RFC3339, lit.Text)
	default:
		return lit.Text, nil
	}
}
