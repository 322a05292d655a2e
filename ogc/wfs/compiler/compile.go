package compiler

import (
	"strings"

	"github.com/pdok/go-wfs-server/ogc/wfs/ast"
	"github.com/pdok/go-wfs-server/ogc/wfs/crs"
	"github.com/pdok/go-wfs-server/ogc/wfs/fes"
	"github.com/pdok/go-wfs-server/ogc/wfs/ogcerr"
	"github.com/pdok/go-wfs-server/ogc/wfs/xsd"
)

// Compile lowers one AdhocQuery into a CompiledQuery against the feature
// type it names. Cross-type joins are out of scope (spec's Non-goals), so a
// query naming more than one type is rejected here rather than silently
// compiled against only the first.
func Compile(reg *xsd.Registry, funcs *fes.FunctionRegistry, q ast.AdhocQuery, count, startIndex int, resultType ast.ResultType, policy crs.Policy, defaultPageSize, maxPageSize int) (*CompiledQuery, error) {
	if len(q.TypeNames) != 1 {
		return nil, ogcerr.New(ogcerr.InvalidParameterValue, "typeNames",
			"exactly one type name is supported per query, got %d", len(q.TypeNames))
	}
	ft, err := reg.Lookup(q.TypeNames[0])
	if err != nil {
		return nil, ogcerr.New(ogcerr.InvalidParameterValue, "typeNames", "%v", err)
	}

	c := &CompiledQuery{FeatureType: ft, ResultType: resultType}

	outputCRS, err := resolveOutputCRS(ft, q.SRSName, policy)
	if err != nil {
		return nil, err
	}
	c.OutputCRS = outputCRS

	var predicates []Predicate
	if q.Filter != nil && !q.Filter.IsEmpty() {
		p, err := lowerFilter(ft, funcs, q.Filter)
		if err != nil {
			return nil, err
		}
		if p != nil {
			predicates = append(predicates, p)
		}
	}
	if q.BBox != nil {
		predicates = append(predicates, bboxPredicate(ft, *q.BBox))
	}
	switch len(predicates) {
	case 0:
	case 1:
		c.Predicate = predicates[0]
	default:
		c.Predicate = And{Children: predicates}
	}

	sortBy, err := lowerSortBy(ft, q.SortBy)
	if err != nil {
		return nil, err
	}
	c.SortBy = sortBy

	projection, err := lowerProjection(ft, q.PropertyNames)
	if err != nil {
		return nil, err
	}
	c.Projection = projection

	c.Offset = startIndex
	c.Limit = count
	if c.Limit < 0 {
		c.Limit = defaultPageSize
	}
	if maxPageSize > 0 && c.Limit > maxPageSize {
		c.Limit = maxPageSize
	}
	return c, nil
}

func resolveOutputCRS(ft *xsd.FeatureType, srsName string, policy crs.Policy) (*crs.CRS, error) {
	if srsName == "" {
		return ft.DefaultCRS, nil
	}
	c, err := crs.FromURI(srsName, policy)
	if err != nil {
		return nil, err
	}
	if !ft.SupportsCRS(c) {
		return nil, ogcerr.New(ogcerr.InvalidParameterValue, "srsName",
			"feature type %s does not support CRS %s", ft.QName(), c.URI())
	}
	return c, nil
}

func bboxPredicate(ft *xsd.FeatureType, bbox crs.BBox) Predicate {
	geomNode := ft.DefaultGeometryNode()
	var field Expr
	if geomNode != nil {
		field = FieldRef{Node: geomNode, DataSourcePath: geomNode.DataSourcePath}
	}
	return Spatial{
		Op:       fes.OpBBOX,
		Field:    field,
		Geometry: GeomLiteral{Geometry: &crs.Geometry{CRS: bbox.CRS, Geom: bbox.Extent()}},
	}
}

func lowerFilter(ft *xsd.FeatureType, funcs *fes.FunctionRegistry, f *fes.Filter) (Predicate, error) {
	var predicates []Predicate
	if f.Predicate != nil {
		p, err := lowerOperator(ft, funcs, f.Predicate)
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, p)
	}
	if len(f.ResourceIDs) > 0 {
		idNode := ft.GmlIDNode()
		if idNode == nil {
			return nil, ogcerr.New(ogcerr.ProcessingFailed, "", "feature type %s has no identity field", ft.QName())
		}
		var ids []string
		for _, rid := range f.ResourceIDs {
			typeName, id := rid.TypeNameAndID()
			if typeName != "" && !strings.EqualFold(typeName, ft.LocalName) {
				continue
			}
			ids = append(ids, id)
		}
		predicates = append(predicates, ResourceIDIn{IdentityPath: idNode.DataSourcePath, IDs: ids})
	}
	switch len(predicates) {
	case 0:
		return nil, nil
	case 1:
		return predicates[0], nil
	default:
		return And{Children: predicates}, nil
	}
}

func lowerOperator(ft *xsd.FeatureType, funcs *fes.FunctionRegistry, op fes.NonIdOperator) (Predicate, error) {
	switch v := op.(type) {
	case fes.PropertyIsComparison:
		left, err := lowerExpr(ft, funcs, v.Left)
		if err != nil {
			return nil, err
		}
		right, err := lowerExpr(ft, funcs, v.Right)
		if err != nil {
			return nil, err
		}
		return Compare{Op: v.Op, Left: left, Right: right, MatchCase: v.MatchCase}, nil

	case fes.PropertyIsBetween:
		expr, err := lowerExpr(ft, funcs, v.Expr)
		if err != nil {
			return nil, err
		}
		lo, err := lowerExpr(ft, funcs, v.LowerBoundary)
		if err != nil {
			return nil, err
		}
		hi, err := lowerExpr(ft, funcs, v.UpperBoundary)
		if err != nil {
			return nil, err
		}
		return Between{Expr: expr, Lower: lo, Upper: hi}, nil

	case fes.PropertyIsLike:
		expr, err := lowerExpr(ft, funcs, v.Expr)
		if err != nil {
			return nil, err
		}
		pattern, err := lowerExpr(ft, funcs, v.Pattern)
		if err != nil {
			return nil, err
		}
		return Like{Expr: expr, Pattern: pattern, WildCard: v.WildCard, SingleChar: v.SingleChar, EscapeChar: v.EscapeChar, MatchCase: v.MatchCase}, nil

	case fes.PropertyIsNil:
		expr, err := lowerExpr(ft, funcs, v.Expr)
		if err != nil {
			return nil, err
		}
		return IsNull{Expr: expr, Nil: true}, nil

	case fes.PropertyIsNull:
		expr, err := lowerExpr(ft, funcs, v.Expr)
		if err != nil {
			return nil, err
		}
		return IsNull{Expr: expr, Nil: false}, nil

	case fes.SpatialPredicate:
		return lowerSpatial(ft, funcs, v)

	case fes.LogicalPredicate:
		return lowerLogical(ft, funcs, v)

	default:
		return nil, ogcerr.New(ogcerr.ProcessingFailed, "", "unsupported filter operator %T", op)
	}
}

func lowerSpatial(ft *xsd.FeatureType, funcs *fes.FunctionRegistry, v fes.SpatialPredicate) (Predicate, error) {
	var field Expr
	if v.ValueRef != nil {
		e, err := lowerExpr(ft, funcs, v.ValueRef)
		if err != nil {
			return nil, err
		}
		field = e
	} else if geomNode := ft.DefaultGeometryNode(); geomNode != nil {
		field = FieldRef{Node: geomNode, DataSourcePath: geomNode.DataSourcePath}
	}
	geomExpr, err := lowerExpr(ft, funcs, v.GeometryExpr)
	if err != nil {
		return nil, err
	}
	return Spatial{Op: v.Op, Field: field, Geometry: geomExpr, Distance: v.Distance, Unit: v.Unit}, nil
}

func lowerLogical(ft *xsd.FeatureType, funcs *fes.FunctionRegistry, v fes.LogicalPredicate) (Predicate, error) {
	children := make([]Predicate, 0, len(v.Children))
	for _, c := range v.Children {
		p, err := lowerOperator(ft, funcs, c)
		if err != nil {
			return nil, err
		}
		children = append(children, p)
	}
	switch v.Op {
	case fes.OpAnd:
		return And{Children: children}, nil
	case fes.OpOr:
		return Or{Children: children}, nil
	default:
		return Not{Child: children[0]}, nil
	}
}

func lowerExpr(ft *xsd.FeatureType, funcs *fes.FunctionRegistry, e fes.Expression) (Expr, error) {
	switch v := e.(type) {
	case fes.ValueReference:
		match, err := ft.ResolveXPath(v.XPath)
		if err != nil {
			return nil, err
		}
		return FieldRef{Node: match.Node, DataSourcePath: match.DataSourcePath}, nil

	case fes.Literal:
		atomic := xsd.AtomicType(v.XMLType)
		return Literal{Text: v.Value, Type: atomic}, nil

	case fes.Function:
		def, err := funcs.Lookup(v.Name)
		if err != nil {
			return nil, ogcerr.New(ogcerr.InvalidParameterValue, "filter", "%v", err)
		}
		if err := def.CheckArity(len(v.Args)); err != nil {
			return nil, ogcerr.New(ogcerr.InvalidParameterValue, "filter", "%v", err)
		}
		args := make([]Expr, 0, len(v.Args))
		for _, a := range v.Args {
			lowered, err := lowerExpr(ft, funcs, a)
			if err != nil {
				return nil, err
			}
			args = append(args, lowered)
		}
		return FuncCall{Name: def.Name, SQLTemplate: def.SQLTemplate, Args: args}, nil

	case fes.Arithmetic:
		left, err := lowerExpr(ft, funcs, v.Left)
		if err != nil {
			return nil, err
		}
		right, err := lowerExpr(ft, funcs, v.Right)
		if err != nil {
			return nil, err
		}
		ops := map[fes.ArithmeticOp]ArithOp{fes.OpAdd: Add, fes.OpSub: Sub, fes.OpMul: Mul, fes.OpDiv: Div}
		return Arith{Op: ops[v.Op], Left: left, Right: right}, nil

	case fes.GeometryLiteral:
		g, ok := v.Raw.(*crs.Geometry)
		if !ok {
			return nil, ogcerr.New(ogcerr.ProcessingFailed, "", "unparsed geometry literal")
		}
		return GeomLiteral{Geometry: g}, nil

	default:
		return nil, ogcerr.New(ogcerr.ProcessingFailed, "", "unsupported expression %T", e)
	}
}

func lowerSortBy(ft *xsd.FeatureType, sortBy []ast.SortProperty) ([]CompiledSort, error) {
	out := make([]CompiledSort, 0, len(sortBy))
	for _, s := range sortBy {
		match, err := ft.ResolveXPath(s.ValueReference)
		if err != nil {
			return nil, err
		}
		out = append(out, CompiledSort{Node: match.Node, DataSourcePath: match.DataSourcePath, Ascending: s.Ascending})
	}
	return out, nil
}

func lowerProjection(ft *xsd.FeatureType, propertyNames []string) (*Projection, error) {
	if len(propertyNames) == 0 {
		return &Projection{FeatureType: ft, All: true}, nil
	}
	p := &Projection{FeatureType: ft}
	for _, name := range propertyNames {
		match, err := ft.ResolveXPath(name)
		if err != nil {
			return nil, err
		}
		p.Fields = append(p.Fields, match.Node)
	}
	if idNode := ft.GmlIDNode(); idNode != nil && !p.Includes(idNode) {
		p.Fields = append(p.Fields, idNode)
	}
	return p, nil
}
