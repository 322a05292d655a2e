// Package compiler walks a parsed filter AST (package fes) bottom-up against
// a feature type's schema graph (package xsd) and produces a
// datastore-agnostic CompiledQuery, per spec §4.4. Nothing in this package
// talks SQL; it resolves XPath references, checks function arity, folds the
// BBOX/RESOURCEID KVP shortcuts into the predicate tree, and leaves value
// binding and dialect rendering to the datastore package that consumes it.
package compiler

import (
	"github.com/pdok/go-wfs-server/ogc/wfs/crs"
	"github.com/pdok/go-wfs-server/ogc/wfs/xsd"
)

// Expr is a compiled scalar expression: a resolved field reference, a typed
// literal, a function call, or legacy arithmetic.
type Expr interface {
	exprNode()
}

// FieldRef is a ValueReference resolved against the feature type's schema.
type FieldRef struct {
	Node           *xsd.Node
	DataSourcePath string
}

func (FieldRef) exprNode() {}

// Literal is a FES literal, still carrying its source text; the datastore
// is responsible for parsing it into the target column's native type.
type Literal struct {
	Text string
	Type xsd.AtomicType
}

func (Literal) exprNode() {}

// GeomLiteral is a parsed GML geometry appearing as a spatial operand.
type GeomLiteral struct {
	Geometry *crs.Geometry
}

func (GeomLiteral) exprNode() {}

// FuncCall is a resolved function invocation.
type FuncCall struct {
	Name        string
	SQLTemplate string
	Args        []Expr
}

func (FuncCall) exprNode() {}

// ArithOp mirrors fes.ArithmeticOp.
type ArithOp int

const (
	Add ArithOp = iota
	Sub
	Mul
	Div
)

// Arith is a legacy binary arithmetic expression.
type Arith struct {
	Op          ArithOp
	Left, Right Expr
}

func (Arith) exprNode() {}
