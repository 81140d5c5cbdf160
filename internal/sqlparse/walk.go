package sqlparse

import (
	pg_query "github.com/pganalyze/pg_query_go/v5"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// walkForRangeVars performs a generic, reflection-based walk of a
// pg_query protobuf node tree, collecting every RangeVar it finds at any
// depth. This deliberately does not special-case FROM clauses, joins,
// CTEs, or subqueries: RangeVar nodes that appear inside a
// CommonTableExpr's query, a RangeSubselect's subquery, or a SubLink's
// subselect are structurally identical to top-level ones, so a single
// generic walk surfaces all of them without an AST-shaped case for each
// clause the grammar allows subqueries in.
func walkForRangeVars(msg proto.Message, out *[]*pg_query.RangeVar) {
	if msg == nil {
		return
	}
	ref := msg.ProtoReflect()
	if !ref.IsValid() {
		return
	}
	ref.Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
		if fd.Kind() != protoreflect.MessageKind {
			return true
		}
		if fd.IsList() {
			list := v.List()
			for i := 0; i < list.Len(); i++ {
				visitMessageField(list.Get(i).Message(), out)
			}
			return true
		}
		visitMessageField(v.Message(), out)
		return true
	})
}

func visitMessageField(m protoreflect.Message, out *[]*pg_query.RangeVar) {
	if !m.IsValid() {
		return
	}
	sub := m.Interface()
	if rv, ok := sub.(*pg_query.RangeVar); ok {
		*out = append(*out, rv)
		return
	}
	if pm, ok := sub.(proto.Message); ok {
		walkForRangeVars(pm, out)
	}
}
