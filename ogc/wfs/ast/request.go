package ast

import "strings"

// OperationName extracts the REQUEST parameter, case-folded to its canonical
// spelling, from a KVP request. The HTTP dispatch layer uses this to route
// to the matching Parse* function; it is the only piece of operation
// detection this package performs; routing itself is an external concern.
func OperationName(kvp KVP) string {
	v, _ := kvp.Get("REQUEST")
	return strings.ToUpper(v)
}
