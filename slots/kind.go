package slots

import "strconv"

// Kind is the calling convention of a dispatch table.
type Kind uint8

const (
	// KindCall is a call with positional arguments.
	KindCall Kind = iota
	// KindCallKw is a call with positional and keyword arguments.
	KindCallKw
	// KindGet is an attribute read.
	KindGet
	// KindSet is an attribute write.
	KindSet
)

var kindNames = [...]string{
	KindCall:   "call",
	KindCallKw: "call-kw",
	KindGet:    "get",
	KindSet:    "set",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseKind returns the Kind with the given name.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return 0, false
}
