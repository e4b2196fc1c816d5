package query

import "strings"

// Resource kinds used as the first key segment.
const (
	KindDocuments  = "documents"
	KindReferences = "references"
)

const (
	scopeList   = "list"
	scopeDetail = "detail"
	sep         = ":"
)

// Key identifies a cached value. Segments are joined with ":" when stored.
type Key []string

// ListKey is the key of one list page, params being the canonical encoding
// of the list filters.
func ListKey(kind, params string) Key { return Key{kind, scopeList, params} }

// DetailKey is the key of a single resource.
func DetailKey(kind, id string) Key { return Key{kind, scopeDetail, id} }

// ListsOf matches every cached list of kind.
func ListsOf(kind string) Key { return Key{kind, scopeList} }

// All matches every key of kind.
func All(kind string) Key { return Key{kind} }

func (k Key) String() string { return strings.Join(k, sep) }
