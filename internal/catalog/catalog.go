package catalog

import "context"

// AccessMethod identifies the on-disk layout of a storage object. Values
// match the access-method identifiers recorded in the catalog snapshot.
type AccessMethod uint32

const (
	AMNone     AccessMethod = 0
	AMHeap     AccessMethod = 2
	AMBtree    AccessMethod = 403
	AMHash     AccessMethod = 405
	AMGist     AccessMethod = 783
	AMGin      AccessMethod = 2742
	AMBitmap   AccessMethod = 7013
	AMAORow    AccessMethod = 7024
	AMAOColumn AccessMethod = 7166
)

// Kind discriminates catalog object kinds that share an access method.
type Kind byte

const (
	KindTable       Kind = 'r'
	KindIndex       Kind = 'i'
	KindSequence    Kind = 'S'
	KindToast       Kind = 't'
	KindView        Kind = 'v'
	KindComposite   Kind = 'c'
	KindPartitioned Kind = 'p'
)

// Persistence is the catalog persistence flag of an object.
type Persistence byte

const (
	Permanent Persistence = 'p'
	Unlogged  Persistence = 'u'
	Temporary Persistence = 't'
)

// Object is one row of the metadata catalog, as yielded by a Catalog scan.
type Object struct {
	OID          uint32
	Filenode     uint32 // 0 when the object uses filenode remapping
	AccessMethod AccessMethod
	Kind         Kind
	Persistence  Persistence
	Shared       bool
	Name         string
}

// Catalog is the read-only metadata store the index is built from.
type Catalog interface {
	// Objects returns every storage object in the catalog, from a single
	// consistent scan.
	Objects(ctx context.Context) ([]Object, error)

	// MappedFilenode resolves the physical filenode of a remapped object
	// (one whose catalog filenode is zero).
	MappedFilenode(oid uint32, shared bool) (uint32, error)
}
