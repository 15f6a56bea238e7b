package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	objects []Object
	mapped  map[uint32]uint32
	scanErr error
}

func (f *fakeCatalog) Objects(ctx context.Context) ([]Object, error) {
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	return f.objects, nil
}

func (f *fakeCatalog) MappedFilenode(oid uint32, shared bool) (uint32, error) {
	fn, ok := f.mapped[oid]
	if !ok {
		return 0, fmt.Errorf("oid %d not in filenode map", oid)
	}
	return fn, nil
}

func TestBuildIndex(t *testing.T) {
	cat := &fakeCatalog{
		objects: []Object{
			{OID: 1, Filenode: 16384, AccessMethod: AMHeap, Kind: KindTable, Persistence: Permanent, Name: "accounts"},
			{OID: 2, Filenode: 16390, AccessMethod: AMBtree, Kind: KindIndex, Persistence: Permanent, Name: "accounts_pkey"},
			{OID: 3, Filenode: 16400, AccessMethod: AMNone, Kind: KindView, Persistence: Permanent, Name: "v_accounts"},
			{OID: 4, Filenode: 16410, AccessMethod: AMNone, Kind: KindComposite, Persistence: Permanent, Name: "pair"},
			{OID: 5, Filenode: 16420, AccessMethod: AMHeap, Kind: KindTable, Persistence: Unlogged, Name: "scratch"},
			{OID: 6, Filenode: 0, AccessMethod: AMHeap, Kind: KindTable, Persistence: Permanent, Shared: true, Name: "shared_map"},
		},
		mapped: map[uint32]uint32{6: 2601},
	}

	ix, err := BuildIndex(context.Background(), cat)
	require.NoError(t, err)
	assert.Equal(t, 3, ix.Len())

	e := ix.Lookup(16384)
	require.NotNil(t, e)
	assert.Equal(t, "accounts", e.Name)
	assert.Equal(t, AMHeap, e.AccessMethod)

	require.NotNil(t, ix.Lookup(16390))

	// View, composite type, and unlogged table are not indexed.
	assert.Nil(t, ix.Lookup(16400))
	assert.Nil(t, ix.Lookup(16410))
	assert.Nil(t, ix.Lookup(16420))

	// Remapped object resolved through the filenode map.
	mapped := ix.Lookup(2601)
	require.NotNil(t, mapped)
	assert.Equal(t, "shared_map", mapped.Name)
}

func TestBuildIndex_ScanErrorIsFatal(t *testing.T) {
	cat := &fakeCatalog{scanErr: errors.New("catalog unavailable")}

	_, err := BuildIndex(context.Background(), cat)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan catalog")
}

func TestBuildIndex_UnmappedFilenodeIsFatal(t *testing.T) {
	cat := &fakeCatalog{
		objects: []Object{
			{OID: 9, Filenode: 0, AccessMethod: AMHeap, Kind: KindTable, Persistence: Permanent, Name: "orphan"},
		},
	}

	_, err := BuildIndex(context.Background(), cat)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orphan")
}

func TestBuildIndex_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cat := &fakeCatalog{
		objects: []Object{
			{OID: 1, Filenode: 16384, AccessMethod: AMHeap, Kind: KindTable, Persistence: Permanent, Name: "t"},
		},
	}

	_, err := BuildIndex(ctx, cat)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEntry_Segments(t *testing.T) {
	e := &Entry{Filenode: 16384}
	assert.False(t, e.HasSegment(1))

	e.AddSegment(1)
	e.AddSegment(3)
	assert.True(t, e.HasSegment(1))
	assert.True(t, e.HasSegment(3))
	assert.False(t, e.HasSegment(2))
}
