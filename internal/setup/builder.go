package setup

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/aleksaelezovic/tdbgo/internal/block"
	"github.com/aleksaelezovic/tdbgo/internal/bptree"
	"github.com/aleksaelezovic/tdbgo/internal/cache"
	"github.com/aleksaelezovic/tdbgo/internal/encoding"
	"github.com/aleksaelezovic/tdbgo/internal/index"
	"github.com/aleksaelezovic/tdbgo/internal/location"
	"github.com/aleksaelezovic/tdbgo/internal/nodetable"
	"github.com/aleksaelezovic/tdbgo/internal/objectfile"
	"github.com/aleksaelezovic/tdbgo/internal/record"
	"github.com/aleksaelezovic/tdbgo/internal/store"
	"github.com/aleksaelezovic/tdbgo/internal/tupletable"
	tdb "github.com/aleksaelezovic/tdbgo/pkg/store"
)

// BadgerDir is the directory, inside a location, of the block database.
const BadgerDir = "blocks"

// BlockMgrBuilder makes the block manager of one file of a file set.
type BlockMgrBuilder interface {
	BuildBlockMgr(fs *location.FileSet, ext string, blockSize int) (block.Mgr, error)
}

// RangeIndexBuilder makes the range index stored in a file set.
type RangeIndexBuilder interface {
	BuildRangeIndex(fs *location.FileSet, f record.Factory, p Params) (index.RangeIndex, error)
}

// ObjectFileBuilder makes the object file of a file set.
type ObjectFileBuilder interface {
	BuildObjectFile(fs *location.FileSet) (objectfile.ObjectFile, error)
}

type BlockMgrBuilderFunc func(fs *location.FileSet, ext string, blockSize int) (block.Mgr, error)

func (f BlockMgrBuilderFunc) BuildBlockMgr(fs *location.FileSet, ext string, blockSize int) (block.Mgr, error) {
	return f(fs, ext, blockSize)
}

type RangeIndexBuilderFunc func(fs *location.FileSet, f record.Factory, p Params) (index.RangeIndex, error)

func (fn RangeIndexBuilderFunc) BuildRangeIndex(fs *location.FileSet, f record.Factory, p Params) (index.RangeIndex, error) {
	return fn(fs, f, p)
}

type ObjectFileBuilderFunc func(fs *location.FileSet) (objectfile.ObjectFile, error)

func (f ObjectFileBuilderFunc) BuildObjectFile(fs *location.FileSet) (objectfile.ObjectFile, error) {
	return f(fs)
}

// Builder turns a location into a dataset. Nil builders take the standard
// ones: block files and LSM indexes in one badger database per location,
// the object file on disk.
type Builder struct {
	BlockMgrs    BlockMgrBuilder
	RangeIndexes RangeIndexBuilder
	ObjectFiles  ObjectFileBuilder

	Logger     *logrus.Logger
	Registerer prometheus.Registerer
}

// build holds the state of one Build call.
type build struct {
	b        *Builder
	loc      *location.Location
	log      *logrus.Logger
	caches   *cache.Collector
	badger   *block.BadgerStore
	closers  []func() error
	blockMgr BlockMgrBuilder
	indexes  RangeIndexBuilder
	objects  ObjectFileBuilder
}

// Build opens or creates the dataset at loc. supplied may be the zero
// Params.
func (b *Builder) Build(loc *location.Location, supplied Params) (ds *store.DatasetGraph, err error) {
	log := b.Logger
	if log == nil {
		log = logrus.New()
	}
	bd := &build{b: b, loc: loc, log: log, caches: cache.NewCollector()}
	bd.blockMgr, bd.indexes, bd.objects = b.BlockMgrs, b.RangeIndexes, b.ObjectFiles
	if bd.blockMgr == nil {
		bd.blockMgr = BlockMgrBuilderFunc(bd.stdBlockMgr)
	}
	if bd.indexes == nil {
		bd.indexes = RangeIndexBuilderFunc(bd.stdRangeIndex)
	}
	if bd.objects == nil {
		bd.objects = ObjectFileBuilderFunc(bd.stdObjectFile)
	}
	defer func() {
		if err != nil {
			bd.closeAll()
		}
	}()

	meta, err := loc.MetaFile()
	if err != nil {
		return nil, err
	}
	if err := bd.formatLocation(meta); err != nil {
		return nil, bd.fail(err)
	}
	p, err := decide(meta, supplied)
	if err != nil {
		return nil, bd.fail(err)
	}

	nodes, err := bd.nodeTable(p.Node2ID, p.ID2Node, nodetable.Sizes{
		NodeToID: p.Node2NodeIDCache,
		IDToNode: p.NodeID2NodeCache,
		Miss:     p.NodeMissCache,
	}, p)
	if err != nil {
		return nil, bd.fail(err)
	}
	bd.closers = append(bd.closers, nodes.Close)
	if c, ok := nodes.Base().(*nodetable.Cache); ok {
		for name, r := range c.Stats() {
			bd.caches.Add(name, r)
		}
	}

	tt, err := bd.tupleTable("triple", p.TriplesPrimary, p.Triples, p.Triples, p)
	if err != nil {
		return nil, bd.fail(err)
	}
	triples, err := store.NewTripleTable(nodes, tt)
	if err != nil {
		return nil, bd.fail(err)
	}
	qt, err := bd.tupleTable("quad", p.QuadsPrimary, p.Quads, p.Quads, p)
	if err != nil {
		return nil, bd.fail(err)
	}
	quads, err := store.NewQuadTable(nodes, qt)
	if err != nil {
		return nil, bd.fail(err)
	}
	prefixes, err := bd.prefixTable(p)
	if err != nil {
		return nil, bd.fail(err)
	}

	if err := loc.Flush(); err != nil {
		return nil, err
	}
	if b.Registerer != nil {
		if err := b.Registerer.Register(bd.caches); err != nil {
			return nil, fmt.Errorf("failed to register cache metrics: %w", err)
		}
	}

	return store.NewDatasetGraph(triples, quads, nodes, store.Options{
		Location: loc,
		Prefixes: prefixes,
		Params:   meta.Map(),
		Caches:   bd.caches,
		Logger:   log,
		OnSync:   bd.sync,
		OnClose:  bd.close,
	}), nil
}

// fail logs a configuration problem before it is returned.
func (bd *build) fail(err error) error {
	bd.log.WithError(err).WithField("location", bd.loc.String()).Error("Cannot open dataset")
	return err
}

func (bd *build) formatLocation(meta *location.MetaFile) error {
	if !meta.IsEmpty() {
		return meta.CheckOrSet(KeyLayout, LayoutVersion)
	}
	bd.log.WithField("location", bd.loc.String()).Info("Initialising new dataset location")
	for _, kv := range [][2]string{
		{KeyCreateVersion, Version},
		{KeyCreated, time.Now().UTC().Format(time.RFC3339)},
		{KeyCreateID, uuid.NewString()},
		{KeyLayout, LayoutVersion},
		{KeyType, TypeStandalone},
	} {
		if err := meta.Set(kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

func (bd *build) nodeTable(node2id, id2node string, sizes nodetable.Sizes, p Params) (*nodetable.Inline, error) {
	idx, err := bd.rangeIndex(node2id, node2id, record.MustFactory(encoding.HashSize, encoding.NodeIDSize), p)
	if err != nil {
		return nil, err
	}
	fs := bd.loc.FileSet(id2node)
	fmeta, err := fs.MetaFile()
	if err != nil {
		return nil, errors.Join(err, idx.Close())
	}
	if err := fmeta.CheckOrSet(KeyFileType, FileTypeObjectFile); err != nil {
		return nil, errors.Join(err, idx.Close())
	}
	objects, err := bd.objects.BuildObjectFile(fs)
	if err != nil {
		return nil, errors.Join(err, idx.Close())
	}
	native, err := nodetable.NewNative(idx, objects)
	if err != nil {
		return nil, errors.Join(err, idx.Close(), objects.Close())
	}
	bd.log.WithField("location", bd.loc.String()).Debugf("node table: %s / %s", node2id, id2node)
	return nodetable.New(native, sizes), nil
}

// tupleTable builds one index per order, each stored in the file set of the
// same position in files.
func (bd *build) tupleTable(kind, primary string, orders, files []string, p Params) (*tupletable.Table, error) {
	if len(files) != len(orders) {
		return nil, tdb.ConfigErrorf("%s table: %d index files for %d indexes", kind, len(files), len(orders))
	}
	f := record.MustFactory(len(primary)*encoding.NodeIDSize, 0)
	var idx []*tupletable.TupleIndex
	for i, order := range orders {
		cmap, err := tupletable.NewColumnMap(primary, order)
		if err != nil {
			return nil, tdb.ConfigErrorf("%s table: %v", kind, err)
		}
		ri, err := bd.rangeIndex(files[i], order, f, p)
		if err != nil {
			return nil, err
		}
		bd.closers = append(bd.closers, ri.Close)
		ti, err := tupletable.NewTupleIndex(cmap, ri)
		if err != nil {
			return nil, err
		}
		idx = append(idx, ti)
	}
	bd.log.WithField("location", bd.loc.String()).Debugf("%s table: %s :: %s", kind, primary, strings.Join(orders, ","))
	return tupletable.NewTable(idx...)
}

// prefixTable builds the prefix mappings over an uncached node table of
// their own.
func (bd *build) prefixTable(p Params) (*store.PrefixTable, error) {
	nodes, err := bd.nodeTable(p.PrefixNode2ID, p.PrefixID2Node, nodetable.Sizes{NodeToID: -1, IDToNode: -1, Miss: -1}, p)
	if err != nil {
		return nil, err
	}
	bd.closers = append(bd.closers, nodes.Close)
	tt, err := bd.tupleTable("prefix", p.PrefixPrimary, p.PrefixIndexes, []string{p.PrefixIndexFile}, p)
	if err != nil {
		return nil, err
	}
	return store.NewPrefixTable(nodes, tt)
}

// rangeIndex records the index shape in its file set metafile and builds it.
func (bd *build) rangeIndex(name, order string, f record.Factory, p Params) (index.RangeIndex, error) {
	fs := bd.loc.FileSet(name)
	meta, err := fs.MetaFile()
	if err != nil {
		return nil, err
	}
	checks := [][2]string{
		{KeyFileType, FileTypeRangeIndex},
		{KeyFileIndexOrder, order},
		{KeyFileImpl, p.FileImpl},
		{KeyBPlusTreeRecord, fmt.Sprintf("%d,%d", f.KeyLen(), f.ValueLen())},
	}
	if p.FileImpl == ImplBPlusTree {
		checks = append(checks,
			[2]string{KeyBlockSize, strconv.Itoa(p.BlockSize)},
			[2]string{KeyBPlusTreeOrder, strconv.Itoa(bptree.CalcOrder(p.BlockSize, f.KeyLen()))},
		)
	}
	for _, kv := range checks {
		if err := meta.CheckOrSet(kv[0], kv[1]); err != nil {
			return nil, fmt.Errorf("%s: %w", fs, err)
		}
	}
	return bd.indexes.BuildRangeIndex(fs, f, p)
}

func (bd *build) badgerStore() (*block.BadgerStore, error) {
	if bd.badger != nil {
		return bd.badger, nil
	}
	path := ""
	if !bd.loc.IsMem() {
		path = bd.loc.Path(BadgerDir, "")
	}
	s, err := block.OpenBadger(path)
	if err != nil {
		return nil, err
	}
	bd.badger = s
	return s, nil
}

func (bd *build) stdBlockMgr(fs *location.FileSet, ext string, blockSize int) (block.Mgr, error) {
	name := fs.Basename() + "." + ext
	if bd.loc.IsMem() {
		return block.NewMem(name, blockSize), nil
	}
	s, err := bd.badgerStore()
	if err != nil {
		return nil, err
	}
	return s.Mgr(name, blockSize)
}

func (bd *build) stdRangeIndex(fs *location.FileSet, f record.Factory, p Params) (index.RangeIndex, error) {
	switch p.FileImpl {
	case ImplBadger:
		s, err := bd.badgerStore()
		if err != nil {
			return nil, err
		}
		return index.NewKV(s.DB(), fs.Basename(), f), nil
	default:
		return bd.bplusTree(fs, f, p)
	}
}

func (bd *build) bplusTree(fs *location.FileSet, f record.Factory, p Params) (*bptree.Tree, error) {
	bp, err := bptree.NewParams(p.BlockSize, 0, f)
	if err != nil {
		return nil, err
	}
	var mgrs [2]block.Mgr
	for i, ext := range []string{location.ExtIndex, location.ExtData} {
		mgr, err := bd.blockMgr.BuildBlockMgr(fs, ext, p.BlockSize)
		if err != nil {
			return nil, err
		}
		name := fs.Basename() + "." + ext
		cached := block.NewCached(mgr, name, p.BlockReadCache, p.BlockWriteCache, bd.log)
		bd.caches.Add(name+".read", cached.ReadStats())
		if ws := cached.WriteStats(); ws != nil {
			bd.caches.Add(name+".write", ws)
		}
		mgrs[i] = cached
	}
	return bptree.Open(fs.Basename(), bp, mgrs[0], mgrs[1])
}

func (bd *build) stdObjectFile(fs *location.FileSet) (objectfile.ObjectFile, error) {
	if bd.loc.IsMem() {
		return objectfile.NewMem(), nil
	}
	return objectfile.OpenFile(fs.Path(location.ExtData))
}

func (bd *build) sync() error {
	if bd.badger != nil {
		if err := bd.badger.Sync(); err != nil {
			return err
		}
	}
	return bd.loc.Flush()
}

func (bd *build) close() error {
	var err error
	if bd.b.Registerer != nil {
		bd.b.Registerer.Unregister(bd.caches)
	}
	if bd.badger != nil {
		err = bd.badger.Close()
		bd.badger = nil
	}
	return err
}

// closeAll releases what a failed Build had opened.
func (bd *build) closeAll() {
	for i := len(bd.closers) - 1; i >= 0; i-- {
		_ = bd.closers[i]()
	}
	bd.closers = nil
	if bd.badger != nil {
		_ = bd.badger.Close()
		bd.badger = nil
	}
}
