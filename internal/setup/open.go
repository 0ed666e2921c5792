package setup

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/aleksaelezovic/tdbgo/internal/location"
	"github.com/aleksaelezovic/tdbgo/internal/store"
)

type options struct {
	builder Builder
	params  Params
}

// Option configures Open and OpenMem.
type Option func(*options)

func WithParams(p Params) Option {
	return func(o *options) { o.params = p }
}

func WithLogger(log *logrus.Logger) Option {
	return func(o *options) { o.builder.Logger = log }
}

// WithRegisterer exports cache statistics to reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.builder.Registerer = reg }
}

func WithBlockMgrBuilder(b BlockMgrBuilder) Option {
	return func(o *options) { o.builder.BlockMgrs = b }
}

func WithRangeIndexBuilder(b RangeIndexBuilder) Option {
	return func(o *options) { o.builder.RangeIndexes = b }
}

func WithObjectFileBuilder(b ObjectFileBuilder) Option {
	return func(o *options) { o.builder.ObjectFiles = b }
}

// Open opens the dataset in dir, creating it if the directory is new.
func Open(dir string, opts ...Option) (*store.DatasetGraph, error) {
	loc, err := location.New(dir)
	if err != nil {
		return nil, err
	}
	return open(loc, opts)
}

// OpenMem creates a dataset that lives in memory.
func OpenMem(opts ...Option) (*store.DatasetGraph, error) {
	return open(location.Mem(), opts)
}

func open(loc *location.Location, opts []Option) (*store.DatasetGraph, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o.builder.Build(loc, o.params)
}
