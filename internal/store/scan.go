package store

import (
	"iter"

	"github.com/aleksaelezovic/tdbgo/internal/tupletable"
)

type tupleCursor interface {
	Next() bool
	Tuple() tupletable.Tuple
	Err() error
	Close() error
}

// dedupIterator drops tuples for which skip reports true.
type dedupIterator struct {
	tupleCursor
	skip func(tupletable.Tuple) bool
}

func (d *dedupIterator) Next() bool {
	for d.tupleCursor.Next() {
		if !d.skip(d.Tuple()) {
			return true
		}
	}
	return false
}

// Scan is a cursor over stored statements, resolved back to terms one tuple
// at a time.
type Scan[T any] struct {
	it      tupleCursor
	resolve func(tupletable.Tuple) (T, error)
	current T
	err     error
}

// emptyScan matches nothing; used when a bound term is not in the dictionary.
func emptyScan[T any]() *Scan[T] {
	return &Scan[T]{}
}

func (s *Scan[T]) Next() bool {
	var zero T
	s.current = zero
	if s.it == nil || s.err != nil {
		return false
	}
	if !s.it.Next() {
		s.err = s.it.Err()
		return false
	}
	s.current, s.err = s.resolve(s.it.Tuple())
	return s.err == nil
}

func (s *Scan[T]) Item() T {
	return s.current
}

func (s *Scan[T]) Err() error {
	return s.err
}

func (s *Scan[T]) Close() error {
	if s.it == nil {
		return nil
	}
	return s.it.Close()
}

// guard brackets every step of a lazy scan. The dataset uses it to hold its
// read lock per step and to detect writes that happened mid-scan.
type guard interface {
	enter(fn func() error) (uint64, error)
	step(token uint64, fn func() error) error
}

type noGuard struct{}

func (noGuard) enter(fn func() error) (uint64, error) { return 0, fn() }
func (noGuard) step(_ uint64, fn func() error) error  { return fn() }

// scanSeq adapts a scan into a range-over-func sequence. The scan is closed
// when the loop ends, including on break.
func scanSeq[T any](g guard, open func() (*Scan[T], error)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		var sc *Scan[T]
		token, err := g.enter(func() error {
			var err error
			sc, err = open()
			return err
		})
		if err != nil {
			yield(zero, err)
			return
		}
		defer sc.Close()

		for {
			var ok bool
			var item T
			err := g.step(token, func() error {
				ok = sc.Next()
				item = sc.Item()
				return sc.Err()
			})
			if err != nil {
				yield(zero, err)
				return
			}
			if !ok || !yield(item, nil) {
				return
			}
		}
	}
}

// concat runs a then b.
func concat[T any](a, b iter.Seq2[T, error]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for v, err := range a {
			if !yield(v, err) || err != nil {
				return
			}
		}
		for v, err := range b {
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}
