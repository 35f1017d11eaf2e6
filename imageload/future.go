package imageload

import (
	"context"
	"image"
)

// State 是图片解析的三种结果之一。
type State int

const (
	Pending State = iota
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Future 表示一次异步的图片解析。合成器在每次渲染前轮询它，不会阻塞交互线程；
// 导出则通过 Await 等待其完成。
type Future struct {
	src  string
	done chan struct{}
	img  image.Image
	err  error
}

func newFuture(src string) *Future {
	return &Future{src: src, done: make(chan struct{})}
}

func (f *Future) settle(img image.Image, err error) {
	f.img, f.err = img, err
	close(f.done)
}

// Resolved returns an already-loaded future.
func Resolved(src string, img image.Image) *Future {
	f := newFuture(src)
	f.settle(img, nil)
	return f
}

// Rejected returns an already-failed future.
func Rejected(src string, err error) *Future {
	f := newFuture(src)
	f.settle(nil, &LoadError{Source: src, Err: err})
	return f
}

// Source returns the URL or data string the future resolves.
func (f *Future) Source() string { return f.src }

// Done is closed once the future left the Pending state.
func (f *Future) Done() <-chan struct{} { return f.done }

// State reports the current outcome without blocking.
func (f *Future) State() State {
	select {
	case <-f.done:
		if f.err != nil {
			return Failed
		}
		return Loaded
	default:
		return Pending
	}
}

// Poll returns the image (when Loaded) or the error (when Failed) without blocking.
func (f *Future) Poll() (image.Image, State, error) {
	st := f.State()
	switch st {
	case Loaded:
		return f.img, st, nil
	case Failed:
		return nil, st, f.err
	default:
		return nil, st, nil
	}
}

// Await blocks until the future settles or ctx is done.
func (f *Future) Await(ctx context.Context) (image.Image, error) {
	select {
	case <-f.done:
		return f.img, f.err
	case <-ctx.Done():
		return nil, &LoadError{Source: f.src, Err: ctx.Err()}
	}
}
