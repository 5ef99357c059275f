package image

import (
	"sync"

	"gocv.io/x/gocv"
)

// SharedMat is a reference-counted matrix. The creator holds the first
// reference; the matrix is closed when the last reference is released.
type SharedMat struct {
	mu   sync.Mutex
	mat  gocv.Mat
	refs int
}

// NewSharedMat takes ownership of m.
func NewSharedMat(m gocv.Mat) *SharedMat {
	return &SharedMat{mat: m, refs: 1}
}

// Acquire adds a reference. It fails once the matrix has been closed.
func (s *SharedMat) Acquire() (gocv.Mat, bool) {
	if s == nil {
		return gocv.Mat{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs == 0 {
		return gocv.Mat{}, false
	}
	s.refs++
	return s.mat, true
}

// Release drops a reference, closing the matrix with the last one.
func (s *SharedMat) Release() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs == 0 {
		return
	}
	s.refs--
	if s.refs == 0 {
		s.mat.Close()
	}
}
