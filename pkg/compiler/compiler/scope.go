package compiler

import (
	"github.com/skald-lang/skald/pkg/compiler/codegen"
	"github.com/skald-lang/skald/pkg/compiler/symbol"
)

// blockID indexes a code block in a function's scope tree.
type blockID int

const noBlock blockID = -1

// local is a variable bound in a code block. FrameOffset is measured in
// bytes from the function's frame base: parameters sit below it (negative),
// locals at the depth the stack had when they were declared.
type local struct {
	name        string
	typ         symbol.Type
	frameOffset int32
	isParam     bool
}

// loopCtx collects the pending branches of one enclosing loop. Its break
// and continue lists are patched when the loop's code is complete.
type loopCtx struct {
	breaks    []codegen.JumpRef
	continues []codegen.JumpRef
}

// codeBlock is one lexical block. localSize is a running counter: at any
// point during compilation it holds the bytes of locals declared in the
// block so far, which is exactly what a branch out of the block must pop.
type codeBlock struct {
	parent    blockID
	byName    map[string]*local
	localSize int32
	loop      *loopCtx
}

// scopeTree is the arena of code blocks for one function body. Blocks are
// never removed; closed blocks stay for offset bookkeeping.
type scopeTree struct {
	blocks []codeBlock
}

// open appends a child block of parent and returns its id. loop is non-nil
// for the block that directly represents a loop body.
func (s *scopeTree) open(parent blockID, loop *loopCtx) blockID {
	s.blocks = append(s.blocks, codeBlock{
		parent: parent,
		byName: make(map[string]*local),
		loop:   loop,
	})
	return blockID(len(s.blocks) - 1)
}

func (s *scopeTree) at(id blockID) *codeBlock {
	return &s.blocks[id]
}

// declare binds a local in block id. Redeclaration within the same block is
// reported by the caller; shadowing an outer block is allowed.
func (s *scopeTree) declare(id blockID, l *local) bool {
	b := s.at(id)
	if _, exists := b.byName[l.name]; exists {
		return false
	}
	b.byName[l.name] = l
	if !l.isParam {
		b.localSize += l.typ.Size()
	}
	return true
}

// resolve walks from block id to the root looking for name.
func (s *scopeTree) resolve(id blockID, name string) (*local, bool) {
	for id != noBlock {
		b := s.at(id)
		if l, ok := b.byName[name]; ok {
			return l, true
		}
		id = b.parent
	}
	return nil, false
}

// enclosingLoop walks from block id outward to the nearest block carrying a
// loop context. Plain nested blocks are transparent.
func (s *scopeTree) enclosingLoop(id blockID) (*loopCtx, blockID, bool) {
	for id != noBlock {
		b := s.at(id)
		if b.loop != nil {
			return b.loop, id, true
		}
		id = b.parent
	}
	return nil, noBlock, false
}

// cleanupSize sums the local bytes of every block from id up to and
// including stop. This is the MOVSP amount a break or continue must pop to
// leave the loop body's frame region.
func (s *scopeTree) cleanupSize(id, stop blockID) int32 {
	var total int32
	for id != noBlock {
		b := s.at(id)
		total += b.localSize
		if id == stop {
			break
		}
		id = b.parent
	}
	return total
}
