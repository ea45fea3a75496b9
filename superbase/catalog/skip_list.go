package catalog

import (
	"math/rand"
	"time"
)

const (
	skipListMaxHeight = 12
)

/*
	1. head的key是nil，不能使用head的key
	2. 如果node为nil，则认为这个node包含最大的key，即node为右边界
*/

// Comparator must be thread-safe
type Comparator[T any] interface {

	// Compare < 0 iff "a" < "b", == 0 iff "a" == "b", > 0 iff "a" > "b"
	Compare(a, b *T) int

	// Name of the comparator.
	Name() string
}

// SkipList is not safe for concurrent writers. Readers may share it once all
// inserts are done.
type SkipList[T any] struct {
	rnd           rand.Source
	cmp           Comparator[T]
	head          *SkipListNode[T]
	currentHeight int32
	length        int
}

func NewSkipList[T any](comparator Comparator[T]) *SkipList[T] {
	return &SkipList[T]{
		rnd:           rand.NewSource(time.Now().UnixNano()),
		cmp:           comparator,
		head:          NewSkipListNode[T](skipListMaxHeight, nil),
		currentHeight: 1,
	}
}

// Insert
// REQUIRES: nothing that compares equal to key is currently in the list.
func (s *SkipList[T]) Insert(key *T) {
	prevNodes := make([]*SkipListNode[T], skipListMaxHeight, skipListMaxHeight)
	_ = s.findGreaterOrEqual(key, prevNodes)

	height := s.randomHeight()
	newNode := NewSkipListNode(height, key)

	if height > s.currentHeight {
		for i := s.currentHeight; i < height; i++ {
			prevNodes[i] = s.head
		}
		s.currentHeight = height
	}
	for i := 0; i < int(height); i++ {
		newNode.next[i] = prevNodes[i].next[i]
		prevNodes[i].next[i] = newNode
	}
	s.length++
}

// Get returns the entry comparing equal to key, or nil.
func (s *SkipList[T]) Get(key *T) *T {
	x := s.findGreaterOrEqual(key, nil)
	if x != nil && s.cmp.Compare(x.key, key) == 0 {
		return x.key
	}
	return nil
}

func (s *SkipList[T]) Len() int {
	return s.length
}

func (s *SkipList[T]) findGreaterOrEqual(key *T, prevNodes []*SkipListNode[T]) *SkipListNode[T] {
	x := s.head
	level := s.currentHeight - 1
	for {
		next := x.next[level]
		if s.keyIsAfterNode(key, next) {
			x = next
		} else {
			if prevNodes != nil {
				prevNodes[level] = x
			}
			if level == 0 {
				return next
			} else {
				level--
			}
		}
	}
}

func (s *SkipList[T]) keyIsAfterNode(key *T, node *SkipListNode[T]) bool {
	if node == nil {
		return false
	}
	return s.cmp.Compare(key, node.key) > 0
}

func (s *SkipList[T]) randomHeight() int32 {
	const skipListBranching = 4
	height := int32(1)
	for height < skipListMaxHeight && s.rnd.Int63()%skipListBranching == 0 {
		height += 1
	}
	return height
}

// SkipListIterator Iteration over the contents of a skip list
type SkipListIterator[T any] struct {
	list *SkipList[T]
	node *SkipListNode[T]
}

func NewSkipListIterator[T any](list *SkipList[T]) *SkipListIterator[T] {
	return &SkipListIterator[T]{
		list: list,
		node: nil,
	}
}

// Valid Returns true iff the iterator is positioned at a valid node.
func (iter *SkipListIterator[T]) Valid() bool {
	return iter.node != nil
}

// GetKey Returns the key at the current position.
// REQUIRES: Valid()
func (iter *SkipListIterator[T]) GetKey() *T {
	return iter.node.key
}

// Next Advances to the next position.
// REQUIRES: Valid()
func (iter *SkipListIterator[T]) Next() {
	iter.node = iter.node.next[0]
}

// SeekToFirst Position at the first entry in list.
// Final state of iterator is Valid() iff list is not empty.
func (iter *SkipListIterator[T]) SeekToFirst() {
	iter.node = iter.list.head.next[0]
}

type SkipListNode[T any] struct {
	next []*SkipListNode[T]
	key  *T
}

func NewSkipListNode[T any](height int32, key *T) *SkipListNode[T] {
	return &SkipListNode[T]{
		next: make([]*SkipListNode[T], height, height),
		key:  key,
	}
}
