package bptree

import (
	"fmt"

	"github.com/saptarshi/persistds/internal/pderrors"
)

// New constructs a tree with branching factor m (max children, must be at
// least 3) and a single leaf as its root, per spec section 4.7.1.
func New(m int) (*Tree, error) {
	if m < 3 {
		return nil, fmt.Errorf("branching factor %d below minimum 3: %w", m, pderrors.ErrInvalidArgument)
	}

	t := &Tree{m: m, k: m / 2}

	root := t.newNode(leafKind, 0)
	t.root = root.id
	t.head = root.id
	t.tail = root.id

	return t, nil
}

// descendToLeaf returns the id of the leaf that would hold key, along with
// the root-to-parent path of internal node ids visited on the way. It
// returns -1 if the tree is currently empty (no root at all).
func (t *Tree) descendToLeaf(key uint64) (leafID int, path []int) {
	if t.root == -1 {
		return -1, nil
	}

	id := t.root

	for {
		n := t.node(id)
		if n.kind == leafKind {
			return id, path
		}

		path = append(path, id)

		i := 0
		for i < len(n.keys) && key >= n.keys[i] {
			i++
		}

		id = n.children[i]
	}
}

func leafFind(n *node, key uint64) (int, bool) {
	for i, k := range n.keys {
		if k == key {
			return i, true
		}
	}

	return -1, false
}

// Lookup returns the mapping stored for key, or ErrNotFound.
func (t *Tree) Lookup(key uint64) (Mapping, error) {
	leafID, _ := t.descendToLeaf(key)
	if leafID == -1 {
		return Mapping{}, fmt.Errorf("key %d: %w", key, pderrors.ErrNotFound)
	}

	leaf := t.node(leafID)

	idx, ok := leafFind(leaf, key)
	if !ok {
		return Mapping{}, fmt.Errorf("key %d: %w", key, pderrors.ErrNotFound)
	}

	return leaf.values[idx], nil
}

// Insert adds key/mapping. Duplicate keys are rejected with
// ErrAlreadyExists. A leaf that reaches m keys is split, and the split
// cascades to each ancestor that in turn reaches m keys (spec section
// 4.7.3/4.7.4).
func (t *Tree) Insert(key uint64, mapping Mapping) error {
	if t.root == -1 {
		root := t.newNode(leafKind, 0)
		t.root = root.id
		t.head = root.id
		t.tail = root.id
	}

	leafID, _ := t.descendToLeaf(key)
	leaf := t.node(leafID)

	if _, ok := leafFind(leaf, key); ok {
		return fmt.Errorf("key %d: %w", key, pderrors.ErrAlreadyExists)
	}

	i := 0
	for i < len(leaf.keys) && leaf.keys[i] < key {
		i++
	}

	leaf.keys = insertUint64At(leaf.keys, i, key)
	leaf.values = insertMappingAt(leaf.values, i, mapping)

	if leaf.numKeys() >= t.m {
		t.split(leaf.id)
	}

	return nil
}

// split implements spec section 4.7.4 for both leaf and internal nodes.
func (t *Tree) split(id int) {
	n := t.node(id)
	s := n.numKeys() / 2

	var parent *node
	var parentIsNew bool
	var posInParent int

	if n.parent == -1 {
		parent = t.newNode(internalKind, n.level+1)
		parentIsNew = true
	} else {
		parent = t.node(n.parent)
		posInParent = childIndex(parent, id)
	}

	left := t.newNode(n.kind, n.level)
	right := t.newNode(n.kind, n.level)

	var separator uint64

	if n.kind == leafKind {
		left.keys = append([]uint64{}, n.keys[:s]...)
		left.values = append([]Mapping{}, n.values[:s]...)
		right.keys = append([]uint64{}, n.keys[s:]...)
		right.values = append([]Mapping{}, n.values[s:]...)
		separator = right.keys[0]

		left.prev = n.prev
		left.next = right.id
		right.prev = left.id
		right.next = n.next

		if n.prev != -1 {
			t.node(n.prev).next = left.id
		}

		if n.next != -1 {
			t.node(n.next).prev = right.id
		}

		if t.head == n.id {
			t.head = left.id
		}

		if t.tail == n.id {
			t.tail = right.id
		}
	} else {
		left.keys = append([]uint64{}, n.keys[:s]...)
		left.children = append([]int{}, n.children[:s+1]...)
		separator = n.keys[s]
		right.keys = append([]uint64{}, n.keys[s+1:]...)
		right.children = append([]int{}, n.children[s+1:]...)

		for _, c := range left.children {
			t.node(c).parent = left.id
		}

		for _, c := range right.children {
			t.node(c).parent = right.id
		}
	}

	left.parent = parent.id
	right.parent = parent.id

	if parentIsNew {
		parent.keys = []uint64{separator}
		parent.children = []int{left.id, right.id}
	} else {
		parent.keys = insertUint64At(parent.keys, posInParent, separator)
		parent.children = replaceChildAt(parent.children, posInParent, left.id, right.id)
	}

	t.destroyNode(n.id)
	t.totalSplits++

	if parentIsNew {
		t.root = parent.id
	}

	if parent.numKeys() >= t.m {
		t.split(parent.id)
	}
}

// Delete removes key. Absent keys are a no-op returning nil, per spec
// section 4.7.5.
func (t *Tree) Delete(key uint64) error {
	leafID, path := t.descendToLeaf(key)
	if leafID == -1 {
		return nil
	}

	leaf := t.node(leafID)

	idx, ok := leafFind(leaf, key)
	if !ok {
		return nil
	}

	leaf.keys = removeUint64At(leaf.keys, idx)
	leaf.values = removeMappingAt(leaf.values, idx)

	for _, ancestorID := range path {
		ancestor := t.node(ancestorID)
		for i, k := range ancestor.keys {
			if k == key {
				if leaf.numKeys() > 0 {
					ancestor.keys[i] = leaf.keys[0]
				}
			}
		}
	}

	if leaf.id == t.root {
		if leaf.numKeys() == 0 {
			t.destroyNode(leaf.id)
			t.root = -1
			t.head = -1
			t.tail = -1
		}

		return nil
	}

	t.rebalance(leaf.id)
	return nil
}

func childIndex(parent *node, childID int) int {
	for i, c := range parent.children {
		if c == childID {
			return i
		}
	}

	panic("bptree: child not found in parent")
}

// rebalance implements spec section 4.7.6.
func (t *Tree) rebalance(id int) {
	for {
		n := t.node(id)

		if n.parent == -1 {
			break
		}

		if n.numKeys() >= t.k && n.numKeys() <= t.m-1 {
			break
		}

		parent := t.node(n.parent)
		idx := childIndex(parent, id)

		prevID, nextID := -1, -1
		if idx > 0 {
			prevID = parent.children[idx-1]
		}
		if idx < len(parent.children)-1 {
			nextID = parent.children[idx+1]
		}

		switch {
		case prevID != -1 && t.node(prevID).numKeys() > t.k:
			t.stealLeft(parent, idx, prevID, id)
			return
		case nextID != -1 && t.node(nextID).numKeys() > t.k:
			t.stealRight(parent, idx, id, nextID)
			return
		default:
			var leftID, rightID int
			if nextID != -1 {
				leftID, rightID = id, nextID
			} else {
				leftID, rightID = prevID, id
			}

			t.mergeNodes(parent, leftID, rightID)
			t.totalMerges++

			id = parent.id
		}
	}

	root := t.node(t.root)
	if root.kind == internalKind && root.numKeys() == 0 && len(root.children) == 1 {
		child := t.node(root.children[0])
		child.parent = -1
		t.root = child.id
		t.destroyNode(root.id)
	}
}

func (t *Tree) stealLeft(parent *node, idx, prevID, id int) {
	prev := t.node(prevID)
	n := t.node(id)

	if n.kind == leafKind {
		lastIdx := len(prev.keys) - 1
		k, v := prev.keys[lastIdx], prev.values[lastIdx]
		prev.keys = prev.keys[:lastIdx]
		prev.values = prev.values[:lastIdx]

		n.keys = insertUint64At(n.keys, 0, k)
		n.values = insertMappingAt(n.values, 0, v)

		parent.keys[idx-1] = k
		return
	}

	sep := parent.keys[idx-1]
	n.keys = insertUint64At(n.keys, 0, sep)

	promoteIdx := len(prev.keys) - 1
	promote := prev.keys[promoteIdx]
	prev.keys = prev.keys[:promoteIdx]
	parent.keys[idx-1] = promote

	lastChildIdx := len(prev.children) - 1
	lastChild := prev.children[lastChildIdx]
	prev.children = prev.children[:lastChildIdx]
	n.children = insertIntAt(n.children, 0, lastChild)
	t.node(lastChild).parent = n.id
}

func (t *Tree) stealRight(parent *node, idx, id, nextID int) {
	n := t.node(id)
	next := t.node(nextID)

	if n.kind == leafKind {
		k, v := next.keys[0], next.values[0]
		next.keys = next.keys[1:]
		next.values = next.values[1:]

		n.keys = append(n.keys, k)
		n.values = append(n.values, v)

		parent.keys[idx] = next.keys[0]
		return
	}

	sep := parent.keys[idx]
	n.keys = append(n.keys, sep)

	promote := next.keys[0]
	next.keys = next.keys[1:]
	parent.keys[idx] = promote

	firstChild := next.children[0]
	next.children = next.children[1:]
	n.children = append(n.children, firstChild)
	t.node(firstChild).parent = n.id
}

// mergeNodes concatenates leftID and rightID (rightID is destroyed) and
// updates parent's keys/children.
func (t *Tree) mergeNodes(parent *node, leftID, rightID int) {
	left := t.node(leftID)
	right := t.node(rightID)
	leftIdx := childIndex(parent, leftID)

	if left.kind == leafKind {
		left.keys = append(left.keys, right.keys...)
		left.values = append(left.values, right.values...)

		left.next = right.next
		if right.next != -1 {
			t.node(right.next).prev = left.id
		}

		if t.tail == right.id {
			t.tail = left.id
		}
	} else {
		separator := parent.keys[leftIdx]
		left.keys = append(left.keys, separator)
		left.keys = append(left.keys, right.keys...)
		left.children = append(left.children, right.children...)

		for _, c := range right.children {
			t.node(c).parent = left.id
		}
	}

	parent.keys = removeUint64At(parent.keys, leftIdx)
	parent.children = removeIntAt(parent.children, leftIdx+1)

	t.destroyNode(right.id)
}
