package main

import (
	"os"

	"github.com/saptarshi/persistds/bptree"
)

// defaultBptreeOrder matches the branching factor used in the spec's own
// B+-tree scenario tests.
const defaultBptreeOrder = 4

type bptreeSession struct {
	tree *bptree.Tree
}

func createBptree(id string) error {
	t, err := bptree.New(defaultBptreeOrder)
	if err != nil {
		return err
	}

	bptreeInstances[id] = &bptreeSession{tree: t}
	return nil
}

func getOrCreateBptree(id string) (*bptreeSession, error) {
	if s, ok := bptreeInstances[id]; ok {
		return s, nil
	}

	if err := createBptree(id); err != nil {
		return nil, err
	}

	return bptreeInstances[id], nil
}

func bptreeAdd(id string, value uint64) error {
	s, err := getOrCreateBptree(id)
	if err != nil {
		return err
	}

	return s.tree.Insert(value, bptree.Mapping{Offset: value})
}

func bptreeRemove(id string, key uint64) error {
	s, err := getOrCreateBptree(id)
	if err != nil {
		return err
	}

	return s.tree.Delete(key)
}

func bptreePrint(id string) error {
	s, err := getOrCreateBptree(id)
	if err != nil {
		return err
	}

	return s.tree.Print(os.Stdout)
}
