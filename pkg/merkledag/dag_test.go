package merkledag

import (
	"testing"

	"github.com/JacobBorden/SimpliDFS-sub000/pkg/chunkstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashDirectoryPermutationInvariant(t *testing.T) {
	store := chunkstore.New()
	cidA := store.Put([]byte("a"))
	cidB := store.Put([]byte("b"))

	idx1 := NewIndex()
	root1 := HashDirectory([]Entry{{"a", cidA}, {"b", cidB}}, store, idx1)

	idx2 := NewIndex()
	root2 := HashDirectory([]Entry{{"b", cidB}, {"a", cidA}}, store, idx2)

	assert.Equal(t, root1, root2)
	assert.True(t, store.Has(root1))
}

func TestHashDirectoryDedup(t *testing.T) {
	store := chunkstore.New()
	cidA := store.Put([]byte("a"))

	idx1 := NewIndex()
	withDupe := HashDirectory([]Entry{{"a", cidA}, {"a", cidA}}, store, idx1)

	idx2 := NewIndex()
	withoutDupe := HashDirectory([]Entry{{"a", cidA}}, store, idx2)

	assert.Equal(t, withoutDupe, withDupe)
}

func TestProofPathAndVerify(t *testing.T) {
	store := chunkstore.New()
	idx := NewIndex()

	cidA := store.Put([]byte("a"))
	cidB := store.Put([]byte("b"))
	cidC := store.Put([]byte("c"))

	dir2 := HashDirectory([]Entry{{"fileB", cidB}}, store, idx)
	dir1 := HashDirectory([]Entry{{"fileA", cidA}, {"dir2", dir2}}, store, idx)
	root := HashDirectory([]Entry{{"dir1", dir1}, {"fileC", cidC}}, store, idx)

	proof := ProofPath(idx, root, cidB)
	require.NotEmpty(t, proof)
	assert.Equal(t, cidB, proof[0])
	assert.Equal(t, root, proof[len(proof)-1])
	assert.True(t, VerifyProof(idx, root, cidB, proof))
}

func TestVerifyProofRejectsTamperedPath(t *testing.T) {
	store := chunkstore.New()
	idx := NewIndex()

	cidA := store.Put([]byte("a"))
	cidB := store.Put([]byte("b"))

	dir := HashDirectory([]Entry{{"fileA", cidA}, {"fileB", cidB}}, store, idx)
	root := HashDirectory([]Entry{{"dir", dir}}, store, idx)

	proof := ProofPath(idx, root, cidA)
	require.True(t, VerifyProof(idx, root, cidA, proof))

	// Removing an element breaks the chain.
	truncated := proof[:len(proof)-1]
	assert.False(t, VerifyProof(idx, root, cidA, truncated))

	// Reordering breaks the start/end invariant.
	if len(proof) >= 2 {
		reordered := append([]string{}, proof...)
		reordered[0], reordered[1] = reordered[1], reordered[0]
		assert.False(t, VerifyProof(idx, root, cidA, reordered))
	}
}

func TestProofPathUnreachableIsEmpty(t *testing.T) {
	store := chunkstore.New()
	idx := NewIndex()

	cidA := store.Put([]byte("a"))
	root := HashDirectory([]Entry{{"fileA", cidA}}, store, idx)

	unrelated := store.Put([]byte("elsewhere"))
	assert.Empty(t, ProofPath(idx, root, unrelated))
}
