package merkledag

import (
	"sort"

	"github.com/JacobBorden/SimpliDFS-sub000/pkg/chunkstore"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/digest"
)

// Entry is one (name, child CID) pair inside a DAG node.
type Entry struct {
	Name  string
	Child string // textual CID
}

// Index maps a DAG node's CID to its sorted, deduplicated child list, so
// that proofs can be constructed and verified without re-reading chunk
// bytes from the store.
type Index struct {
	children map[string][]Entry
}

// NewIndex creates an empty DAG index.
func NewIndex() *Index {
	return &Index{children: make(map[string][]Entry)}
}

// HashDirectory sorts entries ascending by name, deduplicates exact
// (name, cid) collisions, serializes the result, hashes it, inserts the
// serialized node into store, records the sorted child list under the
// resulting CID, and returns that CID. The result is independent of the
// input order.
func HashDirectory(entries []Entry, store *chunkstore.Store, idx *Index) string {
	sorted := dedupSorted(entries)

	payload := serialize(sorted)
	cid := store.Put(payload)
	idx.children[cid] = sorted
	return cid
}

func dedupSorted(entries []Entry) []Entry {
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	sort.Slice(cp, func(i, j int) bool {
		if cp[i].Name != cp[j].Name {
			return cp[i].Name < cp[j].Name
		}
		return cp[i].Child < cp[j].Child
	})

	out := cp[:0:0]
	for i, e := range cp {
		if i > 0 && e == cp[i-1] {
			continue
		}
		out = append(out, e)
	}
	return out
}

// serialize concatenates, for each entry, its name bytes then its child
// CID's fixed-width byte encoding — no delimiters, no length prefixes.
// Determinism comes from the caller's sort plus the fixed width of a CID.
func serialize(entries []Entry) []byte {
	var buf []byte
	for _, e := range entries {
		buf = append(buf, e.Name...)
		if d, err := digest.FromCID(e.Child); err == nil {
			buf = append(buf, digest.ToBytes(d)...)
		} else {
			buf = append(buf, e.Child...)
		}
	}
	return buf
}

// Children returns the sorted child list recorded for a node CID.
func (idx *Index) Children(cid string) ([]Entry, bool) {
	c, ok := idx.children[cid]
	return c, ok
}

// ProofPath returns the ancestor chain [target, ..., root] from target up
// to root, or an empty slice if target is unreachable from root.
func ProofPath(idx *Index, root, target string) []string {
	if root == target {
		return []string{root}
	}
	path := findPath(idx, root, target, map[string]bool{})
	if path == nil {
		return nil
	}
	// findPath returns [root, ..., target]; the proof is ancestors-up,
	// i.e. [target, ..., root].
	reversed := make([]string, len(path))
	for i, v := range path {
		reversed[len(path)-1-i] = v
	}
	return reversed
}

// findPath performs a depth-first search from node looking for target,
// returning [node, ..., target] on success.
func findPath(idx *Index, node, target string, visited map[string]bool) []string {
	if visited[node] {
		return nil
	}
	visited[node] = true

	children, ok := idx.Children(node)
	if !ok {
		return nil
	}
	for _, c := range children {
		if c.Child == target {
			return []string{node, target}
		}
		if sub := findPath(idx, c.Child, target, visited); sub != nil {
			return append([]string{node}, sub...)
		}
	}
	return nil
}

// VerifyProof checks that path is a valid inclusion proof of target under
// root: path must start at target and end at root, and for every adjacent
// (child, parent) pair the parent's recorded sorted children must include
// child and must hash (when re-serialized) to parent itself.
func VerifyProof(idx *Index, root, target string, path []string) bool {
	if len(path) == 0 {
		return false
	}
	if path[0] != target || path[len(path)-1] != root {
		return false
	}

	for i := 0; i+1 < len(path); i++ {
		child, parent := path[i], path[i+1]

		children, ok := idx.Children(parent)
		if !ok {
			return false
		}
		if recomputed := chunkCIDOf(children); recomputed != parent {
			return false
		}

		found := false
		for _, c := range children {
			if c.Child == child {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// chunkCIDOf recomputes a node's own CID from its recorded sorted children,
// without touching the chunk store (the index already holds the sorted,
// deduplicated list).
func chunkCIDOf(children []Entry) string {
	d := digest.Hash(serialize(children))
	return digest.ToCID(d)
}
