package main

import (
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/authority"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/digest"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/types"
	"github.com/rs/zerolog"
)

// fetcherFor builds the verifier.Fetcher this single-process daemon uses to
// re-hash a file's replicas. There is exactly one in-memory content map
// behind every "replica" here — simplidfsd simulates a multi-node cluster's
// metadata and placement decisions without actually partitioning storage
// across separate processes — so the fetch ignores which node ID it was
// asked about and hashes the authority's own copy of filename. This still
// exercises the full verifier state machine (per-replica health filtering,
// hash agreement, the partial flag) even though every "replica" always
// agrees by construction; a real multi-node deployment would replace this
// with an RPC to the named node instead.
func fetcherFor(auth *authority.Authority) func(id types.NodeID, filename string) (digest.Digest, error) {
	return func(id types.NodeID, filename string) (digest.Digest, error) {
		data, _, code := auth.ReadFileData(filename, 0, maxFileProbe)
		if code != types.Success {
			return digest.Digest{}, errNotFound(filename)
		}
		return digest.Hash(data), nil
	}
}

// maxFileProbe bounds how much of a file the verifier's fetch reads back to
// hash; large enough for the single-process content the authority holds in
// memory today.
const maxFileProbe = 1 << 30

type fileNotFoundError string

func (e fileNotFoundError) Error() string { return "file not found: " + string(e) }

func errNotFound(filename string) error { return fileNotFoundError(filename) }

// replicatorFor builds the repair.Replicator this daemon uses once a
// repair decision has chosen a new replica placement. There is nothing to
// physically copy in the single-process simulation — every node shares the
// same authority-owned content map — so this only logs the decision the
// repair worker already recorded via AddReplica.
func replicatorFor(logger zerolog.Logger) func(filename string, source, target types.NodeID) {
	return func(filename string, source, target types.NodeID) {
		logger.Info().Str("file", filename).Str("source", string(source)).Str("target", string(target)).Msg("replica placement recorded")
	}
}
