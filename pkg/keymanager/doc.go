// Package keymanager manages the cluster's symmetric encryption key
// material and its rotation lifecycle. It holds the current key plus, for
// a bounded grace window, the key it replaced — so data encrypted just
// before a rotation can still be decrypted while it catches up — and
// exposes RotateKey as the operation behind `ctl rotate-key`.
//
// This package manages key material and lifecycle only. The chunk
// encryption/compression codec that would consume these keys is out of
// scope.
package keymanager
