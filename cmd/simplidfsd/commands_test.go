package main

import (
	"testing"
	"time"

	"github.com/JacobBorden/SimpliDFS-sub000/pkg/authority"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyToAddFileThenWriteThenRename(t *testing.T) {
	auth := authority.NewWithConfig(1, time.Minute, time.Now)
	auth.RegisterNode(types.NodeID("n1"), "127.0.0.1", 9001)
	apply := applyTo(auth)

	require.NoError(t, apply(encodeAddFile("a.txt", []types.NodeID{"n1"}, 0o644)))
	require.NoError(t, apply(encodeWrite("a.txt", 0, []byte("hello"))))

	data, n, errCode := auth.ReadFileData("a.txt", 0, 5)
	assert.Equal(t, types.Success, errCode)
	assert.EqualValues(t, 5, n)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, apply(encodeRename("a.txt", "b.txt")))
	_, _, _, _, errCode = auth.GetAttributes("a.txt")
	assert.Equal(t, types.ENOENT, errCode)
	_, _, _, size, errCode := auth.GetAttributes("b.txt")
	assert.Equal(t, types.Success, errCode)
	assert.EqualValues(t, 5, size)

	require.NoError(t, apply(encodeRemoveFile("b.txt")))
	_, _, _, _, errCode = auth.GetAttributes("b.txt")
	assert.Equal(t, types.ENOENT, errCode)
}

func TestApplyToRegisterNodeAndHeartbeat(t *testing.T) {
	auth := authority.NewWithConfig(1, time.Minute, time.Now)
	apply := applyTo(auth)

	require.NoError(t, apply(encodeRegisterNode("n1", "127.0.0.1", 9001)))
	require.NoError(t, apply(encodeHeartbeat("n1")))
	assert.Contains(t, auth.HealthyNodes(), "n1")
}

func TestApplyToRejectsMalformedCommand(t *testing.T) {
	auth := authority.NewWithConfig(1, time.Minute, time.Now)
	apply := applyTo(auth)

	assert.Error(t, apply("NOT|A|REAL|VERB"))
	assert.Error(t, apply("ADDFILE|onlyonefield"))
}
