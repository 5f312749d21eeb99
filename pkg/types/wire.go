package types

import "strconv"

// MessageType is the stable small-integer opcode carried in decimal as the
// first field of every framed-transport payload. The set below covers the
// codes spec.md §6 lists as a minimum; AdminHealth/AdminRepairRunOnce/
// AdminRotateKey/AdminVerifyCID extend it for the ctl admin surface (the
// spec leaves the enum open-ended: "includes at least").
type MessageType int

const (
	CreateFile MessageType = iota + 1
	WriteFile
	ReadFile
	FileCreated
	FileWritten
	FileRead
	FileRemoved
	RegisterNode
	Heartbeat
	ReplicateFileCommand
	ReceiveFileCommand
	DeleteFile
	GetAttr
	GetAttrResponse
	Readdir
	ReaddirResponse
	Access
	AccessResponse
	Open
	OpenResponse
	CreateFileResponse
	Read
	ReadResponse
	Write
	WriteResponse
	Unlink
	UnlinkResponse
	Rename
	RenameResponse
	Mkdir
	MkdirResponse
	Rmdir
	RmdirResponse
	Statx
	StatxResponse
	Utimens
	UtimensResponse
	NodeReadFileChunk
	NodeReadFileChunkResponse
	NodeWriteFileChunk
	NodeWriteFileChunkResponse
	RaftAppendEntries
	RaftAppendEntriesResponse
	RaftRequestVote
	RaftRequestVoteResponse
	RaftInstallSnapshot
	RaftInstallSnapshotResponse

	// Admin control-plane extension used by cmd/simplidfsctl.
	AdminHealth
	AdminHealthResponse
	AdminRepairRunOnce
	AdminRepairRunOnceResponse
	AdminRotateKey
	AdminRotateKeyResponse
	AdminVerifyCID
	AdminVerifyCIDResponse
)

var messageTypeNames = map[MessageType]string{
	CreateFile:                 "CreateFile",
	WriteFile:                  "WriteFile",
	ReadFile:                   "ReadFile",
	FileCreated:                "FileCreated",
	FileWritten:                "FileWritten",
	FileRead:                   "FileRead",
	FileRemoved:                "FileRemoved",
	RegisterNode:               "RegisterNode",
	Heartbeat:                  "Heartbeat",
	ReplicateFileCommand:       "ReplicateFileCommand",
	ReceiveFileCommand:         "ReceiveFileCommand",
	DeleteFile:                 "DeleteFile",
	GetAttr:                    "GetAttr",
	GetAttrResponse:            "GetAttrResponse",
	Readdir:                    "Readdir",
	ReaddirResponse:            "ReaddirResponse",
	Access:                     "Access",
	AccessResponse:             "AccessResponse",
	Open:                       "Open",
	OpenResponse:               "OpenResponse",
	CreateFileResponse:         "CreateFileResponse",
	Read:                       "Read",
	ReadResponse:               "ReadResponse",
	Write:                      "Write",
	WriteResponse:              "WriteResponse",
	Unlink:                     "Unlink",
	UnlinkResponse:             "UnlinkResponse",
	Rename:                     "Rename",
	RenameResponse:             "RenameResponse",
	Mkdir:                      "Mkdir",
	MkdirResponse:              "MkdirResponse",
	Rmdir:                      "Rmdir",
	RmdirResponse:              "RmdirResponse",
	Statx:                      "Statx",
	StatxResponse:              "StatxResponse",
	Utimens:                    "Utimens",
	UtimensResponse:            "UtimensResponse",
	NodeReadFileChunk:          "NodeReadFileChunk",
	NodeReadFileChunkResponse:  "NodeReadFileChunkResponse",
	NodeWriteFileChunk:         "NodeWriteFileChunk",
	NodeWriteFileChunkResponse: "NodeWriteFileChunkResponse",
	RaftAppendEntries:          "RaftAppendEntries",
	RaftAppendEntriesResponse:  "RaftAppendEntriesResponse",
	RaftRequestVote:            "RaftRequestVote",
	RaftRequestVoteResponse:    "RaftRequestVoteResponse",
	RaftInstallSnapshot:        "RaftInstallSnapshot",
	RaftInstallSnapshotResponse: "RaftInstallSnapshotResponse",
	AdminHealth:                 "AdminHealth",
	AdminHealthResponse:         "AdminHealthResponse",
	AdminRepairRunOnce:          "AdminRepairRunOnce",
	AdminRepairRunOnceResponse:  "AdminRepairRunOnceResponse",
	AdminRotateKey:              "AdminRotateKey",
	AdminRotateKeyResponse:      "AdminRotateKeyResponse",
	AdminVerifyCID:              "AdminVerifyCID",
	AdminVerifyCIDResponse:      "AdminVerifyCIDResponse",
}

// String returns the opcode's symbolic name, used as a low-cardinality
// Prometheus label value. Unknown values fall back to their decimal form.
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return strconv.Itoa(int(t))
}

// Payload is the 14-field pipe-delimited record carried as every framed
// message's body. Field order is fixed by spec.md §4.1 and must not change:
// it is the on-wire contract between every component in the cluster.
type Payload struct {
	Type        MessageType
	Filename    string
	Content     string
	NodeAddress string
	NodePort    int
	ErrorCode   int
	Mode        uint32
	UID         uint32
	GID         uint32
	Offset      int64
	Size        int64
	Data        string
	Path        string
	NewPath     string
}
