package transport

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JacobBorden/SimpliDFS-sub000/pkg/types"
)

// fieldCount is the number of positional fields in a marshaled Payload:
// type, filename, content, node_address, node_port, error_code, mode, uid,
// gid, offset, size, data, path, new_path.
const fieldCount = 14

// Marshal encodes p as a pipe-delimited positional record. Only the final
// field (NewPath) may contain a literal '|' without corrupting the parse;
// this is a property of the wire format itself, not a bug in this encoder.
func Marshal(p types.Payload) []byte {
	fields := []string{
		strconv.Itoa(int(p.Type)),
		p.Filename,
		p.Content,
		p.NodeAddress,
		strconv.Itoa(p.NodePort),
		strconv.Itoa(p.ErrorCode),
		strconv.FormatUint(uint64(p.Mode), 10),
		strconv.FormatUint(uint64(p.UID), 10),
		strconv.FormatUint(uint64(p.GID), 10),
		strconv.FormatInt(p.Offset, 10),
		strconv.FormatInt(p.Size, 10),
		p.Data,
		p.Path,
		p.NewPath,
	}
	return []byte(strings.Join(fields, "|"))
}

// Unmarshal decodes a pipe-delimited positional record into a Payload.
// Fields are split positionally: the first fieldCount-1 delimiters end a
// field each, and the final field absorbs every remaining byte, including
// further '|' characters.
func Unmarshal(data []byte) (types.Payload, error) {
	s := string(data)
	var tokens [fieldCount]string
	for i := 0; i < fieldCount-1; i++ {
		idx := strings.IndexByte(s, '|')
		if idx < 0 {
			return types.Payload{}, fmt.Errorf("transport: malformed payload, expected %d fields, ran out after %d", fieldCount, i)
		}
		tokens[i] = s[:idx]
		s = s[idx+1:]
	}
	tokens[fieldCount-1] = s

	typ, err := strconv.Atoi(tokens[0])
	if err != nil {
		return types.Payload{}, fmt.Errorf("transport: invalid message type %q: %w", tokens[0], err)
	}
	nodePort, err := strconv.Atoi(tokens[4])
	if err != nil {
		return types.Payload{}, fmt.Errorf("transport: invalid node_port %q: %w", tokens[4], err)
	}
	errCode, err := strconv.Atoi(tokens[5])
	if err != nil {
		return types.Payload{}, fmt.Errorf("transport: invalid error_code %q: %w", tokens[5], err)
	}
	mode, err := strconv.ParseUint(tokens[6], 10, 32)
	if err != nil {
		return types.Payload{}, fmt.Errorf("transport: invalid mode %q: %w", tokens[6], err)
	}
	uid, err := strconv.ParseUint(tokens[7], 10, 32)
	if err != nil {
		return types.Payload{}, fmt.Errorf("transport: invalid uid %q: %w", tokens[7], err)
	}
	gid, err := strconv.ParseUint(tokens[8], 10, 32)
	if err != nil {
		return types.Payload{}, fmt.Errorf("transport: invalid gid %q: %w", tokens[8], err)
	}
	offset, err := strconv.ParseInt(tokens[9], 10, 64)
	if err != nil {
		return types.Payload{}, fmt.Errorf("transport: invalid offset %q: %w", tokens[9], err)
	}
	size, err := strconv.ParseInt(tokens[10], 10, 64)
	if err != nil {
		return types.Payload{}, fmt.Errorf("transport: invalid size %q: %w", tokens[10], err)
	}

	return types.Payload{
		Type:        types.MessageType(typ),
		Filename:    tokens[1],
		Content:     tokens[2],
		NodeAddress: tokens[3],
		NodePort:    nodePort,
		ErrorCode:   errCode,
		Mode:        uint32(mode),
		UID:         uint32(uid),
		GID:         uint32(gid),
		Offset:      offset,
		Size:        size,
		Data:        tokens[11],
		Path:        tokens[12],
		NewPath:     tokens[13],
	}, nil
}
