package authority

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/JacobBorden/SimpliDFS-sub000/pkg/types"
)

// FileMetadataName and NodeRegistryName are the on-disk file names spec.md
// §6 fixes for the two persistence files.
const (
	FileMetadataName = "file_metadata.dat"
	NodeRegistryName = "node_registry.dat"
)

// Save serializes the inode table and node registry to dataDir, each
// overwritten atomically via write-to-temp-then-rename.
func (a *Authority) Save(dataDir string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.saveFileMetadata(filepath.Join(dataDir, FileMetadataName)); err != nil {
		return fmt.Errorf("save file metadata: %w", err)
	}
	if err := a.saveNodeRegistry(filepath.Join(dataDir, NodeRegistryName)); err != nil {
		return fmt.Errorf("save node registry: %w", err)
	}
	return nil
}

func (a *Authority) saveFileMetadata(path string) error {
	var b strings.Builder
	for filename, entry := range a.inodes {
		b.WriteString(filename)
		b.WriteByte('|')
		for i, r := range entry.Replicas {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(string(r))
		}
		b.WriteByte('\n')
	}
	return writeAtomic(path, []byte(b.String()))
}

func (a *Authority) saveNodeRegistry(path string) error {
	var b strings.Builder
	for id, node := range a.nodes {
		b.WriteString(string(id))
		b.WriteByte('|')
		b.WriteString(node.Address())
		b.WriteByte('|')
		b.WriteString(strconv.FormatInt(node.RegisteredAt.Unix(), 10))
		b.WriteByte('|')
		b.WriteString(strconv.FormatInt(node.LastHeartbeat.Unix(), 10))
		b.WriteByte('|')
		if node.Alive {
			b.WriteString("1")
		} else {
			b.WriteString("0")
		}
		b.WriteByte('\n')
	}
	return writeAtomic(path, []byte(b.String()))
}

// Load replaces the in-memory inode table and node registry with the
// contents of dataDir's persistence files. A missing file is treated as an
// empty table, matching a fresh cluster's first boot.
func (a *Authority) Load(dataDir string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	inodes, err := loadFileMetadata(filepath.Join(dataDir, FileMetadataName))
	if err != nil {
		return fmt.Errorf("load file metadata: %w", err)
	}
	nodes, err := loadNodeRegistry(filepath.Join(dataDir, NodeRegistryName))
	if err != nil {
		return fmt.Errorf("load node registry: %w", err)
	}

	a.inodes = inodes
	a.nodes = nodes
	a.data = make(map[string][]byte, len(inodes))
	for filename := range inodes {
		a.data[filename] = nil
	}
	return nil
}

func loadFileMetadata(path string) (map[string]*types.InodeEntry, error) {
	inodes := make(map[string]*types.InodeEntry)

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return inodes, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		filename, rest, ok := strings.Cut(line, "|")
		if !ok || filename == "" {
			continue
		}

		var replicas []types.NodeID
		if rest != "" {
			for _, id := range strings.Split(rest, ",") {
				replicas = append(replicas, types.NodeID(id))
			}
		}
		inodes[filename] = &types.InodeEntry{Filename: filename, Replicas: replicas}
	}
	return inodes, scanner.Err()
}

func loadNodeRegistry(path string) (map[types.NodeID]*types.NodeRegistration, error) {
	nodes := make(map[types.NodeID]*types.NodeRegistration)

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nodes, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), "|")
		if len(fields) != 5 || fields[0] == "" {
			continue
		}

		host, portStr, err := net.SplitHostPort(fields[1])
		if err != nil {
			continue
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			continue
		}
		regTS, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			continue
		}
		hbTS, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			continue
		}

		nodes[types.NodeID(fields[0])] = &types.NodeRegistration{
			ID:            types.NodeID(fields[0]),
			Host:          host,
			Port:          port,
			RegisteredAt:  time.Unix(regTS, 0),
			LastHeartbeat: time.Unix(hbTS, 0),
			Alive:         fields[4] == "1",
		}
	}
	return nodes, scanner.Err()
}

// writeAtomic writes data to a temp file in path's directory, then renames
// it over path, so readers never observe a partially-written file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
