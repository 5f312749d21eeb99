package authority

import "fmt"

// notFoundError reports that an operation referenced a filename the
// authority has no inode for.
type notFoundError struct {
	filename string
}

func (e *notFoundError) Error() string {
	return fmt.Sprintf("authority: file not found: %s", e.filename)
}

func errFileNotFound(filename string) error {
	return &notFoundError{filename: filename}
}
