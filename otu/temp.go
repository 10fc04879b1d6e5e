package otu

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
)

// workspace owns all temp files of one run. Every path handed out lives
// under a single directory so a failed run leaves exactly one subtree to
// inspect or remove. There is no ambient temp-dir state; the orchestrator
// passes the workspace to every stage that spills.
type workspace struct {
	dir string
	seq int
}

func newWorkspace(base string) (*workspace, error) {
	dir, err := ioutil.TempDir(base, "bio-otu-")
	if err != nil {
		return nil, err
	}
	return &workspace{dir: dir}, nil
}

// path returns a fresh, unique path with the given label and extension.
func (w *workspace) path(label, ext string) string {
	w.seq++
	return filepath.Join(w.dir, label+"-"+strconv.Itoa(w.seq)+ext)
}

func (w *workspace) cleanup() {
	os.RemoveAll(w.dir) // nolint: errcheck
}
