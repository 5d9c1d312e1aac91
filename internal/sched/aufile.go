package sched

import (
	"time"

	"github.com/MrWong99/cadenza/pkg/audio/aufile"
)

// aufileDuration is the default [molecule.FileInfo]: open the file through
// the aufile reader and report its playable duration.
func aufileDuration(path string) (time.Duration, error) {
	f, err := aufile.Open(path)
	if err != nil {
		return 0, err
	}
	return f.Duration(), nil
}
