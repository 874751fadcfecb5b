// Package labels holds the fixed sleep-stage class set.
package labels

import "fmt"

// Names lists the sleep stages in label-index order. Class folders are
// matched against these names, so the order also matches a sorted listing
// of the folders.
var Names = []string{"N1", "N2", "N3", "REM", "Wake"}

// NumClasses is the width of the classifier head.
const NumClasses = 5

// Name returns the stage name for a label index.
func Name(i int) string {
	if i < 0 || i >= len(Names) {
		return fmt.Sprintf("class_%d", i)
	}
	return Names[i]
}

// Index resolves a class folder name to its label index.
func Index(name string) (int, bool) {
	for i, n := range Names {
		if n == name {
			return i, true
		}
	}
	return -1, false
}
