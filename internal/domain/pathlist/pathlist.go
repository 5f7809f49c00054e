package pathlist

import "strings"

// Delimiter separates segments of a path-list environment variable on Windows.
const Delimiter = ";"

// Split breaks a path-list value into its ordered segments.
// Empty segments are preserved as-is: collapsing them could alter
// the behavior of unrelated tools that re-read the variable.
func Split(value string) []string {
	if value == "" {
		return nil
	}

	return strings.Split(value, Delimiter)
}

// Join assembles segments back into a single path-list value.
func Join(segments []string) string {
	return strings.Join(segments, Delimiter)
}

// canonical trims trailing path separators so that "C:\Tools\" and "C:\Tools"
// compare as the same directory.
func canonical(segment string) string {
	return strings.TrimRight(segment, `\/`)
}

// SegmentsEqual reports whether two segments name the same directory.
// The comparison is case-insensitive and ignores trailing separators,
// but never matches by substring.
func SegmentsEqual(a, b string) bool {
	return strings.EqualFold(canonical(a), canonical(b))
}

// Contains reports whether the path-list value already holds dir as an exact segment.
func Contains(value, dir string) bool {
	for _, segment := range Split(value) {
		if SegmentsEqual(segment, dir) {
			return true
		}
	}

	return false
}

// Ensure returns the path-list value with dir present exactly once.
// When dir is already a segment, the value is returned unchanged and
// changed is false; otherwise dir is appended as the last segment with
// every original segment preserved in order. The entire new value is
// computed before the caller performs any write, so a cancelled apply
// never leaves a partially-appended value behind.
func Ensure(value, dir string) (newValue string, changed bool) {
	if canonical(dir) == "" {
		return value, false
	}

	if Contains(value, dir) {
		return value, false
	}

	if value == "" {
		return dir, true
	}

	return value + Delimiter + dir, true
}

// Remove returns the path-list value with every segment naming dir deleted.
// Removal is by exact segment match, never by substring, so a directory
// whose path merely contains dir as a prefix is left intact. Empty
// segments are preserved.
func Remove(value, dir string) (newValue string, changed bool) {
	if canonical(dir) == "" {
		return value, false
	}

	segments := Split(value)
	kept := make([]string, 0, len(segments))

	for _, segment := range segments {
		if SegmentsEqual(segment, dir) {
			changed = true
			continue
		}

		kept = append(kept, segment)
	}

	if !changed {
		return value, false
	}

	return Join(kept), true
}
