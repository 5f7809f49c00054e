// Package pathlist implements the ordered-segment algebra behind PATH
// environment mutations.
//
// All functions are pure string transformations: Ensure appends a directory
// as the last segment only when no existing segment already names it, and
// Remove deletes exactly the segments that name it. Keeping the algorithm
// free of registry I/O lets the idempotence and ordering guarantees be
// unit-tested without touching a real environment.
package pathlist
