// Package frameio provides pure Go collaborators for sot sessions:
// an image-sequence frame source, a fixed region selector and result sinks.
package frameio
