// Package gocvio connects sot sessions to OpenCV through gocv: video capture, interactive
// region selection, an annotated preview window and the OpenCV tracker family (MIL, KCF, CSRT).
//
// It requires OpenCV with contrib modules to be installed; the sot package itself does not.
package gocvio
