// Package upload sends batches of photos to a gallery repository.
//
// Each file is validated, thumbnailed and written twice through the contents
// API: the original to <name> at the repository root and the JPEG thumbnail
// to thumbnails/<name>. An existing file is replaced using its blob sha.
//
// At most Fanout files are in flight; image decoding is separately bounded
// by the number of CPUs because it is the memory-heavy step. One file's
// failure never stops the batch. The Report lists every file, sorted by name,
// with a typed failure Reason.
package upload
