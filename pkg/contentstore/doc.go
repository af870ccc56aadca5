// Package contentstore persists file bytes on a filesystem tree rooted per
// bucket, with every read and write confined to the bucket's directory.
//
// Relative paths are represented by the validated RelPath type, constructed
// only through CleanRelPath. Raw strings never reach the filesystem: Resolve
// joins the bucket root with a RelPath and verifies the result is still
// lexically inside that root, rejecting traversal attempts instead of
// truncating them.
//
// Writes go to a temporary file in the destination directory and are renamed
// over the target, so a concurrent reader observes either the old complete
// bytes or the new complete bytes, never a half-written mix.
package contentstore
