// Package catalog is the read-through view of gallery repositories and the
// images inside them.
//
// Repository lists and directory listings are cached; mutations (Create,
// Delete) and completed uploads invalidate the affected keys. Pages status is
// always read live. Each image's upload date comes from the last commit
// touching its thumbnail and is cached under the repository's prefix like
// everything else. Repository names are checked locally with
// ValidateRepoName before GitHub sees them.
package catalog
