// Package publish turns a repository of uploaded photos into a GitHub Pages
// gallery.
//
// Publishing renders index.html from the current image listing (grid,
// justified or masonry layout), commits it to the configured branch, enables
// Pages for that branch at / and requests a build. PublishAndWatch then hands
// the repository to a pages.Poller so the caller sees the build settle.
//
// Gallery descriptions are user text and pass through bluemonday's UGC
// policy before they reach the page.
package publish
