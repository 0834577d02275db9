// Package imaging validates photos and renders their gallery thumbnails.
//
// Only JPEG and PNG are accepted; the type is sniffed from content, not the
// file extension. Thumbnails are JPEG, 200x200 at quality 85 unless the
// Thumbnailer says otherwise, scaled with Catmull-Rom and never enlarged.
// EXIF orientation is applied first so portrait shots from phones come out
// upright, and the EXIF capture time is reported when present.
package imaging
