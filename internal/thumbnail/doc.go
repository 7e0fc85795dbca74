// Package thumbnail captures preview frames of detected videos.
//
// Capturing is a background enhancement. The sniff result is delivered
// first; Backfill then grabs frames for a small number of videos and
// publishes each thumbnail as a model.ThumbnailUpdate. A failed capture
// simply produces no update.
package thumbnail
