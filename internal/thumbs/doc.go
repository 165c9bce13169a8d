// Package thumbs implements the bounded LRU thumbnail cache.
//
// Entries are keyed by (path, pixel size): the same image rendered at a
// new thumbnail size is a distinct entry, which is why a size change
// clears the whole cache rather than trying to rescale in place.
// Decode failures degrade to a solid placeholder tile and are never
// cached, so a transiently unreadable file gets retried on its next
// request.
package thumbs
