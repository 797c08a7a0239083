// Package media resolves image, audio and video sources into a form a
// provider request can carry: a pass-through URL or inline base64 data.
//
// Remote http(s) URLs are passed through unless ForceBase64 is set, in which
// case they are downloaded through a rate-limited Fetcher. Local paths and
// file:// URLs are read and base64-encoded. CachedResolver keeps inlined
// remote media in redis so repeated conversations do not refetch it.
package media
