// Package media generates and caches thumbnail previews for catalog assets.
package media
