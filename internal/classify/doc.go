// Package classify turns filesystem structure into a three-level taxonomy:
// artist, tag path, asset. The top-level directories under the scan root are
// artists; below an artist, a directory whose name decomposes entirely into
// allowlisted tag tokens contributes tags, while the first unrecognized name
// converts its whole subtree into a single multi-page story. The walk is
// side-effect free and streams classifications to a caller-supplied consumer.
package classify
