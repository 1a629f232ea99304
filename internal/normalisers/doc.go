// Package normalisers groups the item normalisers. A normaliser turns the
// raw fragments cut from a tracked document into stored items: it
// fingerprints each fragment, rewrites its links and renders its HTML.
//
// The markdown subpackage serves every supported list format.
package normalisers
