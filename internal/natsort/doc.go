// Package natsort implements natural-order string comparison, where embedded
// digit runs compare by numeric value ("page2" before "page10") and letters
// compare case-insensitively. It is used to order story pages and to rank
// search results deterministically.
package natsort
