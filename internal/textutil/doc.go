// Package textutil derives filesystem-safe names from track metadata.
//
// Titles and artists are folded to ASCII (diacritics stripped) before every
// remaining non-alphanumeric character is replaced with an underscore, so the
// same metadata always yields the same suggested filename.
package textutil
