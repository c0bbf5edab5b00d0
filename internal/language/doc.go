// Package language normalizes audio and subtitle language codes supplied by
// clients or reported by extractors into canonical base tags for format
// selection and display.
package language
