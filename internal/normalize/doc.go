// Package normalize turns the raw text of lint, type-checker and security
// scanner runs into canonical review issues. Parsers are pure and skip any
// line they cannot read.
package normalize
