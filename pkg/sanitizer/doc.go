// Package sanitizer normalizes registrant input before validation and storage.
//
// Every function is idempotent. Unusable input comes back empty rather than as
// an error so that validation can report it with the field name attached.
package sanitizer
