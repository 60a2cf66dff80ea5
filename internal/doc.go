// Package internal contains helper utilities that are intentionally private
// to memberauth, currently secure session-ID generation.
//
// # What this package must NOT do
//
//   - Export types that appear in the public memberauth API.
//   - Be imported by any package outside the memberauth module.
package internal
