// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by the license
// that can be found in the LICENSE file.
package util

import "fmt"

// Wrapf wraps *errp with a formatted message, if *errp is non-nil.
// It is designed to be called from a defer statement:
//
//	func f() (err error) {
//		defer util.Wrapf(&err, "f(%d)", x)
//		...
//	}
func Wrapf(errp *error, format string, args ...any) {
	if *errp != nil {
		*errp = fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), *errp)
	}
}
