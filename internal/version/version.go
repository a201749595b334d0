// Copyright ReqRep Transformation Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package version carries the build version string stamped into binaries
// and into gateway metadata.
package version

// Version is the current version of the build. This is populated by the Go
// linker for release builds and stays "dev" otherwise.
var Version = "dev"
