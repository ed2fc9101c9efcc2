// Package common holds the logger setup and build metadata shared by the
// cryptalias commands.
package common

// PackageName is used as the default service tag in logs.
const PackageName = "cryptalias"

// Version is set at build time with
// -ldflags "-X github.com/ruteri/cryptalias/common.Version=<version>".
var Version = "dev"
