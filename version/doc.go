// Package version carries diarlive build information. Values are set at
// link time:
//
//	go build -ldflags "-X github.com/kbukum/diarlive/version.Version=1.2.0"
//
// Missing values fall back to the module's embedded VCS settings.
package version
