//go:build !windows

package logx

import "os"

// notifyCritical surfaces a critical error to the user. Outside Windows
// there is no native popup mechanism in a CLI context, so this falls back
// to stderr.
func notifyCritical(title, message string) {
	_, _ = os.Stderr.Write([]byte("CRITICAL [" + title + "]: " + message + "\n"))
}
