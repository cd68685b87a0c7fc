//go:build windows

package logx

import (
	"os"
	"os/exec"
	"strings"
)

// notifyCritical shows a native Windows message box via PowerShell so a
// scheduled/unattended run still surfaces critical failures to the
// console user.
//
// The process is started, not waited on, so a Fatal-triggered os.Exit
// elsewhere does not block on the popup.
func notifyCritical(title, message string) {
	script := `Add-Type -AssemblyName System.Windows.Forms; ` +
		`[System.Windows.Forms.MessageBox]::Show("` + escape(message) + `", "` + escape(title) + `", ` +
		`[System.Windows.Forms.MessageBoxButtons]::OK, [System.Windows.Forms.MessageBoxIcon]::Error)`

	cmd := exec.Command("powershell.exe", "-NoProfile", "-WindowStyle", "Hidden", "-Command", script)
	cmd.Env = os.Environ()
	_ = cmd.Start()
}

func escape(s string) string {
	return strings.ReplaceAll(s, `"`, `'`)
}
