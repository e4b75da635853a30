package runner

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// CPUBrandCommand prints the brand of the first CPU on Solaris hosts.
const CPUBrandCommand = `kstat -m cpu_info | grep brand | head -n1 | awk '{ print $2 }'`

// RunShell runs cmdline under bash and returns its trimmed standard output.
func RunShell(cmdline string) (string, error) {
	if strings.TrimSpace(cmdline) == "" {
		return "", errors.New("cmdline could not be prepared")
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command("bash", "-c", cmdline)
	cmd.Env = os.Environ()
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("command %q failed: %w: %s", cmdline, err, msg)
		}
		return "", fmt.Errorf("command %q failed: %w", cmdline, err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// CPUBrand probes the host CPU brand string. Callers treat any error as
// "brand unknown".
func CPUBrand() (string, error) {
	return RunShell(CPUBrandCommand)
}
