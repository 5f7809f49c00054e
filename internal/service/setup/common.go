package setup

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-ps"
)

// promptConfirm asks the user a yes/no question on the console. Anything
// other than an explicit yes declines.
func promptConfirm(_ context.Context, question string) (bool, error) {
	fmt.Printf("%s [y/N]: ", question)

	reader := bufio.NewReader(os.Stdin)

	answer, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("read confirmation: %w", err)
	}

	answer = strings.ToLower(strings.TrimSpace(answer))

	return answer == "y" || answer == "yes", nil
}

// terminateProcessesByName kills running processes whose executable name is
// in the provided list, so an upgrade can replace files that are in use.
// The current process is always skipped.
func terminateProcessesByName(names []string) error {
	targets := sliceToSet(names)

	processList, err := ps.Processes()
	if err != nil {
		return err
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		processID := process.Pid()
		if processID == thisProcessID {
			continue
		}

		if _, found := targets[process.Executable()]; !found {
			continue
		}

		var runningProcess *os.Process

		runningProcess, err = os.FindProcess(processID)
		if err != nil {
			return err
		}

		if err = runningProcess.Kill(); err != nil {
			return err
		}
	}

	return nil
}

// sliceToSet converts a slice to a set for quick lookups.
func sliceToSet[T comparable](elements []T) map[T]struct{} {
	result := make(map[T]struct{}, len(elements))
	for _, value := range elements {
		result[value] = struct{}{}
	}

	return result
}
