// Command exfs2 is the CLI front end for the ExFS2 archival filesystem:
// a single archive rooted at the current working directory, mutated or
// inspected by exactly one of -a/-e/-r/-l/-D per invocation.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/exfs2/exfs2/internal/engine"
)

var (
	flagAdd     string
	flagFrom    string
	flagExtract string
	flagRemove  string
	flagList    bool
	flagDebug   string
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "exfs2",
		Short:         "inspect and mutate an ExFS2 archive rooted at the current directory",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runRoot,
	}
	f := cmd.Flags()
	f.StringVarP(&flagAdd, "add", "a", "", "add a host file into the archive at <exfs_path>")
	f.StringVarP(&flagFrom, "from", "f", "", "host path of the file to add (with -a)")
	f.StringVarP(&flagExtract, "extract", "e", "", "write <exfs_path>'s contents to standard output")
	f.StringVarP(&flagRemove, "remove", "r", "", "remove <exfs_path> from the archive")
	f.BoolVarP(&flagList, "list", "l", false, "print the recursive archive tree")
	f.StringVarP(&flagDebug, "debug", "D", "", "print an inode/debug dump for <exfs_path>")
	return cmd
}

func runRoot(cmd *cobra.Command, args []string) error {
	log := newLogger()

	selected := selectedMode()
	var usageErr error
	switch {
	case len(selected) != 1:
		usageErr = fmt.Errorf("%w: exactly one of -a, -e, -r, -l, -D is required", errUsage)
	case selected[0] == "add" && flagFrom == "":
		usageErr = fmt.Errorf("%w: -a requires -f <host_path>", errUsage)
	}
	if usageErr != nil {
		log.WithError(usageErr).Error("invalid arguments")
		return usageErr
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}

	fs, err := engine.Open(cwd, log)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer fs.Close()

	switch selected[0] {
	case "add":
		err = fs.Add(flagAdd, flagFrom)
	case "extract":
		err = fs.Extract(flagExtract, os.Stdout)
	case "remove":
		err = fs.Remove(flagRemove)
	case "list":
		err = fs.List(os.Stdout)
	case "debug":
		err = fs.Debug(flagDebug, os.Stdout)
	}

	if err != nil {
		logOperationError(log, err)
		if isLookupError(err) {
			return nil
		}
		return err
	}
	return nil
}

func selectedMode() []string {
	var modes []string
	if flagAdd != "" {
		modes = append(modes, "add")
	}
	if flagExtract != "" {
		modes = append(modes, "extract")
	}
	if flagRemove != "" {
		modes = append(modes, "remove")
	}
	if flagList {
		modes = append(modes, "list")
	}
	if flagDebug != "" {
		modes = append(modes, "debug")
	}
	return modes
}

// errUsage marks a malformed invocation: reported to standard error, no
// archive I/O performed, process exits non-zero.
var errUsage = errors.New("usage")

func newLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{})
	return logger.WithField("run", uuid.New().String())
}

func logOperationError(log *logrus.Entry, err error) {
	switch {
	case isLookupError(err):
		log.WithError(err).Warn("reported")
	default:
		log.WithError(err).Error("failed")
	}
}

func isLookupError(err error) bool {
	return errors.Is(err, engine.ErrNotFound) ||
		errors.Is(err, engine.ErrNotADirectory) ||
		errors.Is(err, engine.ErrNotAFile) ||
		errors.Is(err, engine.ErrAlreadyExists) ||
		errors.Is(err, engine.ErrEmptyName)
}

func exitCodeFor(err error) int {
	if errors.Is(err, errUsage) {
		return 2
	}
	return 1
}
