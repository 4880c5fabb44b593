package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/feeportal/services/export"
)

func (cli *commandLine) exportRoster(ctx context.Context, path string) (err error) {
	students, err := cli.studentSvc.ListAll(ctx)
	if err != nil {
		return errors.Wrap(err, "listing students")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating output file")
	}
	defer func() {
		if cErr := f.Close(); err == nil {
			err = cErr
		}
	}()

	if err = exportsvc.WriteRoster(f, students); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "exported %d students to %s\n", len(students), path)
	return nil
}
