package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/brettbedarf/restfs/filesystem"
	"github.com/brettbedarf/restfs/internal/util"
	"github.com/spf13/cobra"
)

func newPushCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "push <path> <file>",
		Short: "Replace an object's content with a local file and save it",
		Long:  "Replace the content of the object at path with file (\"-\" reads stdin), then persist it to the remote.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := util.GetLogger("main")
			p, src := args[0], args[1]

			var (
				data []byte
				err  error
			)
			if src == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(src)
			}
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", src, err)
			}

			if err := a.provider.Connect(cmd.Context()); err != nil {
				return err
			}
			if err := a.provider.WriteFile(p, data, filesystem.PutOptions{}); err != nil {
				return err
			}
			if err := a.provider.Save(cmd.Context(), p, data); err != nil {
				return err
			}
			logger.Info().Str("path", p).Int("bytes", len(data)).Msg("Pushed object")
			return nil
		},
	}
}
