package commands

import (
	"fmt"
	"strings"

	"github.com/brettbedarf/restfs"
	"github.com/spf13/cobra"
)

func newLsCmd(a *app) *cobra.Command {
	var long bool

	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List a container",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := "/"
			if len(args) == 1 {
				p = args[0]
			}
			if err := a.provider.Connect(cmd.Context()); err != nil {
				return err
			}
			infos, err := a.provider.ReadDirectory(p)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, info := range infos {
				if long {
					fmt.Fprintf(out, "%-9s %8d %s %s\n",
						info.Type, info.Size, info.Mtime.Format("2006-01-02 15:04"), displayName(info))
					continue
				}
				fmt.Fprintln(out, displayName(info))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "show kind, size and modification time")
	return cmd
}

func newCatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <path>",
		Short: "Print an object's content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.provider.Connect(cmd.Context()); err != nil {
				return err
			}
			data, err := a.provider.ReadFile(args[0])
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newTreeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print every path in the tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.provider.Connect(cmd.Context()); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.provider.FS().Walk(func(p string, info restfs.FileInfo) error {
				depth := strings.Count(p, "/") - 1
				if p == "/" {
					fmt.Fprintln(out, "/")
					return nil
				}
				_, err := fmt.Fprintf(out, "%s%s\n", strings.Repeat("  ", depth), displayName(info))
				return err
			})
		},
	}
}

func displayName(info restfs.FileInfo) string {
	if info.IsDir() {
		return info.Name + "/"
	}
	return info.Name
}
