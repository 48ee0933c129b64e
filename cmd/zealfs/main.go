// Command zealfs manipulates ZealFS disk images without mounting them:
// formatting, inspection and file transfer in and out of an image.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/zeal8bit/zealfs"
)

var (
	imagePath string
	sizeKiB   int
	useV1     bool
	useMBR    bool
)

var log = logrus.New()

// openImage mounts the image file. A missing or empty file gets formatted
// on first use.
func openImage() (*zealfs.Fs, error) {
	backing, err := os.OpenFile(imagePath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}

	opts := zealfs.Options{Variant: zealfs.V2, SizeKiB: sizeKiB, MBR: useMBR}
	if useV1 {
		opts.Variant = zealfs.V1
		opts.MBR = false
	}

	fs, err := zealfs.New(backing, opts)
	if err != nil {
		backing.Close()
		return nil, err
	}
	for _, warning := range fs.Warnings() {
		log.Warn(warning)
	}
	return fs, nil
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "zealfs",
		Short:         "Inspect and manipulate ZealFS disk images",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&imagePath, "image", "zfs.img", "name of the image file")
	root.PersistentFlags().IntVar(&sizeKiB, "size", zealfs.DefaultSizeKiB, "size of a new image file in KiB")
	root.PersistentFlags().BoolVar(&useV1, "v1", false, "use the v1 on-disk format (64 KiB max)")
	root.PersistentFlags().BoolVar(&useMBR, "mbr", false, "wrap a new v2 image in an MBR partition")

	root.AddCommand(
		formatCommand(),
		infoCommand(),
		lsCommand(),
		catCommand(),
		putCommand(),
		getCommand(),
		rmCommand(),
		mvCommand(),
		mkdirCommand(),
	)
	return root
}

func formatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "format",
		Short: "Create a fresh image, replacing any existing file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Remove the file so that openImage creates an empty one and formats.
			if err := os.RemoveAll(imagePath); err != nil {
				return err
			}
			fs, err := openImage()
			if err != nil {
				return err
			}
			info := fs.Info()
			log.Infof("formatted %s: v%d, %d pages of %d bytes, %d free",
				imagePath, info.Variant, info.PageCount, info.PageSize, info.FreePages)
			return fs.Close()
		},
	}
}

func infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the image header and capacities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := openImage()
			if err != nil {
				return err
			}
			defer fs.Close()

			info := fs.Info()
			fmt.Printf("Variant:             v%d\n", info.Variant)
			fmt.Printf("Partition offset:    %d\n", info.Offset)
			fmt.Printf("Page size:           %d bytes\n", info.PageSize)
			fmt.Printf("Pages:               %d (%d free)\n", info.PageCount, info.FreePages)
			fmt.Printf("Bitmap size:         %d bytes\n", info.BitmapSize)
			fmt.Printf("Maximum root entries: %d\n", info.RootEntries)
			fmt.Printf("Maximum dir entries:  %d\n", info.DirEntries)
			if info.Variant == zealfs.V2 {
				fmt.Printf("FAT pages:           %d\n", info.FATPages)
			}
			return nil
		},
	}
}

func lsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [path]",
		Short: "List a directory of the image",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/"
			if len(args) == 1 {
				path = args[0]
			}
			fs, err := openImage()
			if err != nil {
				return err
			}
			defer fs.Close()

			dir, err := fs.Open(path)
			if err != nil {
				return err
			}
			defer dir.Close()

			entries, err := dir.Readdir(-1)
			if err != nil {
				return err
			}
			for _, entry := range entries {
				kind := "-"
				if entry.IsDir() {
					kind = "d"
				}
				fmt.Printf("%s %10d %s %s\n",
					kind, entry.Size(), entry.ModTime().Format("2006-01-02 15:04:05"), entry.Name())
			}
			return nil
		},
	}
}

func catCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <path>",
		Short: "Write a file of the image to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := openImage()
			if err != nil {
				return err
			}
			defer fs.Close()

			file, err := fs.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			_, err = io.Copy(os.Stdout, file)
			return err
		},
	}
}

func putCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "put <host-file> <image-path>",
		Short: "Copy a host file into the image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := afero.ReadFile(afero.NewOsFs(), args[0])
			if err != nil {
				return err
			}

			fs, err := openImage()
			if err != nil {
				return err
			}
			defer fs.Close()

			file, err := fs.Create(args[1])
			if err != nil {
				return err
			}
			defer file.Close()

			_, err = file.Write(data)
			return err
		},
	}
}

func getCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <image-path> <host-file>",
		Short: "Copy a file of the image to the host",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := openImage()
			if err != nil {
				return err
			}
			defer fs.Close()

			file, err := fs.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			out, err := os.Create(args[1])
			if err != nil {
				return err
			}
			defer out.Close()

			_, err = io.Copy(out, file)
			return err
		},
	}
}

func rmCommand() *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "rm <path>",
		Short: "Remove a file or directory from the image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := openImage()
			if err != nil {
				return err
			}
			defer fs.Close()

			if recursive {
				return fs.RemoveAll(args[0])
			}
			return fs.Remove(args[0])
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "remove directories and their content")
	return cmd
}

func mvCommand() *cobra.Command {
	var noReplace bool
	cmd := &cobra.Command{
		Use:   "mv <from> <to>",
		Short: "Rename or move an entry inside the image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := openImage()
			if err != nil {
				return err
			}
			defer fs.Close()

			flags := zealfs.RenameDefault
			if noReplace {
				flags = zealfs.RenameNoReplace
			}
			return fs.RenameWithFlags(args[0], args[1], flags)
		},
	}
	cmd.Flags().BoolVarP(&noReplace, "no-replace", "n", false, "fail instead of replacing an existing target")
	return cmd
}

func mkdirCommand() *cobra.Command {
	var parents bool
	cmd := &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a directory in the image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := openImage()
			if err != nil {
				return err
			}
			defer fs.Close()

			if parents {
				return fs.MkdirAll(args[0], 0777)
			}
			return fs.Mkdir(args[0], 0777)
		},
	}
	cmd.Flags().BoolVarP(&parents, "parents", "p", false, "create missing parent directories")
	return cmd
}

func main() {
	if err := rootCommand().Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
