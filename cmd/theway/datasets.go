package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/theway/theway-go/internal/gateway"
	"github.com/theway/theway-go/internal/logging"
)

func newDatasetsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datasets",
		Short: "List, choose, upload and delete datasets",
		Long: `Manage the vessel track datasets held by the backend.

Examples:
  theway datasets list
  theway datasets choose 2
  theway datasets upload --name "Sangar 2023" --positions pos.csv --marine marine.csv
  theway datasets delete 2`,
	}

	cmd.AddCommand(newDatasetsListCmd(root))
	cmd.AddCommand(newDatasetsChooseCmd(root))
	cmd.AddCommand(newDatasetsUploadCmd(root))
	cmd.AddCommand(newDatasetsDeleteCmd(root))
	return cmd
}

// withClient loads the config and hands a backend client to fn
func withClient(cmd *cobra.Command, root *rootOptions, fn func(*gateway.Client) error) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	b, err := newBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	log := logging.Command(b.logger, cmd.CommandPath())
	if err := fn(b.client); err != nil {
		log.Warn("command failed", zap.Error(err))
		return err
	}
	log.Debug("command done")
	return nil
}

func parseDatasetID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid dataset id %q", arg)
	}
	return id, nil
}

func newDatasetsListCmd(root *rootOptions) *cobra.Command {
	var mineOnly bool

	cmd := &cobra.Command{
		Use:          "list",
		Short:        "List datasets; yours are marked with *",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, root, func(c *gateway.Client) error {
				list, err := c.ListDatasets(cmd.Context())
				if err != nil {
					return err
				}

				items := list.All
				if mineOnly {
					items = list.Mine
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No datasets")
					return nil
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tOWNER")
				for _, ds := range items {
					owner := ""
					if list.Owns(ds.ID) {
						owner = "*"
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\n", ds.ID, ds.Name, owner)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&mineOnly, "mine", false, "Only list your own datasets")
	return cmd
}

func newDatasetsChooseCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "choose <id>",
		Short:        "Select a dataset on the backend session",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDatasetID(args[0])
			if err != nil {
				return err
			}
			return withClient(cmd, root, func(c *gateway.Client) error {
				msg, err := c.ChooseDataset(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), msg)
				return nil
			})
		},
	}
}

func newDatasetsUploadCmd(root *rootOptions) *cobra.Command {
	var req gateway.UploadRequest

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Create a dataset from a positions file and a vessel registry file",
		Long: `Upload two CSV files as a new dataset.

With --interpolation the backend fills gaps in each track up to
--max-gap minutes (default 30).`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := req.Validate(); err != nil {
				return err
			}
			return withClient(cmd, root, func(c *gateway.Client) error {
				msg, err := c.UploadDataset(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), msg)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Dataset name")
	cmd.Flags().StringVar(&req.PositionsFile, "positions", "", "Vessel positions CSV")
	cmd.Flags().StringVar(&req.MarineFile, "marine", "", "Vessel registry CSV")
	cmd.Flags().BoolVar(&req.Interpolation, "interpolation", false, "Interpolate gaps in tracks")
	cmd.Flags().IntVar(&req.MaxGapMinutes, "max-gap", 0, "Largest gap to interpolate, in minutes")
	return cmd
}

func newDatasetsDeleteCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "delete <id>",
		Short:        "Delete one of your datasets",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseDatasetID(args[0])
			if err != nil {
				return err
			}
			return withClient(cmd, root, func(c *gateway.Client) error {
				msg, err := c.DeleteDataset(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), msg)
				return nil
			})
		},
	}
}
