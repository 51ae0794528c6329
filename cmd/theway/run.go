package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/theway/theway-go/internal/config"
	"github.com/theway/theway-go/internal/export"
	"github.com/theway/theway-go/internal/gateway"
	"github.com/theway/theway-go/internal/geo"
	"github.com/theway/theway-go/internal/logging"
	"github.com/theway/theway-go/internal/picker"
	"github.com/theway/theway-go/internal/session"
)

// Output formats of the run commands
const (
	formatText = "text"
	formatJSON = "json"
	formatCSV  = "csv"
)

// stringOverride ties a flag to the config field it replaces when set
type stringOverride struct {
	flag  string
	usage string
	value string
	field func(*config.Config) *string
}

var clusteringOverrides = []*stringOverride{
	{flag: "weight-distance", usage: "Distance weight", field: func(c *config.Config) *string { return &c.Clustering.WeightDistance }},
	{flag: "weight-speed", usage: "Speed weight", field: func(c *config.Config) *string { return &c.Clustering.WeightSpeed }},
	{flag: "weight-course", usage: "Course weight", field: func(c *config.Config) *string { return &c.Clustering.WeightCourse }},
	{flag: "eps", usage: "DBSCAN eps", field: func(c *config.Config) *string { return &c.Clustering.Eps }},
	{flag: "min-samples", usage: "DBSCAN min samples", field: func(c *config.Config) *string { return &c.Clustering.MinSamples }},
	{flag: "metric-degree", usage: "Minkowski metric degree", field: func(c *config.Config) *string { return &c.Clustering.MetricDegree }},
	{flag: "hull-type", usage: "Hull type (convex_hull, concave_hull)", field: func(c *config.Config) *string { return &c.Clustering.HullType }},
}

var graphOverrides = []*stringOverride{
	{flag: "distance-delta", usage: "Graph vertex spacing", field: func(c *config.Config) *string { return &c.Graph.DistanceDelta }},
	{flag: "weight-func-degree", usage: "Edge weight degree", field: func(c *config.Config) *string { return &c.Graph.WeightFuncDegree }},
	{flag: "angle-of-vision", usage: "Angle of vision in degrees", field: func(c *config.Config) *string { return &c.Graph.AngleOfVision }},
	{flag: "weight-time-graph", usage: "Time weight", field: func(c *config.Config) *string { return &c.Graph.WeightTimeGraph }},
	{flag: "weight-course-graph", usage: "Course weight", field: func(c *config.Config) *string { return &c.Graph.WeightCourseGraph }},
	{flag: "algorithm", usage: "Search algorithm (Dijkstra, A*)", field: func(c *config.Config) *string { return &c.Graph.SearchAlgorithm }},
}

func bindOverrides(cmd *cobra.Command, list []*stringOverride) []*stringOverride {
	bound := make([]*stringOverride, len(list))
	for i, o := range list {
		c := *o
		cmd.Flags().StringVar(&c.value, c.flag, "", c.usage)
		bound[i] = &c
	}
	return bound
}

func applyOverrides(cmd *cobra.Command, cfg *config.Config, list []*stringOverride) {
	for _, o := range list {
		if cmd.Flags().Changed(o.flag) {
			*o.field(cfg) = o.value
		}
	}
}

// runOptions are the flags shared by cluster and graph
type runOptions struct {
	datasetID int
	format    string
	output    string
}

func (r *runOptions) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&r.datasetID, "dataset", 0, "Dataset id (see 'theway datasets list')")
	cmd.Flags().StringVar(&r.format, "format", formatText, "Output format: text, json or csv")
	cmd.Flags().StringVarP(&r.output, "output", "o", "", "Write the legend to a file (JSON unless --format csv)")
	_ = cmd.MarkFlagRequired("dataset")
}

func (r *runOptions) validate() error {
	switch r.format {
	case formatText, formatJSON, formatCSV:
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text, json or csv)", r.format)
	}
}

func newClusterCmd(root *rootOptions) *cobra.Command {
	run := &runOptions{}
	var overrides []*stringOverride

	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Run clustering on a dataset and print the statistics",
		Long: `Submit clustering parameters and print the resulting statistics.

Parameters default to the values in the settings file.

Examples:
  theway cluster --dataset 1
  theway cluster --dataset 1 --eps 0.4 --hull-type convex_hull --format json`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := run.validate(); err != nil {
				return err
			}
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			applyOverrides(cmd, cfg, overrides)
			if err := cfg.Validate(); err != nil {
				return err
			}

			b, err := newBackend(cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			sess := b.newSession()
			sess.SelectDataset(run.datasetID)

			log := logging.Command(b.logger, "cluster")
			res, err := sess.RunClustering(cmd.Context(), cfg.Clustering.Params(""))
			if err != nil {
				log.Warn("clustering failed", zap.Int("dataset_id", run.datasetID), zap.Error(err))
				return err
			}
			log.Info("clustering done", zap.Int("dataset_id", run.datasetID), zap.Int("stats", len(res.Stats)))

			w := cmd.OutOrStdout()
			if run.format == formatText && run.output == "" {
				fmt.Fprintf(w, "Clusters: %s\n", res.ClustersURL)
				fmt.Fprintf(w, "Polygons: %s\n", res.PolygonsURL)
				fmt.Fprintf(w, "Extent:   %s\n\n", res.Extent)
			}
			return writeLegend(w, sess, run, export.Clustering)
		},
	}

	run.bind(cmd)
	overrides = bindOverrides(cmd, clusteringOverrides)
	return cmd
}

func newGraphCmd(root *rootOptions) *cobra.Command {
	run := &runOptions{}
	var (
		overrides    []*stringOverride
		start, end   string
		pointsInside bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Cluster a dataset and build a route between two points",
		Long: `Run clustering, then build the route graph between the start and end
coordinates and print the route statistics.

Coordinates are "lat, lon" in decimal degrees.

Examples:
  theway graph --dataset 1 --start "43.10, 131.90" --end "42.80, 132.90"
  theway graph --dataset 1 --start "43.1 131.9" --end "42.8 132.9" --algorithm "A*"`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := run.validate(); err != nil {
				return err
			}
			for _, raw := range []string{start, end} {
				if _, err := geo.ParseCoordinatePair(raw); err != nil {
					return fmt.Errorf("%q: %w", raw, err)
				}
			}
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			applyOverrides(cmd, cfg, overrides)
			if cmd.Flags().Changed("points-inside") {
				cfg.Graph.PointsInside = pointsInside
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			b, err := newBackend(cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			sess := b.newSession()
			sess.SelectDataset(run.datasetID)

			log := logging.Command(b.logger, "graph")
			if _, err := sess.RunClustering(cmd.Context(), cfg.Clustering.Params("")); err != nil {
				log.Warn("clustering failed", zap.Int("dataset_id", run.datasetID), zap.Error(err))
				return fmt.Errorf("clustering: %w", err)
			}

			// Typed coordinates go through the picker like the map inputs do
			sess.Picker().OnTextEdit(picker.Start, start)
			sess.Picker().OnTextEdit(picker.End, end)

			res, err := sess.RunGraph(cmd.Context(), cfg.Graph.Params("", "", ""))
			var backendErr *gateway.BackendComputationError
			if err != nil && !errors.As(err, &backendErr) {
				log.Warn("graph failed", zap.Int("dataset_id", run.datasetID), zap.Error(err))
				return err
			}
			log.Info("graph done", zap.Int("dataset_id", run.datasetID), zap.Bool("backend_error", backendErr != nil))

			w := cmd.OutOrStdout()
			if run.format == formatText && run.output == "" && res != nil && backendErr == nil {
				fmt.Fprintf(w, "Route:  %s\n", res.RouteURL)
				fmt.Fprintf(w, "Extent: %s\n\n", res.Extent)
			}
			if werr := writeLegend(w, sess, run, export.Graph); werr != nil {
				return werr
			}
			return err
		},
	}

	run.bind(cmd)
	cmd.Flags().StringVar(&start, "start", "", "Start point \"lat, lon\"")
	cmd.Flags().StringVar(&end, "end", "", "End point \"lat, lon\"")
	cmd.Flags().BoolVar(&pointsInside, "points-inside", false, "Keep both points inside the clustered area")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	overrides = append(bindOverrides(cmd, clusteringOverrides), bindOverrides(cmd, graphOverrides)...)
	return cmd
}

// writeLegend prints the session legend, or writes it to run.output
func writeLegend(w io.Writer, sess *session.Session, run *runOptions, op export.Operation) error {
	legend := sess.Legend()
	meta := export.Meta{
		Operation: op,
		DatasetID: strconv.Itoa(run.datasetID),
		Start:     sess.Coords(picker.Start),
		End:       sess.Coords(picker.End),
		Timestamp: time.Now(),
	}
	_, meta.Extent = sess.Extents()

	if run.output != "" {
		var err error
		switch run.format {
		case formatCSV:
			err = export.ExportLegendCSVToFile(legend, meta, run.output)
		default:
			err = export.ExportLegendJSONToFile(legend, meta, run.output)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Legend written to %s\n", run.output)
		return nil
	}

	switch run.format {
	case formatJSON:
		return export.WriteLegendJSON(w, legend, meta)
	case formatCSV:
		return export.WriteLegendCSV(w, legend, meta)
	}
	for _, line := range legend.Lines() {
		fmt.Fprintln(w, line)
	}
	return nil
}
