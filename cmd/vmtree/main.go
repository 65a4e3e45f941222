package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	corev1 "k8s.io/api/core/v1"
	storagev1 "k8s.io/api/storage/v1"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/client-go/tools/clientcmd"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/virtops/vmtree/internal/config"
	"github.com/virtops/vmtree/internal/graph"
	"github.com/virtops/vmtree/internal/metrics"
	"github.com/virtops/vmtree/internal/plan"
	"github.com/virtops/vmtree/internal/render"
	"github.com/virtops/vmtree/internal/report"
	"github.com/virtops/vmtree/internal/snapshot"
	"github.com/virtops/vmtree/internal/version"
	"github.com/virtops/vmtree/internal/watch"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootFlags struct {
	kubeconfig string
	noColor    bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:          "vmtree",
		Short:        "Storage tree, orphan detection and migration watch for KubeVirt VMs",
		Version:      version.Version,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.kubeconfig, "kubeconfig", "", "path to kubeconfig (default: standard loading rules)")
	root.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "disable colored output")

	root.AddCommand(newTreeCmd(flags))
	root.AddCommand(newOrphansCmd(flags))
	root.AddCommand(newStorageClassCmd(flags))
	root.AddCommand(newPlanCmd(flags))
	root.AddCommand(newWatchCmd(flags))

	return root
}

func newTreeCmd(flags *rootFlags) *cobra.Command {
	var namespace string

	cmd := &cobra.Command{
		Use:   "tree <vm-name>",
		Short: "Render the storage tree of one VirtualMachine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := fetchIndex(cmd.Context(), flags, namespace)
			if err != nil {
				return err
			}
			tree, ok := report.BuildVMTree(idx, namespace, args[0])
			if !ok {
				return fmt.Errorf("VirtualMachine %s/%s not found", namespace, args[0])
			}
			newRenderer(flags).VMTree(tree)
			return nil
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", config.DefaultNamespace, "namespace of the VirtualMachine")
	return cmd
}

func newOrphansCmd(flags *rootFlags) *cobra.Command {
	var (
		namespace     string
		allNamespaces bool
	)

	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "Find orphaned storage resources and their probable origin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ns := namespace
			if allNamespaces {
				ns = ""
			}
			idx, err := fetchIndex(cmd.Context(), flags, ns)
			if err != nil {
				return err
			}
			newRenderer(flags).Orphans(report.Build(idx), ns)
			return nil
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", config.DefaultNamespace, "namespace to scan")
	cmd.Flags().BoolVarP(&allNamespaces, "all-namespaces", "A", false, "scan all namespaces")
	return cmd
}

func newStorageClassCmd(flags *rootFlags) *cobra.Command {
	var namespace string

	cmd := &cobra.Command{
		Use:   "storage-class <name>",
		Short: "List VMs holding DataVolumes on a storage class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := fetchIndex(cmd.Context(), flags, namespace)
			if err != nil {
				return err
			}
			newRenderer(flags).StorageClassUsage(args[0], plan.FindVMsUsingStorageClass(idx, args[0]))
			return nil
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "restrict to one namespace (default: all)")
	return cmd
}

func newPlanCmd(flags *rootFlags) *cobra.Command {
	var (
		namespace string
		fromSC    string
		toSC      string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Analyze the impact of a storage class migration (read-only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(flags.kubeconfig)
			if err != nil {
				return err
			}
			f := snapshot.NewFetcher(c)

			ok, err := f.StorageClassExists(cmd.Context(), toSC)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("target storage class %q not found", toSC)
			}

			snap, err := f.Fetch(cmd.Context(), namespace)
			if err != nil {
				return err
			}
			newRenderer(flags).Plan(plan.Analyze(graph.Build(snap), fromSC, toSC), namespace)
			return nil
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "restrict to one namespace (default: all)")
	cmd.Flags().StringVar(&fromSC, "from-sc", "", "source storage class")
	cmd.Flags().StringVar(&toSC, "to-sc", "", "target storage class")
	_ = cmd.MarkFlagRequired("from-sc")
	_ = cmd.MarkFlagRequired("to-sc")
	return cmd
}

func newWatchCmd(flags *rootFlags) *cobra.Command {
	var (
		namespace     string
		allNamespaces bool
		targetSC      string
		refresh       time.Duration
		metricsAddr   string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch storage migration progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl.SetLogger(zap.New())

			ns := namespace
			if allNamespaces {
				ns = ""
			}

			c, err := newClient(flags.kubeconfig)
			if err != nil {
				return err
			}

			w := watch.NewWatcher(snapshot.NewFetcher(c), ns, targetSC, refresh, os.Stdout)

			if metricsAddr != "" {
				reg := prometheus.NewRegistry()
				w.Gauges = metrics.NewGauges(reg)
				go serveMetrics(metricsAddr, reg)
			}

			return w.Run(ctrl.SetupSignalHandler())
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", config.DefaultNamespace, "namespace to watch")
	cmd.Flags().BoolVarP(&allNamespaces, "all-namespaces", "A", false, "watch all namespaces")
	cmd.Flags().StringVar(&targetSC, "to-sc", "", "filter by target storage class")
	cmd.Flags().DurationVar(&refresh, "refresh", config.DefaultRefreshInterval, "refresh interval")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address for the metrics endpoint (empty = disabled)")
	return cmd
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	_ = http.ListenAndServe(addr, mux)
}

func newRenderer(flags *rootFlags) *render.Renderer {
	// color.NoColor already accounts for NO_COLOR and non-TTY output.
	return render.New(os.Stdout, !flags.noColor && !color.NoColor)
}

func fetchIndex(ctx context.Context, flags *rootFlags, namespace string) (*graph.Index, error) {
	c, err := newClient(flags.kubeconfig)
	if err != nil {
		return nil, err
	}
	snap, err := snapshot.NewFetcher(c).Fetch(ctx, namespace)
	if err != nil {
		return nil, err
	}
	return graph.Build(snap), nil
}

func newClient(kubeconfig string) (client.Client, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	rules.ExplicitPath = kubeconfig
	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{}).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("loading kubeconfig: %w", err)
	}

	scheme := runtime.NewScheme()
	utilruntime.Must(corev1.AddToScheme(scheme))
	utilruntime.Must(storagev1.AddToScheme(scheme))

	c, err := client.New(cfg, client.Options{Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("creating cluster client: %w", err)
	}
	return c, nil
}
