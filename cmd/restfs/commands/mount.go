package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/brettbedarf/restfs/internal/metrics"
	"github.com/brettbedarf/restfs/internal/util"
	"github.com/brettbedarf/restfs/server"
	"github.com/spf13/cobra"
)

type mountOptions struct {
	metricsAddr string
	umount      bool
	allowOther  bool
}

func newMountCmd(a *app) *cobra.Command {
	var opts mountOptions

	cmd := &cobra.Command{
		Use:   "mount <dir>",
		Short: "Connect and serve the tree over FUSE until signalled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMount(cmd.Context(), a, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	cmd.Flags().BoolVarP(&opts.umount, "umount", "u", false,
		"unmount the dir first if needed. Useful for debuggers that don't exit properly.")
	cmd.Flags().BoolVar(&opts.allowOther, "allow-other", false, "let other users access the mount")
	return cmd
}

func runMount(ctx context.Context, a *app, opts mountOptions, mnt string) error {
	logger := util.GetLogger("main")

	if opts.umount {
		// not mounted is fine
		_ = exec.Command("fusermount", "-u", mnt).Run()
	}
	if opts.allowOther {
		a.cfg.AllowOther = true
	}

	if opts.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: opts.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Str("addr", opts.metricsAddr).Msg("Metrics listener stopped")
			}
		}()
		defer srv.Close()
		logger.Info().Str("addr", opts.metricsAddr).Msg("Serving metrics")
	}

	if err := a.provider.Connect(ctx); err != nil {
		return err
	}

	fs := server.New(a.provider)
	if err := fs.Serve(mnt); err != nil {
		logger.Error().Err(err).Msg("Failed to mount filesystem")
		return err
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(signalChan)

	unmounted := make(chan struct{})
	go func() {
		_ = fs.Wait()
		close(unmounted)
	}()

	select {
	case sig := <-signalChan:
		logger.Info().Str("signal", sig.String()).Msg("Received signal, unmounting filesystem")
		if err := fs.Unmount(); err != nil {
			logger.Error().Err(err).Msg("Failed to unmount filesystem")
			return err
		}
		<-unmounted
	case <-unmounted:
		logger.Info().Msg("Filesystem unmounted externally")
	}
	logger.Info().Msg("Filesystem unmounted successfully")
	return nil
}
